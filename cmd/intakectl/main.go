package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/avolkov/lead-intake-assistant/internal/bootstrap"
	"github.com/avolkov/lead-intake-assistant/internal/config"
	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
	"github.com/avolkov/lead-intake-assistant/internal/core/usecase"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/extractor/pattern"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/llm/ollama"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/repository/inmemory"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/resilience"
	"github.com/avolkov/lead-intake-assistant/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "intakectl",
		Usage: "Operator tooling for the lead intake assistant",
		Commands: []*cli.Command{
			chatCmd(),
			sessionCmd(),
			resetCmd(),
			leadsCmd(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// chatCmd runs a local conversation loop against an in-memory session store.
// Useful for trying out a schema file without postgres or NATS running.
func chatCmd() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Run an interactive intake conversation locally",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-llm", Usage: "Skip the language model and use pattern extraction only"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			logger := logging.NewJSONLoggerTo(os.Stderr, "intakectl", "warn")

			schema, err := config.LoadSchema(cfg.SchemaPath, cfg.MaxAttempts)
			if err != nil {
				return fmt.Errorf("load intake schema: %w", err)
			}

			var extractor ports.FieldExtractor = pattern.NewExtractor()
			var generator ports.SummaryGenerator
			if cfg.OllamaEnabled && !c.Bool("no-llm") {
				executor := resilience.NewExecutor(resilience.DefaultConfig()).WithLogger(logger)
				client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor)
				extractor = ollama.NewExtractor(client, schema.FieldNames(), extractor)
				generator = ollama.NewSummarizer(client)
			}

			machine := usecase.NewMachine(schema, extractor)
			summary := usecase.NewSummaryStep(generator, schema, logger).
				WithLimits(cfg.SummaryMaxAttempts, cfg.SummaryMinLength)
			turns := usecase.NewTurnUseCase(inmemory.NewSessionStore(), machine, summary, nil, logger)

			result, err := turns.StartSession(c.Context)
			if err != nil {
				return err
			}
			fmt.Println("assistant:", result.Message)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you: ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" {
					return nil
				}

				result, err = turns.HandleTurn(c.Context, result.SessionID, line)
				if err != nil {
					return err
				}
				fmt.Println("assistant:", result.Message)
				if result.Status == domain.StatusCompleted || result.Status == domain.StatusHandoff {
					return nil
				}
			}
		},
	}
}

func sessionCmd() *cli.Command {
	return &cli.Command{
		Name:      "session",
		Usage:     "Show the current state of a session",
		ArgsUsage: "<session-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("session id is required")
			}
			app, err := openApp(c.Context)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Turns.Snapshot(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return outputJSON(result)
		},
	}
}

func resetCmd() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Discard a session and its collected profile",
		ArgsUsage: "<session-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("session id is required")
			}
			app, err := openApp(c.Context)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Turns.Reset(c.Context, c.Args().First()); err != nil {
				return err
			}
			return outputJSON(map[string]any{"session_id": c.Args().First(), "reset": true})
		},
	}
}

func leadsCmd() *cli.Command {
	return &cli.Command{
		Name:  "leads",
		Usage: "List archived leads",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "Maximum leads to return"},
		},
		Action: func(c *cli.Context) error {
			app, err := openApp(c.Context)
			if err != nil {
				return err
			}
			defer app.Close()

			leads, err := app.Leads.ListLeads(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			return outputJSON(map[string]any{"leads": leads, "count": len(leads)})
		},
	}
}

func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "intakectl", "warn")
	return bootstrap.New(ctx, cfg, logger)
}

func outputJSON(payload any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
