package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avolkov/lead-intake-assistant/internal/config"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
	"github.com/avolkov/lead-intake-assistant/internal/core/usecase"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/extractor/pattern"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/llm/ollama"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/queue/nats"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/repository/postgres"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/resilience"
	"github.com/avolkov/lead-intake-assistant/internal/infrastructure/sink/airtable"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Sessions  ports.SessionStore
	Leads     ports.LeadStore
	Queue     ports.LeadQueue
	Sink      ports.LeadSink
	Turns     ports.TurnService
	Finalizer ports.LeadFinalizer

	closeFn func()
}

// New wires the full application graph. The caller owns the logger so stdio
// commands can route it away from stdout.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	schema, err := config.LoadSchema(cfg.SchemaPath, cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("load intake schema: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sessions := postgres.NewSessionRepository(db)
	if err := sessions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}
	leads := postgres.NewLeadRepository(db)
	if err := leads.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure lead schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig()).WithLogger(logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var extractor ports.FieldExtractor = pattern.NewExtractor()
	var generator ports.SummaryGenerator
	if cfg.OllamaEnabled {
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor)
		extractor = ollama.NewExtractor(client, schema.FieldNames(), extractor)
		generator = ollama.NewSummarizer(client)
	}

	machine := usecase.NewMachine(schema, extractor)
	summary := usecase.NewSummaryStep(generator, schema, logger).
		WithLimits(cfg.SummaryMaxAttempts, cfg.SummaryMinLength)
	turns := usecase.NewTurnUseCase(sessions, machine, summary, queue, logger)

	var sink ports.LeadSink
	mapping, err := airtable.ParseFieldMapping(cfg.AirtableFieldMapping)
	if err != nil {
		return nil, fmt.Errorf("parse airtable field mapping: %w", err)
	}
	if client := airtable.New(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTable, mapping, executor); client.Configured() {
		sink = client
	} else {
		logger.Info("airtable sink not configured, records stay local")
	}
	finalizer := usecase.NewFinalizeLeadUseCase(sessions, leads, sink, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Sessions:  sessions,
		Leads:     leads,
		Queue:     queue,
		Sink:      sink,
		Turns:     turns,
		Finalizer: finalizer,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
