package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avolkov/lead-intake-assistant/internal/adapters/mcp"
	"github.com/avolkov/lead-intake-assistant/internal/bootstrap"
	"github.com/avolkov/lead-intake-assistant/internal/config"
	"github.com/avolkov/lead-intake-assistant/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the protocol; all logging goes to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if err := mcp.Run(app.Turns, app.Leads, version); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
