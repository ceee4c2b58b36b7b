package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avolkov/lead-intake-assistant/internal/bootstrap"
	"github.com/avolkov/lead-intake-assistant/internal/config"
	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
	"github.com/avolkov/lead-intake-assistant/internal/core/usecase"
	"github.com/avolkov/lead-intake-assistant/internal/observability/logging"
	"github.com/avolkov/lead-intake-assistant/internal/observability/metrics"
)

const service = "worker"

// instrumentedSink records the outcome of every external record write.
type instrumentedSink struct {
	inner   ports.LeadSink
	metrics *metrics.WorkerMetrics
}

func (s *instrumentedSink) CreateRecord(ctx context.Context, profile domain.Profile, summary string) (string, error) {
	recordID, err := s.inner.CreateRecord(ctx, profile, summary)
	s.metrics.RecordSinkResult(service, err)
	return recordID, err
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)

	var sink ports.LeadSink
	if app.Sink != nil {
		sink = &instrumentedSink{inner: app.Sink, metrics: workerMetrics}
	}
	finalizer := usecase.NewFinalizeLeadUseCase(app.Sessions, app.Leads, sink, app.Logger)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeLeadCompleted(ctx, func(handlerCtx context.Context, sessionID string) error {
		finalizeCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		workerMetrics.StartFinalize()
		start := time.Now()
		finalizeErr := finalizer.FinalizeBySessionID(finalizeCtx, sessionID)
		workerMetrics.FinishFinalize(service, time.Since(start), finalizeErr)
		return finalizeErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
