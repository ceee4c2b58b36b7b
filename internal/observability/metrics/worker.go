package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	finalizeTotal    *prometheus.CounterVec
	finalizeDuration *prometheus.HistogramVec
	finalizeInFlight prometheus.Gauge
	sinkResultsTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	finalizeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "worker",
			Name:      "lead_finalize_total",
			Help:      "Total finalized leads by status.",
		},
		[]string{"service", "status"},
	)
	finalizeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lia",
			Subsystem: "worker",
			Name:      "lead_finalize_duration_seconds",
			Help:      "Lead finalization duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	finalizeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lia",
			Subsystem: "worker",
			Name:      "lead_finalize_in_flight",
			Help:      "Number of in-flight lead finalizations.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sinkResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "worker",
			Name:      "sink_results_total",
			Help:      "Total external record sink attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(finalizeTotal, finalizeDuration, finalizeInFlight, sinkResultsTotal)

	return &WorkerMetrics{
		registry:         registry,
		finalizeTotal:    finalizeTotal,
		finalizeDuration: finalizeDuration,
		finalizeInFlight: finalizeInFlight,
		sinkResultsTotal: sinkResultsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartFinalize() {
	m.finalizeInFlight.Inc()
}

func (m *WorkerMetrics) FinishFinalize(service string, duration time.Duration, err error) {
	m.finalizeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.finalizeTotal.WithLabelValues(service, status).Inc()
	m.finalizeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordSinkResult(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.sinkResultsTotal.WithLabelValues(service, outcome).Inc()
}
