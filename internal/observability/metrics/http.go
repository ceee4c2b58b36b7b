package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	sessionsStartedTotal *prometheus.CounterVec
	turnsTotal           *prometheus.CounterVec
	turnDuration         *prometheus.HistogramVec
	completionsTotal     *prometheus.CounterVec
	handoffsTotal        *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lia",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sessionsStartedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "intake",
			Name:      "sessions_started_total",
			Help:      "Total intake sessions started.",
		},
		[]string{"service"},
	)
	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "intake",
			Name:      "turns_total",
			Help:      "Total processed conversation turns by resulting status.",
		},
		[]string{"service", "status"},
	)
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lia",
			Subsystem: "intake",
			Name:      "turn_duration_seconds",
			Help:      "Turn processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	completionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "intake",
			Name:      "completions_total",
			Help:      "Total completed sessions by summary origin.",
		},
		[]string{"service", "summary"},
	)
	handoffsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lia",
			Subsystem: "intake",
			Name:      "handoffs_total",
			Help:      "Total sessions escalated to a human.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		sessionsStartedTotal,
		turnsTotal,
		turnDuration,
		completionsTotal,
		handoffsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		sessionsStartedTotal: sessionsStartedTotal,
		turnsTotal:           turnsTotal,
		turnDuration:         turnDuration,
		completionsTotal:     completionsTotal,
		handoffsTotal:        handoffsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/sessions/"):
		return "/v1/sessions/{session_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSessionStarted(service string) {
	m.sessionsStartedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTurn(service, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.turnsTotal.WithLabelValues(service, status).Inc()
	m.turnDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordCompletion(service string, summaryFallback bool) {
	origin := "generated"
	if summaryFallback {
		origin = "fallback"
	}
	m.completionsTotal.WithLabelValues(service, origin).Inc()
}

func (m *HTTPServerMetrics) RecordHandoff(service string) {
	m.handoffsTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
