package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
	"github.com/avolkov/lead-intake-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	turns   ports.TurnService
	leads   ports.LeadStore
	metrics *metrics.HTTPServerMetrics

	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int
}

func NewRouter(
	turns ports.TurnService,
	leads ports.LeadStore,
	httpMetrics *metrics.HTTPServerMetrics,
	rateLimitRPS, rateLimitBurst, maxInFlight int,
) *Router {
	return &Router{
		turns:          turns,
		leads:          leads,
		metrics:        httpMetrics,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
		maxInFlight:    maxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/sessions", rt.startSession)
	mux.HandleFunc("/v1/sessions/", rt.sessionByID)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/chat/stream", rt.chatStream)
	mux.HandleFunc("/v1/leads", rt.listLeads)
	mux.HandleFunc("/v1/leads/export", rt.exportLeads)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) startSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	result, err := rt.turns.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSessionStarted(serviceName)
	}
	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) sessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		result, err := rt.turns.Snapshot(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodDelete:
		if err := rt.turns.Reset(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := rt.handleTurn(r, req.SessionID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// chatStream is the EventSource variant of chat: same turn semantics, but the
// per-turn events go out as SSE frames.
func (rt *Router) chatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query := r.URL.Query()
	message := query.Get("message")
	if strings.TrimSpace(message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := rt.handleTurn(r, query.Get("session_id"), message)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := writeTurnSSE(w, result); err != nil {
		// The stream is already committed; nothing useful left to send.
		return
	}
}

func (rt *Router) handleTurn(r *http.Request, sessionID, message string) (*domain.TurnResult, error) {
	start := time.Now()
	result, err := rt.turns.HandleTurn(r.Context(), sessionID, message)
	if err != nil {
		return nil, err
	}
	if rt.metrics != nil {
		rt.metrics.RecordTurn(serviceName, string(result.Status), time.Since(start))
		switch result.Status {
		case domain.StatusCompleted:
			rt.metrics.RecordCompletion(serviceName, result.SummaryFallback)
		case domain.StatusHandoff:
			rt.metrics.RecordHandoff(serviceName)
		}
	}
	return result, nil
}

func (rt *Router) listLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.leads == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "lead archive is not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	leads, err := rt.leads.ListLeads(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (rt *Router) exportLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.leads == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "lead archive is not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	leads, err := rt.leads.ListLeads(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := writeLeadsWorkbook(w, leads); err != nil {
		writeError(w, err)
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
