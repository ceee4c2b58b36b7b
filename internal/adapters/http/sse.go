package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

// writeTurnSSE replays a finished turn as an event stream: one "session" frame,
// one frame per machine event, and a closing "complete" frame. Events are built
// before the stream opens, so an error can still become a JSON response.
func writeTurnSSE(w http.ResponseWriter, result *domain.TurnResult) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSEFrame(w, "session", map[string]string{"session_id": result.SessionID}); err != nil {
		return err
	}
	flusher.Flush()

	for _, event := range result.Events {
		var payload any
		switch event.Kind {
		case domain.TurnEventStatus:
			payload = map[string]string{"status": string(event.Status)}
		case domain.TurnEventMessage:
			payload = map[string]string{"content": event.Message}
		case domain.TurnEventProfile:
			payload = map[string]domain.Profile{"profile": event.Profile}
		default:
			continue
		}
		if err := writeSSEFrame(w, string(event.Kind), payload); err != nil {
			return err
		}
		flusher.Flush()
	}

	if err := writeSSEFrame(w, "complete", map[string]string{"status": string(result.Status)}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEFrame(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
