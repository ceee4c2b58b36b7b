package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

type turnServiceFake struct {
	result  *domain.TurnResult
	err     error
	started int
	turns   []string
	resets  []string
}

func (f *turnServiceFake) StartSession(context.Context) (*domain.TurnResult, error) {
	f.started++
	return f.result, f.err
}

func (f *turnServiceFake) HandleTurn(_ context.Context, sessionID, message string) (*domain.TurnResult, error) {
	f.turns = append(f.turns, sessionID+"|"+message)
	return f.result, f.err
}

func (f *turnServiceFake) Snapshot(context.Context, string) (*domain.TurnResult, error) {
	return f.result, f.err
}

func (f *turnServiceFake) Reset(_ context.Context, sessionID string) error {
	f.resets = append(f.resets, sessionID)
	return f.err
}

type leadStoreFake struct {
	leads []domain.Lead
	err   error
}

func (f *leadStoreFake) CreateLead(context.Context, *domain.Lead) error { return nil }

func (f *leadStoreFake) ListLeads(context.Context, int) ([]domain.Lead, error) {
	return f.leads, f.err
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestHandleTurnStartsSessionWithoutID(t *testing.T) {
	turns := &turnServiceFake{result: &domain.TurnResult{
		SessionID: "sess-1",
		Message:   "What's your full name?",
		Status:    domain.StatusCollecting,
	}}
	h := NewHandlers(turns, nil)

	result, err := h.HandleTurn(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if turns.started != 1 || len(turns.turns) != 0 {
		t.Fatalf("expected StartSession path, got started=%d turns=%v", turns.started, turns.turns)
	}

	var payload domain.TurnResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.SessionID != "sess-1" {
		t.Fatalf("session id = %q", payload.SessionID)
	}
}

func TestHandleTurnForwardsMessage(t *testing.T) {
	turns := &turnServiceFake{result: &domain.TurnResult{SessionID: "sess-1", Status: domain.StatusCollecting}}
	h := NewHandlers(turns, nil)

	result, err := h.HandleTurn(context.Background(), makeRequest(map[string]any{
		"session_id": "sess-1",
		"message":    "Jane Doe",
	}))
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if len(turns.turns) != 1 || turns.turns[0] != "sess-1|Jane Doe" {
		t.Fatalf("turns = %v", turns.turns)
	}
}

func TestHandleTurnReportsServiceError(t *testing.T) {
	turns := &turnServiceFake{err: errors.New("store offline")}
	h := NewHandlers(turns, nil)

	result, err := h.HandleTurn(context.Background(), makeRequest(map[string]any{
		"session_id": "sess-1",
		"message":    "hi",
	}))
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result")
	}
	if !strings.Contains(resultText(t, result), "store offline") {
		t.Fatalf("error text = %q", resultText(t, result))
	}
}

func TestHandleStatusRequiresSessionID(t *testing.T) {
	h := NewHandlers(&turnServiceFake{}, nil)

	result, err := h.HandleStatus(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result for missing session_id")
	}
}

func TestHandleResetForwardsSessionID(t *testing.T) {
	turns := &turnServiceFake{}
	h := NewHandlers(turns, nil)

	result, err := h.HandleReset(context.Background(), makeRequest(map[string]any{
		"session_id": "sess-9",
	}))
	if err != nil {
		t.Fatalf("HandleReset: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if len(turns.resets) != 1 || turns.resets[0] != "sess-9" {
		t.Fatalf("resets = %v", turns.resets)
	}
}

func TestHandleLeadsReturnsArchive(t *testing.T) {
	leads := &leadStoreFake{leads: []domain.Lead{{ID: "lead-1", SessionID: "sess-1"}}}
	h := NewHandlers(&turnServiceFake{}, leads)

	result, err := h.HandleLeads(context.Background(), makeRequest(map[string]any{"limit": 5}))
	if err != nil {
		t.Fatalf("HandleLeads: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Count != 1 {
		t.Fatalf("count = %d", payload.Count)
	}
}

func TestNewServerSkipsLeadsToolWithoutStore(t *testing.T) {
	s := NewServer(&turnServiceFake{}, nil, "test")
	if s == nil {
		t.Fatalf("expected server")
	}
	if len(AllToolNames()) != 4 {
		t.Fatalf("registry size = %d", len(AllToolNames()))
	}
}
