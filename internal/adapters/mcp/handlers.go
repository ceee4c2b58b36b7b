package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

// Handlers holds dependencies for the intake tool handlers.
type Handlers struct {
	turns ports.TurnService
	leads ports.LeadStore
}

func NewHandlers(turns ports.TurnService, leads ports.LeadStore) *Handlers {
	return &Handlers{turns: turns, leads: leads}
}

// TurnRequest represents the arguments for intake_turn.
type TurnRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// StatusRequest represents the arguments for intake_status and intake_reset.
type StatusRequest struct {
	SessionID string `json:"session_id"`
}

// LeadsRequest represents the arguments for intake_leads.
type LeadsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// HandleTurn handles the intake_turn tool call.
func (h *Handlers) HandleTurn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TurnRequest](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result *domain.TurnResult
	if input.SessionID == "" && strings.TrimSpace(input.Message) == "" {
		result, err = h.turns.StartSession(ctx)
	} else {
		result, err = h.turns.HandleTurn(ctx, input.SessionID, input.Message)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(result)
}

// HandleStatus handles the intake_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if input.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	result, err := h.turns.Snapshot(ctx, input.SessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(result)
}

// HandleReset handles the intake_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if input.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := h.turns.Reset(ctx, input.SessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"session_id": input.SessionID, "reset": true})
}

// HandleLeads handles the intake_leads tool call.
func (h *Handlers) HandleLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeadsRequest](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	leads, err := h.leads.ListLeads(ctx, input.Limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"leads": leads, "count": len(leads)})
}
