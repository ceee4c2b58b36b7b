// Package mcp exposes the intake conversation over the Model Context Protocol
// so agent runtimes can drive sessions through stdio tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

const serverName = "lead-intake-assistant"

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"intake_turn": {
		def:     turnToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTurn },
	},
	"intake_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"intake_reset": {
		def:     resetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"intake_leads": {
		def:     leadsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLeads },
	},
}

var turnToolDef = mcp.NewTool("intake_turn",
	mcp.WithDescription("Send one user message to an intake session. Omit session_id to start a new session; send an empty message with no session_id to get the opening question."),
	mcp.WithString("session_id",
		mcp.Description("Existing session to continue. Omit to start a new one."),
	),
	mcp.WithString("message",
		mcp.Description("The user's message for this turn."),
	),
)

var statusToolDef = mcp.NewTool("intake_status",
	mcp.WithDescription("Read the current state of an intake session without advancing it."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session to inspect."),
	),
)

var resetToolDef = mcp.NewTool("intake_reset",
	mcp.WithDescription("Discard an intake session and its collected profile."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session to discard."),
	),
)

var leadsToolDef = mcp.NewTool("intake_leads",
	mcp.WithDescription("List archived leads from completed intake sessions."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit",
		mcp.Description("Maximum leads to return (default: 100)."),
	),
)

// AllToolNames returns a list of all registered tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates an MCP server with the intake tools registered. The leads
// tool is skipped when no archive is configured.
func NewServer(turns ports.TurnService, leads ports.LeadStore, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(turns, leads)
	for name, entry := range toolRegistry {
		if name == "intake_leads" && leads == nil {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the intake tools over stdio until the client disconnects.
func Run(turns ports.TurnService, leads ports.LeadStore, version string) error {
	return server.ServeStdio(NewServer(turns, leads, version))
}
