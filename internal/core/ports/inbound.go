package ports

import (
	"context"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

// TurnService is the inbound contract for driving one conversation turn.
type TurnService interface {
	// StartSession creates a fresh conversation and advances it to the first
	// outbound question.
	StartSession(ctx context.Context) (*domain.TurnResult, error)
	// HandleTurn applies one inbound message to the session and advances the
	// machine until it suspends or reaches a terminal state. An empty
	// sessionID starts a new conversation first.
	HandleTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error)
	// Snapshot returns the current status and profile without advancing.
	Snapshot(ctx context.Context, sessionID string) (*domain.TurnResult, error)
	// Reset deletes the session.
	Reset(ctx context.Context, sessionID string) error
}

// LeadFinalizer is the inbound contract for the worker-side finalization of a
// completed conversation.
type LeadFinalizer interface {
	FinalizeBySessionID(ctx context.Context, sessionID string) error
}
