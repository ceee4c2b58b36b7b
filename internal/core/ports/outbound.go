package ports

import (
	"context"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

// SessionStore persists conversation state keyed by session id. Implementations
// must provide read-your-writes consistency per key; callers serialize turns
// per session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*domain.ConversationState, error)
	Save(ctx context.Context, state *domain.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// FieldExtractor produces (field, value) candidates from free text. pendingField
// names the field the last question asked for, empty during confirmation edits.
// A failed or empty extraction is not an error condition for the machine.
type FieldExtractor interface {
	Extract(ctx context.Context, text, pendingField string, known domain.Profile) (map[string]string, error)
}

// SummaryGenerator turns a finished profile into prose.
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, profile domain.Profile) (string, error)
}

// LeadSink writes a completed lead to the external record store.
type LeadSink interface {
	CreateRecord(ctx context.Context, profile domain.Profile, summary string) (string, error)
}

// LeadQueue hands completed sessions to the finalization worker.
type LeadQueue interface {
	PublishLeadCompleted(ctx context.Context, sessionID string) error
	SubscribeLeadCompleted(ctx context.Context, handler func(context.Context, string) error) error
}

// LeadStore archives completed leads for the admin surface.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *domain.Lead) error
	ListLeads(ctx context.Context, limit int) ([]domain.Lead, error)
}
