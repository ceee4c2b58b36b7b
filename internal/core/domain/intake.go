package domain

import "time"

// Status is the conversation-level state of one intake session.
type Status string

const (
	StatusCollecting        Status = "collecting"
	StatusConfirming        Status = "confirming"
	StatusGeneratingSummary Status = "generating_summary"
	StatusCompleted         Status = "completed"
	StatusHandoff           Status = "handoff"
	StatusFailed            Status = "failed"
)

// IsTerminal reports whether the automated flow stops at this status.
// Handoff is terminal for the machine; resumption is an external decision.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusHandoff || s == StatusFailed
}

// SkippedValue marks an optional field the user declined to answer.
const SkippedValue = "skipped"

// Profile maps field name to a validated, normalized value or SkippedValue.
type Profile map[string]string

// Filled reports whether the field holds a non-empty value (skip counts as filled).
func (p Profile) Filled(field string) bool {
	return p[field] != ""
}

// Clone returns an independent copy so callers can snapshot state safely.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// FieldError records one failed validation attempt. The log is append-only and
// only feeds the hint shown on re-ask.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// ConversationState is the unit persisted and restored per session id.
// It is mutated exclusively by the intake machine.
type ConversationState struct {
	SessionID       string         `json:"session_id"`
	Status          Status         `json:"status"`
	Profile         Profile        `json:"profile"`
	LastFieldAsked  string         `json:"last_field_asked,omitempty"`
	JustProcessed   bool           `json:"just_processed"`
	Attempts        map[string]int `json:"attempts_per_field"`
	Errors          []FieldError   `json:"errors"`
	UserConfirmed   bool           `json:"user_confirmed"`
	SummaryText     string         `json:"summary_text,omitempty"`
	SummaryFallback bool           `json:"summary_fallback,omitempty"`
	RecordID        string         `json:"record_id,omitempty"`
	Messages        []Message      `json:"messages"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Status:    StatusCollecting,
		Profile:   Profile{},
		Attempts:  map[string]int{},
		Errors:    []FieldError{},
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastMessage returns the newest message in history, if any.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// HasUnprocessedUserMessage reports whether the newest message is a user reply
// to an assistant turn that the machine has not consumed yet.
func (s *ConversationState) HasUnprocessedUserMessage() bool {
	if s.JustProcessed || len(s.Messages) < 2 {
		return false
	}
	last := s.Messages[len(s.Messages)-1]
	prev := s.Messages[len(s.Messages)-2]
	return last.Role == RoleUser && prev.Role == RoleAssistant
}

// TurnEventKind labels incremental events emitted while a turn advances.
type TurnEventKind string

const (
	TurnEventStatus  TurnEventKind = "status"
	TurnEventMessage TurnEventKind = "message"
	TurnEventProfile TurnEventKind = "profile"
)

type TurnEvent struct {
	Kind    TurnEventKind `json:"kind"`
	Status  Status        `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
	Profile Profile       `json:"profile,omitempty"`
}

// TurnResult is the transport-facing outcome of one turn.
type TurnResult struct {
	SessionID       string      `json:"session_id"`
	Message         string      `json:"message,omitempty"`
	Status          Status      `json:"status"`
	Profile         Profile     `json:"profile"`
	SummaryFallback bool        `json:"summary_fallback,omitempty"`
	Events          []TurnEvent `json:"-"`
}
