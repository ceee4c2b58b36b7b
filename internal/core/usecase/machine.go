package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/fieldrules"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

const (
	msgWelcome = "Hi! I'm here to help collect your information. Let's get started!"
	msgHandoff = "I'm having trouble confirming one of the required details after multiple attempts. " +
		"Would you like to try again, or should we continue without it?"
	msgClarifyEdit = "Got it - which field should I update, and what's the new value? " +
		"For example: \"change email to jane@newmail.com\"."
	msgNotProvided = "(not provided)"
)

// confirmWords are the trimmed, lowercased replies accepted as confirmation.
var confirmWords = map[string]struct{}{
	"yes": {}, "y": {}, "confirm": {}, "correct": {},
	"ok": {}, "okay": {}, "looks good": {},
}

// Machine applies intake transitions to one conversation state. It holds no
// per-conversation data itself; a single Machine serves all sessions.
type Machine struct {
	schema    domain.FieldSchema
	extractor ports.FieldExtractor
}

func NewMachine(schema domain.FieldSchema, extractor ports.FieldExtractor) *Machine {
	return &Machine{schema: schema, extractor: extractor}
}

// Advance drives the machine until it suspends on an outbound message, needs
// the summarization step (generating_summary with a confirmed profile), or
// reaches a terminal state. Invoking it again on an unchanged state is a no-op.
func (m *Machine) Advance(ctx context.Context, st *domain.ConversationState) []domain.TurnEvent {
	events := make([]domain.TurnEvent, 0, 4)

	for {
		if st.Status.IsTerminal() {
			return events
		}

		if st.HasUnprocessedUserMessage() {
			last, _ := st.LastMessage()
			switch st.Status {
			case domain.StatusConfirming:
				more, suspended := m.parseConfirmation(ctx, st, last.Content)
				events = append(events, more...)
				if suspended {
					return events
				}
				continue
			case domain.StatusCollecting:
				if st.LastFieldAsked != "" {
					more, suspended := m.processAnswer(ctx, st, last.Content)
					events = append(events, more...)
					if suspended {
						return events
					}
					continue
				}
			}
		}

		if st.Status == domain.StatusGeneratingSummary && st.UserConfirmed {
			// Summarization is a backend step owned by the caller.
			return events
		}

		// A trailing assistant message means the machine already suspended on
		// a question; re-advancing an unchanged state emits nothing.
		if last, ok := st.LastMessage(); ok && last.Role == domain.RoleAssistant {
			return events
		}

		missing := m.schema.Missing(st.Profile)
		if len(missing) > 0 {
			return append(events, m.askNext(st, missing[0])...)
		}
		return append(events, m.renderConfirmation(st)...)
	}
}

// askNext emits one question for the earliest missing field and suspends.
func (m *Machine) askNext(st *domain.ConversationState, field string) []domain.TurnEvent {
	spec, _ := m.schema.Spec(field)
	question := spec.Question
	if question == "" {
		question = fmt.Sprintf("What's your %s?", field)
	}
	if hint := m.latestErrorHint(st, field); hint != "" {
		question += "\n\nNote: " + hint
	}
	if len(st.Messages) == 0 {
		question = msgWelcome + "\n\n" + question
	}

	st.LastFieldAsked = field
	st.Status = domain.StatusCollecting
	st.JustProcessed = false
	appendAssistantMessage(st, question)

	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventMessage, Message: question},
	}
}

// processAnswer consumes the newest user message against the pending question.
func (m *Machine) processAnswer(ctx context.Context, st *domain.ConversationState, text string) ([]domain.TurnEvent, bool) {
	text = strings.TrimSpace(text)
	candidates := m.extract(ctx, text, st.LastFieldAsked, st.Profile)

	// An unparseable answer still fills the field that was asked for.
	if st.LastFieldAsked != "" && text != "" {
		if _, ok := candidates[st.LastFieldAsked]; !ok {
			candidates[st.LastFieldAsked] = text
		}
	}

	st.JustProcessed = true

	// Schema order keeps batch application deterministic. Updates applied
	// before a required field exhausts its attempts are retained.
	for _, field := range m.schema.FieldNames() {
		raw, ok := candidates[field]
		if !ok {
			continue
		}
		value, err := fieldrules.Apply(m.schema, field, raw)
		if err == nil {
			st.Profile[field] = value
			continue
		}
		m.recordFailure(st, field, err)
		if m.exhausted(st, field) {
			return m.escalate(st), true
		}
	}

	if len(m.schema.Missing(st.Profile)) > 0 {
		st.Status = domain.StatusCollecting
	} else {
		st.Status = domain.StatusConfirming
	}
	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventProfile, Profile: st.Profile.Clone()},
	}, false
}

// renderConfirmation shows the collected profile and suspends for a yes/edit reply.
func (m *Machine) renderConfirmation(st *domain.ConversationState) []domain.TurnEvent {
	lines := []string{"Please confirm these details:"}
	for _, spec := range m.schema.Required {
		lines = append(lines, fmt.Sprintf("- %s: %s", titleCase(spec.Name), st.Profile[spec.Name]))
	}
	for _, spec := range m.schema.Optional {
		value := st.Profile[spec.Name]
		if value == "" || value == domain.SkippedValue {
			value = msgNotProvided
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", titleCase(spec.Name), value))
	}
	lines = append(lines, "", `Reply "yes" to confirm, or tell me what to change (e.g., "change email to ...").`)
	content := strings.Join(lines, "\n")

	st.Status = domain.StatusConfirming
	st.JustProcessed = false
	appendAssistantMessage(st, content)

	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventMessage, Message: content},
	}
}

// parseConfirmation consumes the reply to a confirmation render: either an
// acceptance or a free-text edit request.
func (m *Machine) parseConfirmation(ctx context.Context, st *domain.ConversationState, text string) ([]domain.TurnEvent, bool) {
	st.JustProcessed = true

	reply := strings.ToLower(strings.TrimSpace(text))
	if _, ok := confirmWords[reply]; ok {
		st.UserConfirmed = true
		st.Status = domain.StatusGeneratingSummary
		return []domain.TurnEvent{{Kind: domain.TurnEventStatus, Status: st.Status}}, false
	}

	candidates := m.extract(ctx, text, "", st.Profile)
	if len(candidates) == 0 {
		appendAssistantMessage(st, msgClarifyEdit)
		st.Status = domain.StatusConfirming
		return []domain.TurnEvent{{Kind: domain.TurnEventMessage, Message: msgClarifyEdit}}, true
	}

	for _, field := range m.schema.FieldNames() {
		raw, ok := candidates[field]
		if !ok {
			continue
		}
		value, err := fieldrules.Apply(m.schema, field, raw)
		if err == nil {
			st.Profile[field] = value
			continue
		}
		m.recordFailure(st, field, err)
		if m.exhausted(st, field) {
			return m.escalate(st), true
		}
		// Rejected edits force the field back through collection with an
		// inline explanation standing in for the re-ask.
		content := fmt.Sprintf("That %s looks invalid. %s Please try again.", field, err.Error())
		appendAssistantMessage(st, content)
		st.Status = domain.StatusCollecting
		st.LastFieldAsked = field
		st.UserConfirmed = false
		return []domain.TurnEvent{
			{Kind: domain.TurnEventStatus, Status: st.Status},
			{Kind: domain.TurnEventMessage, Message: content},
		}, true
	}

	st.UserConfirmed = false
	if len(m.schema.Missing(st.Profile)) > 0 {
		st.Status = domain.StatusCollecting
	} else {
		st.Status = domain.StatusConfirming
	}
	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventProfile, Profile: st.Profile.Clone()},
	}, false
}

// extract shields the machine from extractor failures: a broken capability
// degrades to "no candidates", never to a machine fault.
func (m *Machine) extract(ctx context.Context, text, pendingField string, known domain.Profile) map[string]string {
	candidates, err := m.extractor.Extract(ctx, text, pendingField, known)
	if err != nil || candidates == nil {
		return map[string]string{}
	}
	return candidates
}

func (m *Machine) recordFailure(st *domain.ConversationState, field string, cause error) {
	st.Errors = append(st.Errors, domain.FieldError{Field: field, Reason: cause.Error()})
	st.Attempts[field]++
}

func (m *Machine) exhausted(st *domain.ConversationState, field string) bool {
	return m.schema.IsRequired(field) && st.Attempts[field] >= m.schema.MaxAttempts
}

func (m *Machine) escalate(st *domain.ConversationState) []domain.TurnEvent {
	st.Status = domain.StatusHandoff
	appendAssistantMessage(st, msgHandoff)
	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventMessage, Message: msgHandoff},
	}
}

func (m *Machine) latestErrorHint(st *domain.ConversationState, field string) string {
	for i := len(st.Errors) - 1; i >= 0; i-- {
		if st.Errors[i].Field == field {
			return st.Errors[i].Reason
		}
	}
	return ""
}

func appendAssistantMessage(st *domain.ConversationState, content string) {
	st.Messages = append(st.Messages, domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

func titleCase(field string) string {
	runes := []rune(field)
	if len(runes) == 0 {
		return field
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
