package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

// TurnUseCase orchestrates one conversation turn: load state, let the machine
// advance, run the summarization step when the machine requests it, persist,
// and hand the per-turn events to the transport.
type TurnUseCase struct {
	sessions ports.SessionStore
	machine  *Machine
	summary  *SummaryStep
	queue    ports.LeadQueue
	logger   *slog.Logger
}

// NewTurnUseCase wires the turn pipeline. queue may be nil when no worker is
// deployed; completion then simply skips the hand-off publish.
func NewTurnUseCase(
	sessions ports.SessionStore,
	machine *Machine,
	summary *SummaryStep,
	queue ports.LeadQueue,
	logger *slog.Logger,
) *TurnUseCase {
	return &TurnUseCase{
		sessions: sessions,
		machine:  machine,
		summary:  summary,
		queue:    queue,
		logger:   logger,
	}
}

func (uc *TurnUseCase) StartSession(ctx context.Context) (*domain.TurnResult, error) {
	st := domain.NewConversationState(uuid.NewString(), time.Now().UTC())
	events := uc.machine.Advance(ctx, st)

	if err := uc.sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	uc.logger.Info("session started", slog.String("session_id", st.SessionID))
	return buildTurnResult(st, events), nil
}

func (uc *TurnUseCase) HandleTurn(ctx context.Context, sessionID, message string) (*domain.TurnResult, error) {
	message = strings.TrimSpace(message)

	var st *domain.ConversationState
	if sessionID == "" {
		if message == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "handle turn", errors.New("message is required"))
		}
		st = domain.NewConversationState(uuid.NewString(), time.Now().UTC())
	} else {
		var err error
		st, err = uc.sessions.Load(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	if message != "" {
		st.Messages = append(st.Messages, domain.Message{
			ID:        uuid.NewString(),
			Role:      domain.RoleUser,
			Content:   message,
			CreatedAt: time.Now().UTC(),
		})
		st.JustProcessed = false
	}

	events := uc.machine.Advance(ctx, st)
	if st.Status == domain.StatusGeneratingSummary && st.UserConfirmed && st.SummaryText == "" {
		events = append(events, uc.complete(ctx, st)...)
	}

	st.UpdatedAt = time.Now().UTC()
	if err := uc.sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return buildTurnResult(st, events), nil
}

func (uc *TurnUseCase) Snapshot(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	st, err := uc.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	result := &domain.TurnResult{
		SessionID: st.SessionID,
		Status:    st.Status,
		Profile:   st.Profile.Clone(),
	}
	if last, ok := st.LastMessage(); ok && last.Role == domain.RoleAssistant {
		result.Message = last.Content
	}
	return result, nil
}

func (uc *TurnUseCase) Reset(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	uc.logger.Info("session reset", slog.String("session_id", sessionID))
	return nil
}

// complete runs the summarization step and closes the conversation. The step
// cannot fail, so a confirmed profile always reaches completed.
func (uc *TurnUseCase) complete(ctx context.Context, st *domain.ConversationState) []domain.TurnEvent {
	text, usedFallback := uc.summary.Produce(ctx, st.Profile)
	st.SummaryText = text
	st.SummaryFallback = usedFallback
	st.Status = domain.StatusCompleted
	st.JustProcessed = true

	final := "Profile saved successfully!\n\n" + text + "\n\nThank you - we'll be in touch shortly."
	appendAssistantMessage(st, final)

	uc.logger.Info("session completed",
		slog.String("session_id", st.SessionID),
		slog.Bool("summary_fallback", usedFallback),
	)

	if uc.queue != nil {
		if err := uc.queue.PublishLeadCompleted(ctx, st.SessionID); err != nil {
			// Completion never depends on the downstream sink.
			uc.logger.Warn("lead publish failed",
				slog.String("session_id", st.SessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	return []domain.TurnEvent{
		{Kind: domain.TurnEventStatus, Status: st.Status},
		{Kind: domain.TurnEventMessage, Message: final},
		{Kind: domain.TurnEventProfile, Profile: st.Profile.Clone()},
	}
}

func buildTurnResult(st *domain.ConversationState, events []domain.TurnEvent) *domain.TurnResult {
	result := &domain.TurnResult{
		SessionID:       st.SessionID,
		Status:          st.Status,
		Profile:         st.Profile.Clone(),
		SummaryFallback: st.SummaryFallback,
		Events:          events,
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == domain.TurnEventMessage {
			result.Message = events[i].Message
			break
		}
	}
	return result
}
