package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

// FinalizeLeadUseCase runs on the worker side: it takes a completed session,
// pushes the record to the external sink (best effort), and archives the lead.
type FinalizeLeadUseCase struct {
	sessions ports.SessionStore
	leads    ports.LeadStore
	sink     ports.LeadSink
	logger   *slog.Logger
}

// NewFinalizeLeadUseCase wires lead finalization. sink may be nil when the
// external record store is not configured.
func NewFinalizeLeadUseCase(
	sessions ports.SessionStore,
	leads ports.LeadStore,
	sink ports.LeadSink,
	logger *slog.Logger,
) *FinalizeLeadUseCase {
	return &FinalizeLeadUseCase{
		sessions: sessions,
		leads:    leads,
		sink:     sink,
		logger:   logger,
	}
}

func (uc *FinalizeLeadUseCase) FinalizeBySessionID(ctx context.Context, sessionID string) error {
	st, err := uc.sessions.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if st.Status != domain.StatusCompleted {
		return domain.WrapError(domain.ErrInvalidInput, "finalize lead",
			fmt.Errorf("session %s is %s, not completed", sessionID, st.Status))
	}

	recordID := ""
	if uc.sink != nil {
		recordID, err = uc.sink.CreateRecord(ctx, st.Profile, st.SummaryText)
		if err != nil {
			// The sink is best effort: the lead is archived locally either way.
			uc.logger.Warn("lead sink failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			recordID = ""
		}
	}

	lead := &domain.Lead{
		ID:              uuid.NewString(),
		SessionID:       st.SessionID,
		Profile:         st.Profile.Clone(),
		Summary:         st.SummaryText,
		SummaryFallback: st.SummaryFallback,
		SinkRecordID:    recordID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := uc.leads.CreateLead(ctx, lead); err != nil {
		return fmt.Errorf("archive lead: %w", err)
	}

	if recordID != "" && st.RecordID != recordID {
		st.RecordID = recordID
		st.UpdatedAt = time.Now().UTC()
		if err := uc.sessions.Save(ctx, st); err != nil {
			uc.logger.Warn("record id save failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	uc.logger.Info("lead finalized",
		slog.String("session_id", sessionID),
		slog.String("record_id", recordID),
	)
	return nil
}
