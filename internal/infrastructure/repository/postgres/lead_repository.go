package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, leadSchemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	// session_id is unique so redelivered completion events archive once.
	const query = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	profile JSONB NOT NULL,
	summary TEXT NOT NULL,
	summary_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	sink_record_id TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *LeadRepository) CreateLead(ctx context.Context, lead *domain.Lead) error {
	profileJSON, err := json.Marshal(lead.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO leads (id, session_id, profile, summary, summary_fallback, sink_record_id, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
ON CONFLICT (session_id) DO NOTHING
`, lead.ID, lead.SessionID, profileJSON, lead.Summary, lead.SummaryFallback, lead.SinkRecordID, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) ListLeads(ctx context.Context, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, profile, summary, summary_fallback, COALESCE(sink_record_id, ''), created_at
FROM leads
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		var lead domain.Lead
		var profileRaw []byte
		if err := rows.Scan(
			&lead.ID, &lead.SessionID, &profileRaw, &lead.Summary,
			&lead.SummaryFallback, &lead.SinkRecordID, &lead.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		if err := json.Unmarshal(profileRaw, &lead.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}
