package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

// Advisory lock keys serializing bootstrap DDL across api/worker startups.
// Each table gets its own key so the two EnsureSchema paths never contend.
const (
	sessionSchemaLockKey int64 = 2026083101
	leadSchemaLockKey    int64 = 2026083102
)

// SessionRepository checkpoints conversation state as one JSONB document per
// session, written after every turn.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, sessionSchemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS intake_sessions (
	session_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	state JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_intake_sessions_status ON intake_sessions(status);
CREATE INDEX IF NOT EXISTS idx_intake_sessions_updated_at ON intake_sessions(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*domain.ConversationState, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT state
FROM intake_sessions
WHERE session_id = $1
`, sessionID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "load session", fmt.Errorf("%s", sessionID))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (r *SessionRepository) Save(ctx context.Context, state *domain.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO intake_sessions (session_id, status, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE
SET status = EXCLUDED.status, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
`, state.SessionID, string(state.Status), raw, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM intake_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSessionNotFound, "delete session", fmt.Errorf("%s", sessionID))
	}
	return nil
}
