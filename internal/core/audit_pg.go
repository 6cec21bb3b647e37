package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgxpool.Pool used by PgAuditor.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createActivityTable = `
CREATE TABLE IF NOT EXISTS dataset_activity (
    id          UUID PRIMARY KEY,
    action      TEXT NOT NULL,
    session_id  TEXT NOT NULL,
    file_name   TEXT,
    row_count   INTEGER NOT NULL DEFAULT 0,
    col_count   INTEGER NOT NULL DEFAULT 0,
    detail      TEXT,
    ip_address  TEXT,
    user_agent  TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createActivityIndex = `
CREATE INDEX IF NOT EXISTS idx_dataset_activity_session ON dataset_activity (session_id, created_at)`

const insertActivity = `
INSERT INTO dataset_activity
    (id, action, session_id, file_name, row_count, col_count, detail, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// PgAuditor writes the activity trail to Postgres.
type PgAuditor struct {
	db DBTX
}

// NewPgAuditor ensures the dataset_activity table exists.
func NewPgAuditor(ctx context.Context, db DBTX) (*PgAuditor, error) {
	for _, stmt := range []string{createActivityTable, createActivityIndex} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create dataset_activity: %w", err)
		}
	}
	return &PgAuditor{db: db}, nil
}

func (a *PgAuditor) Record(ctx context.Context, e AuditEntry) {
	_, err := a.db.Exec(ctx, insertActivity,
		pgtype.UUID{Bytes: e.ID, Valid: true},
		string(e.Action),
		e.SessionID,
		toPgText(e.FileName),
		int32(e.Rows),
		int32(e.Columns),
		toPgText(e.Detail),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		slog.WarnContext(ctx, "audit insert failed", "action", e.Action, "error", err)
	}
}

// Close is a no-op; the pool is owned by the caller.
func (a *PgAuditor) Close() error { return nil }

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
