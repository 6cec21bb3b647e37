package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction names an activity trail event.
type AuditAction string

const (
	ActionIngest       AuditAction = "ingest"
	ActionIngestFailed AuditAction = "ingest_failed"
	ActionEditPreview  AuditAction = "edit_preview"
	ActionEditCommit   AuditAction = "edit_commit"
	ActionEditCancel   AuditAction = "edit_cancel"
	ActionExport       AuditAction = "export"
	ActionSessionEnd   AuditAction = "session_end"
)

// AuditEntry is one activity trail record. It describes what happened to a
// session's dataset; cell values are never recorded.
type AuditEntry struct {
	ID        uuid.UUID   `json:"id"`
	Action    AuditAction `json:"action"`
	SessionID string      `json:"session_id"`
	FileName  string      `json:"file_name,omitempty"`
	Rows      int         `json:"rows"`
	Columns   int         `json:"columns"`
	Detail    string      `json:"detail,omitempty"`
	IPAddress string      `json:"ip,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
	CreatedAt time.Time   `json:"ts"`
}

// Auditor records activity. Record is best-effort and must not fail the
// request that triggered it.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                      { return nil }

// newAuditEntry fills the id, timestamp and client details from ctx.
func newAuditEntry(ctx context.Context, action AuditAction, sessionID string) AuditEntry {
	return AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		SessionID: sessionID,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}
