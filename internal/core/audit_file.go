package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
)

// FileAuditor appends entries to a file as NDJSON, one object per line.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileAuditor opens path for appending, creating it if needed.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileAuditor{file: f, enc: json.NewEncoder(f)}, nil
}

func (a *FileAuditor) Record(ctx context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enc.Encode(entry); err != nil {
		slog.WarnContext(ctx, "audit write failed", "action", entry.Action, "error", err)
	}
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
