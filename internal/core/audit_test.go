package core

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestFileAuditor_WritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.ndjson")
	a, err := NewFileAuditor(path)
	if err != nil {
		t.Fatalf("NewFileAuditor: %v", err)
	}

	ctx := context.Background()
	e1 := newAuditEntry(ctx, ActionIngest, "s1")
	e1.FileName = "sales.csv"
	e1.Rows, e1.Columns = 10, 3
	a.Record(ctx, e1)
	a.Record(ctx, newAuditEntry(ctx, ActionExport, "s1"))

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		got = append(got, m)
	}
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0]["action"] != "ingest" || got[0]["file_name"] != "sales.csv" {
		t.Errorf("first entry = %v", got[0])
	}
	if got[0]["rows"] != float64(10) {
		t.Errorf("rows = %v, want 10", got[0]["rows"])
	}
	if got[1]["action"] != "export" {
		t.Errorf("second entry action = %v", got[1]["action"])
	}
}

func TestNoopAuditor(t *testing.T) {
	var a Auditor = NoopAuditor{}
	a.Record(context.Background(), AuditEntry{})
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

func TestPgAuditor_CreatesTableAndInserts(t *testing.T) {
	db := &fakeDB{}
	a, err := NewPgAuditor(context.Background(), db)
	if err != nil {
		t.Fatalf("NewPgAuditor: %v", err)
	}
	if len(db.calls) != 2 || !strings.Contains(db.calls[0].sql, "CREATE TABLE IF NOT EXISTS dataset_activity") {
		t.Fatalf("setup calls = %+v", db.calls)
	}

	e := newAuditEntry(context.Background(), ActionEditCommit, "s9")
	e.Detail = "remove duplicate rows"
	a.Record(context.Background(), e)

	insert := db.calls[len(db.calls)-1]
	if !strings.Contains(insert.sql, "INSERT INTO dataset_activity") {
		t.Fatalf("last call = %q", insert.sql)
	}
	if len(insert.args) != 10 {
		t.Fatalf("insert args = %d, want 10", len(insert.args))
	}
	if insert.args[1] != "edit_commit" || insert.args[2] != "s9" {
		t.Errorf("action/session args = %v/%v", insert.args[1], insert.args[2])
	}
}

func TestPgAuditor_SetupError(t *testing.T) {
	db := &fakeDB{err: errors.New("permission denied")}
	if _, err := NewPgAuditor(context.Background(), db); err == nil {
		t.Error("expected setup error")
	}
}

func TestPgAuditor_RecordErrorIsSwallowed(t *testing.T) {
	db := &fakeDB{}
	a, err := NewPgAuditor(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	db.err = errors.New("connection reset")
	a.Record(context.Background(), newAuditEntry(context.Background(), ActionExport, "s"))
}
