package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

var (
	ErrNoDataset      = errors.New("no dataset loaded")
	ErrNoPending      = errors.New("no pending edit")
	ErrDatasetChanged = errors.New("dataset changed since preview")
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxFileSize     int64
	MaxConcurrent   int
	MaxWait         time.Duration
	SessionTTL      time.Duration
	Auditor         Auditor
	Instrumentation Instrumentation
	Tracer          trace.Tracer
}

// Service runs the dataset workflow for every browser session: ingest,
// preview an edit, apply or cancel it, export.
type Service struct {
	sessions    *SessionStore
	limiter     *IngestLimiter
	maxFileSize int64
	auditor     Auditor
	inst        Instrumentation
	tracer      trace.Tracer
}

// Upload is an incoming file.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64 // -1 when unknown
}

// NewService creates a Service with an empty session store.
func NewService(opts Options) *Service {
	if opts.Auditor == nil {
		opts.Auditor = NoopAuditor{}
	}
	if opts.Instrumentation == nil {
		opts.Instrumentation = NoopInstrumentation{}
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &Service{
		sessions:    NewSessionStore(opts.SessionTTL),
		limiter:     NewIngestLimiter(opts.MaxConcurrent, opts.MaxWait),
		maxFileSize: opts.MaxFileSize,
		auditor:     opts.Auditor,
		inst:        opts.Instrumentation,
		tracer:      opts.Tracer,
	}
}

// Limiter exposes the ingest limiter for shutdown and health checks.
func (s *Service) Limiter() *IngestLimiter { return s.limiter }

// Sessions exposes the store for the janitor and tests.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Ingest parses an upload and makes it the session's dataset, dropping any
// pending edit. On failure the previous dataset is kept.
func (s *Service) Ingest(ctx context.Context, sessionID string, up Upload) (*dataset.Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "core.Ingest", trace.WithAttributes(
		attribute.String("file.name", up.FileName),
		attribute.Int64("file.size", up.Size),
	))
	defer span.End()

	start := time.Now()
	ds, err := s.parseUpload(ctx, up)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementIngestErrors(ctx)

		uerr := NewUserError(err)
		entry := newAuditEntry(ctx, ActionIngestFailed, sessionID)
		entry.FileName = up.FileName
		entry.Detail = uerr.User.Code + ": " + err.Error()
		s.auditor.Record(ctx, entry)
		return nil, uerr
	}

	err = s.sessions.Update(sessionID, func(sess *Session) error {
		sess.Dataset = ds
		sess.FileName = up.FileName
		sess.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.inst.SetActiveSessions(s.sessions.Len())

	elapsed := time.Since(start)
	s.inst.RecordIngest(ctx, float64(elapsed.Milliseconds()), ds.Shape[0])
	span.SetAttributes(attribute.Int("dataset.rows", ds.Shape[0]), attribute.Int("dataset.columns", ds.Shape[1]))

	slog.InfoContext(ctx, "dataset ingested",
		"session_id", sessionID,
		"file", up.FileName,
		"rows", ds.Shape[0],
		"columns", ds.Shape[1],
		"duplicates", ds.Duplicates,
		"duration_ms", elapsed.Milliseconds(),
	)
	if dups := ds.DuplicateHeaders(); len(dups) > 0 {
		slog.WarnContext(ctx, "duplicate header names", "session_id", sessionID, "headers", dups)
	}

	entry := newAuditEntry(ctx, ActionIngest, sessionID)
	entry.FileName = up.FileName
	entry.Rows, entry.Columns = ds.Shape[0], ds.Shape[1]
	s.auditor.Record(ctx, entry)

	return ds, nil
}

func (s *Service) parseUpload(ctx context.Context, up Upload) (*dataset.Dataset, error) {
	if up.Body == nil {
		return nil, ErrNoFile
	}
	if err := dataset.CheckFileType(up.FileName, up.ContentType); err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && up.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", dataset.ErrFileTooLarge, up.Size, s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return dataset.ParseReader(up.Body, s.maxFileSize)
}

// Current returns the session's dataset of record.
func (s *Service) Current(sessionID string) (*dataset.Dataset, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok || sess.Dataset == nil {
		return nil, ErrNoDataset
	}
	return sess.Dataset, nil
}

// Session returns a copy of the session state.
func (s *Service) Session(sessionID string) (Session, bool) {
	return s.sessions.Get(sessionID)
}

// PreviewRemoveColumns stages a dataset without the named columns.
func (s *Service) PreviewRemoveColumns(ctx context.Context, sessionID string, columns []string) (*PendingEdit, error) {
	return s.preview(ctx, sessionID, EditRemoveColumns, "remove "+strings.Join(columns, ", "),
		func(ds *dataset.Dataset) (*dataset.Dataset, error) {
			return dataset.RemoveColumns(ds, columns), nil
		})
}

// PreviewRemoveDuplicates stages a dataset keeping the first copy of each row.
func (s *Service) PreviewRemoveDuplicates(ctx context.Context, sessionID string) (*PendingEdit, error) {
	return s.preview(ctx, sessionID, EditRemoveDuplicates, "remove duplicate rows",
		func(ds *dataset.Dataset) (*dataset.Dataset, error) {
			return dataset.RemoveDuplicates(ds), nil
		})
}

// PreviewFill stages a dataset with missing values filled. A rule that does
// not suit its column rejects the whole preview with a *dataset.FillError.
func (s *Service) PreviewFill(ctx context.Context, sessionID string, rules map[string]dataset.FillRule) (*PendingEdit, error) {
	return s.preview(ctx, sessionID, EditFillMissing, describeFill(rules),
		func(ds *dataset.Dataset) (*dataset.Dataset, error) {
			return dataset.FillMissingStrict(ds, rules)
		})
}

func (s *Service) preview(ctx context.Context, sessionID string, kind EditKind, detail string, edit func(*dataset.Dataset) (*dataset.Dataset, error)) (*PendingEdit, error) {
	ctx, span := s.tracer.Start(ctx, "core.Preview", trace.WithAttributes(attribute.String("edit.kind", string(kind))))
	defer span.End()

	base, err := s.Current(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := edit(base)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pending := &PendingEdit{
		Kind:      kind,
		Detail:    detail,
		Result:    result,
		Base:      base,
		CreatedAt: time.Now().UTC(),
	}

	err = s.sessions.Update(sessionID, func(sess *Session) error {
		if sess.Dataset != base {
			return ErrDatasetChanged
		}
		sess.Pending = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inst.IncrementEdits(ctx, kind, false)
	entry := newAuditEntry(ctx, ActionEditPreview, sessionID)
	entry.Rows, entry.Columns = result.Shape[0], result.Shape[1]
	entry.Detail = detail
	s.auditor.Record(ctx, entry)

	return pending, nil
}

// Pending returns the staged edit.
func (s *Service) Pending(sessionID string) (*PendingEdit, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok || sess.Dataset == nil {
		return nil, ErrNoDataset
	}
	if sess.Pending == nil {
		return nil, ErrNoPending
	}
	return sess.Pending, nil
}

// Commit replaces the dataset of record with the staged result.
func (s *Service) Commit(ctx context.Context, sessionID string) (*dataset.Dataset, error) {
	var committed *PendingEdit
	err := s.sessions.Update(sessionID, func(sess *Session) error {
		if sess.Dataset == nil {
			return ErrNoDataset
		}
		if sess.Pending == nil {
			return ErrNoPending
		}
		if sess.Pending.Base != sess.Dataset {
			return ErrDatasetChanged
		}
		committed = sess.Pending
		sess.Dataset = committed.Result
		sess.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inst.IncrementEdits(ctx, committed.Kind, true)
	slog.InfoContext(ctx, "edit applied",
		"session_id", sessionID,
		"kind", committed.Kind,
		"rows", committed.Result.Shape[0],
		"columns", committed.Result.Shape[1],
	)

	entry := newAuditEntry(ctx, ActionEditCommit, sessionID)
	entry.Rows, entry.Columns = committed.Result.Shape[0], committed.Result.Shape[1]
	entry.Detail = committed.Detail
	s.auditor.Record(ctx, entry)

	return committed.Result, nil
}

// Cancel discards the staged edit. It reports whether one existed.
func (s *Service) Cancel(ctx context.Context, sessionID string) bool {
	var discarded *PendingEdit
	err := s.sessions.UpdateExisting(sessionID, func(sess *Session) error {
		if sess.Pending == nil {
			return ErrNoPending
		}
		discarded = sess.Pending
		sess.Pending = nil
		return nil
	})
	if err != nil {
		return false
	}

	entry := newAuditEntry(ctx, ActionEditCancel, sessionID)
	entry.Detail = discarded.Detail
	s.auditor.Record(ctx, entry)
	return true
}

// EndSession drops all state held for the session.
func (s *Service) EndSession(ctx context.Context, sessionID string) {
	if !s.sessions.Delete(sessionID) {
		return
	}
	s.inst.SetActiveSessions(s.sessions.Len())
	s.auditor.Record(ctx, newAuditEntry(ctx, ActionSessionEnd, sessionID))
}

// Export writes the session's dataset in the given format.
func (s *Service) Export(ctx context.Context, sessionID string, format dataset.Format, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "core.Export", trace.WithAttributes(attribute.String("export.format", string(format))))
	defer span.End()

	ds, err := s.Current(sessionID)
	if err != nil {
		return err
	}
	if err := dataset.Write(w, ds, format); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("export %s: %w", format, err)
	}

	s.inst.IncrementExports(ctx, string(format))
	entry := newAuditEntry(ctx, ActionExport, sessionID)
	entry.Rows, entry.Columns = ds.Shape[0], ds.Shape[1]
	entry.Detail = string(format)
	s.auditor.Record(ctx, entry)
	return nil
}

func describeFill(rules map[string]dataset.FillRule) string {
	parts := make([]string, 0, len(rules))
	for col, r := range rules {
		p := col + "=" + string(r.Method)
		if r.Method == dataset.FillConstant {
			p += ":" + r.Value
		}
		parts = append(parts, p)
	}
	slices.Sort(parts)
	return "fill " + strings.Join(parts, ", ")
}
