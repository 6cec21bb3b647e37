package core

import "context"

// Instrumentation records dataset workflow metrics.
type Instrumentation interface {
	RecordIngest(ctx context.Context, ms float64, rows int)
	IncrementIngestErrors(ctx context.Context)
	IncrementEdits(ctx context.Context, kind EditKind, committed bool)
	IncrementExports(ctx context.Context, format string)
	SetActiveSessions(n int)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordIngest(context.Context, float64, int)     {}
func (NoopInstrumentation) IncrementIngestErrors(context.Context)          {}
func (NoopInstrumentation) IncrementEdits(context.Context, EditKind, bool) {}
func (NoopInstrumentation) IncrementExports(context.Context, string)       {}
func (NoopInstrumentation) SetActiveSessions(int)                          {}

