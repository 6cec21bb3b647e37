package telemetry

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/JonMunkholm/csvdash/internal/core"
)

const meterName = "github.com/JonMunkholm/csvdash"

// Instruments holds the dashboard's metric instruments. It implements
// core.Instrumentation.
type Instruments struct {
	IngestCount    metric.Int64Counter
	IngestDuration metric.Float64Histogram
	IngestErrors   metric.Int64Counter
	RowsParsed     metric.Int64Counter
	EditCount      metric.Int64Counter
	ExportCount    metric.Int64Counter

	activeSessions atomic.Int64
}

var _ core.Instrumentation = (*Instruments)(nil)

// NewInstruments creates instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// Instrument constructors fall back to noop instruments on error.
	ingestCount, _ := meter.Int64Counter("csvdash.ingest.count",
		metric.WithDescription("Uploads parsed successfully"),
	)
	ingestDuration, _ := meter.Float64Histogram("csvdash.ingest.duration",
		metric.WithDescription("Upload parse duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	ingestErrors, _ := meter.Int64Counter("csvdash.ingest.errors",
		metric.WithDescription("Uploads rejected"),
	)
	rowsParsed, _ := meter.Int64Counter("csvdash.ingest.rows",
		metric.WithDescription("Data rows parsed"),
	)
	editCount, _ := meter.Int64Counter("csvdash.edit.count",
		metric.WithDescription("Cleaning edits previewed or committed"),
	)
	exportCount, _ := meter.Int64Counter("csvdash.export.count",
		metric.WithDescription("Dataset downloads"),
	)

	inst := &Instruments{
		IngestCount:    ingestCount,
		IngestDuration: ingestDuration,
		IngestErrors:   ingestErrors,
		RowsParsed:     rowsParsed,
		EditCount:      editCount,
		ExportCount:    exportCount,
	}

	_, _ = meter.Int64ObservableGauge("csvdash.sessions.active",
		metric.WithDescription("Sessions held in memory"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(inst.activeSessions.Load())
			return nil
		}),
	)

	return inst
}

func (i *Instruments) RecordIngest(ctx context.Context, ms float64, rows int) {
	i.IngestCount.Add(ctx, 1)
	i.IngestDuration.Record(ctx, ms)
	i.RowsParsed.Add(ctx, int64(rows))
}

func (i *Instruments) IncrementIngestErrors(ctx context.Context) {
	i.IngestErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementEdits(ctx context.Context, kind core.EditKind, committed bool) {
	i.EditCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Bool("committed", committed),
	))
}

func (i *Instruments) IncrementExports(ctx context.Context, format string) {
	i.ExportCount.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

func (i *Instruments) SetActiveSessions(n int) {
	i.activeSessions.Store(int64(n))
}
