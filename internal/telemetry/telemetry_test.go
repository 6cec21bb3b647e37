package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/JonMunkholm/csvdash/internal/core"
)

func TestNoopTracer(t *testing.T) {
	tracer := NoopTracer()
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	assert.NotNil(t, span)
	span.End()
}

func TestNoopInstruments(t *testing.T) {
	inst := NoopInstruments()
	require.NotNil(t, inst)

	ctx := context.Background()
	inst.RecordIngest(ctx, 12.5, 100)
	inst.IncrementIngestErrors(ctx)
	inst.IncrementEdits(ctx, core.EditFillMissing, true)
	inst.IncrementExports(ctx, "csv")
	inst.SetActiveSessions(3)
}

func TestProvider_Shutdown_Nil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestInstruments_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	inst := newInstrumentsFromMeter(mp.Meter("test"))
	ctx := context.Background()
	inst.RecordIngest(ctx, 40, 250)
	inst.RecordIngest(ctx, 60, 50)
	inst.IncrementEdits(ctx, core.EditRemoveColumns, false)
	inst.SetActiveSessions(4)

	metrics := collect(t, reader)

	rows, ok := metrics["csvdash.ingest.rows"]
	require.True(t, ok)
	sum, ok := rows.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(300), sum.DataPoints[0].Value)

	count := metrics["csvdash.ingest.count"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(2), count.DataPoints[0].Value)

	hist, ok := metrics["csvdash.ingest.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)

	gauge, ok := metrics["csvdash.sessions.active"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	assert.Contains(t, metrics, "csvdash.edit.count")
}

func TestSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	svc := core.NewService(core.Options{Tracer: tp.Tracer("test")})
	_, err := svc.Ingest(context.Background(), "s", core.Upload{FileName: "x.txt"})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "core.Ingest", spans[0].Name)
	assert.Equal(t, "Error", spans[0].Status.Code.String())
}
