package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func TestClueTracerStartEndRecordsSpan(t *testing.T) {
	rec := setupTracing(t)
	tracer := NewClueTracer()

	ctx, span := tracer.Start(context.Background(), "transaction.commit")
	span.AddEvent("buffered_op_applied", "kind", "edit")
	span.SetStatus(codes.Ok, "")
	span.End()

	require.NotNil(t, ctx)
	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "transaction.commit", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestClueTracerRecordErrorSetsErrorStatus(t *testing.T) {
	rec := setupTracing(t)
	tracer := NewClueTracer()

	_, span := tracer.Start(context.Background(), "ucl.executor.run")
	span.RecordError(errors.New("atomic block aborted"))
	span.SetStatus(codes.Error, "atomic block aborted")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestClueTracerSpanFromContextReturnsActiveSpan(t *testing.T) {
	setupTracing(t)
	tracer := NewClueTracer()

	ctx, started := tracer.Start(context.Background(), "outer")
	defer started.End()

	current := tracer.Span(ctx)
	assert.NotNil(t, current)
}

func TestClueMetricsIncCounterRecordsSum(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	prev := otel.GetMeterProvider()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		otel.SetMeterProvider(prev)
	})

	m := NewClueMetrics()
	m.IncCounter("ucp.operations.applied", 3, "kind", "append")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)
	assert.Equal(t, "ucp.operations.applied", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestClueMetricsRecordTimerAndGaugeDoNotPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m := NewClueMetrics()
	assert.NotPanics(t, func() {
		m.RecordTimer("ucp.transaction.commit_duration", 0, "state", "committed")
		m.RecordGauge("ucp.document.block_count", 12)
	})
}
