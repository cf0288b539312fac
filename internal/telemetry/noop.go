package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// NopLogger is a no-op implementation of Logger that discards all log
	// messages. It is the default bound into the engine's own packages, so
	// the core never carries a logging dependency.
	NopLogger struct{}

	// NopMetrics is a no-op implementation of Metrics that discards all
	// metrics.
	NopMetrics struct{}

	// NopTracer is a no-op implementation of Tracer that creates no-op
	// spans.
	NopTracer struct{}

	nopSpan struct{}
)

// NewNopLogger constructs a Logger that discards all log messages.
func NewNopLogger() Logger { return NopLogger{} }

// NewNopMetrics constructs a Metrics recorder that discards all metrics.
func NewNopMetrics() Metrics { return NopMetrics{} }

// NewNopTracer constructs a Tracer that creates no-op spans.
func NewNopTracer() Tracer { return NopTracer{} }

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}

func (NopMetrics) IncCounter(string, float64, ...string)        {}
func (NopMetrics) RecordTimer(string, time.Duration, ...string) {}
func (NopMetrics) RecordGauge(string, float64, ...string)       {}

func (NopTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	return ctx, nopSpan{}
}

func (NopTracer) Span(ctx context.Context) Span { return nopSpan{} }

func (nopSpan) End(...trace.SpanEndOption)              {}
func (nopSpan) AddEvent(string, ...any)                 {}
func (nopSpan) SetStatus(codes.Code, string)            {}
func (nopSpan) RecordError(error, ...trace.EventOption) {}
