// Package telemetry defines small Logger/Metrics/Tracer interfaces with
// Clue/OTEL-backed and no-op implementations. The engine's mutation loop
// never depends on this package directly (§5: operations run as a
// synchronous critical section and must not take a dependency that could
// block or allocate unexpectedly); only a Logger is threaded through, at the
// transaction manager and UCL executor boundaries, defaulting to the no-op
// implementation below. No engine package records metrics or starts spans.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used across the transaction manager's
// commit/rollback boundary and the UCL executor's per-command dispatch.
// Implementations typically delegate to Clue, but the interface stays small
// so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for engine instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so callers stay agnostic of the underlying
// OTEL provider. operation.Execute, transaction.Manager.Commit and
// ucl.Executor.Run do not start spans themselves.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}
