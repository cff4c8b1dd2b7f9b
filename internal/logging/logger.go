// Package logging defines the structured-logging interface used across
// pulsekeeper, with log/slog and zap implementations.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "sample recorded", "user_id", id, "day", day)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn logs unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Backend names accepted by New.
const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// New builds a Logger for the named backend writing JSON to w.
func New(backend string, w io.Writer) (Logger, error) {
	switch backend {
	case "", BackendSlog:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), nil
	case BackendZap:
		return NewZapLogger(w)
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// Nop discards everything. Handy in tests.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }

// withTrace appends the ids of the span active in ctx, so request logs can be
// joined with exported traces.
func withTrace(ctx context.Context, args []any) []any {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return args
	}
	return append(args[:len(args):len(args)], "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}
