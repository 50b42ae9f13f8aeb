package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one reconciliation or upload step and tags its log lines.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan opens a span below whatever span the context already carries.
// The first span on a context also mints the trace id.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	parent := traceFrom(ctx)
	current := trace{traceID: parent.traceID, spanID: uuid.NewString()}

	attrs := []any{slog.String("span_id", current.spanID), slog.String("span_name", name)}
	if current.traceID == "" {
		current.traceID = uuid.NewString()
		attrs = append(attrs, slog.String("trace_id", current.traceID))
	}
	if parent.spanID != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent.spanID))
	}

	logger := FromContext(ctx).With(attrs...)
	ctx = WithLogger(withTrace(ctx, current), logger)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End emits a debug completion entry with the elapsed time.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Debug("span completed", slog.Duration("duration", time.Since(s.start)))
}

// Name reports the span name.
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}
