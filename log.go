package lumina

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// LogHandlerOption customizes a trace-correlating log handler.
type LogHandlerOption func(*traceLogHandler)

// WithLogEnvironment stamps lumina.environment on records written inside a
// traced call, so log lines can be filtered the same way spans are.
func WithLogEnvironment(env string) LogHandlerOption {
	return func(h *traceLogHandler) {
		if env != "" {
			h.spanAttrs = append(h.spanAttrs, slog.String("lumina.environment", env))
		}
	}
}

// WithLogServiceName stamps lumina.service_name on records written inside a
// traced call.
func WithLogServiceName(name string) LogHandlerOption {
	return func(h *traceLogHandler) {
		if name != "" {
			h.spanAttrs = append(h.spanAttrs, slog.String("lumina.service_name", name))
		}
	}
}

// traceLogHandler joins log lines to exported spans: records written while a
// recording span is active gain trace_id, span_id, and any configured
// lumina.* attributes. Records outside a span pass through untouched.
type traceLogHandler struct {
	inner     slog.Handler
	spanAttrs []slog.Attr
}

// NewTraceLogHandler returns an slog.Handler that injects trace_id and
// span_id from the context's active span into each record. If inner is nil,
// slog.Default().Handler() is used.
func NewTraceLogHandler(inner slog.Handler, opts ...LogHandlerOption) slog.Handler {
	if inner == nil {
		inner = slog.Default().Handler()
	}
	h := &traceLogHandler{inner: inner}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LogHandler returns a trace-correlating handler preconfigured with the
// client's environment and service name, so application log lines carry the
// same identity attributes as the spans they interleave with.
func (c *Client) LogHandler(inner slog.Handler) slog.Handler {
	settings := c.settingsOrDefault()
	return NewTraceLogHandler(inner,
		WithLogEnvironment(settings.Environment),
		WithLogServiceName(settings.ServiceName),
	)
}

func (h *traceLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *traceLogHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.SpanContext().IsValid() && span.IsRecording() {
		sc := span.SpanContext()
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
		record.AddAttrs(h.spanAttrs...)
	}
	return h.inner.Handle(ctx, record)
}

func (h *traceLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceLogHandler{inner: h.inner.WithAttrs(attrs), spanAttrs: h.spanAttrs}
}

func (h *traceLogHandler) WithGroup(name string) slog.Handler {
	return &traceLogHandler{inner: h.inner.WithGroup(name), spanAttrs: h.spanAttrs}
}
