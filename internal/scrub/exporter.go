package scrub

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// exporter wraps a SpanExporter and redacts credential material from span
// attributes before they leave the process. Redaction runs inside the batch
// export goroutine, never on the traced call path.
type exporter struct {
	wrapped sdktrace.SpanExporter
}

// NewExporter returns a SpanExporter that redacts spans before delegating to
// the wrapped exporter.
func NewExporter(wrapped sdktrace.SpanExporter) sdktrace.SpanExporter {
	return &exporter{wrapped: wrapped}
}

// ExportSpans redacts credential patterns from span attributes, event
// attributes, and status descriptions, then delegates to the wrapped
// exporter. Clean spans pass through untouched.
func (e *exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	clean := make([]sdktrace.ReadOnlySpan, len(spans))
	for i, s := range spans {
		clean[i] = scrubSpan(s)
	}
	return e.wrapped.ExportSpans(ctx, clean)
}

// Shutdown delegates to the wrapped exporter.
func (e *exporter) Shutdown(ctx context.Context) error {
	return e.wrapped.Shutdown(ctx)
}

func scrubSpan(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
	if !spanNeedsScrubbing(s) {
		return s
	}

	stub := tracetest.SpanStubFromReadOnlySpan(s)
	stub.Attributes = scrubAttributes(stub.Attributes)

	for i, event := range stub.Events {
		stub.Events[i].Attributes = scrubAttributes(event.Attributes)
	}

	if HasCredential(stub.Status.Description) {
		stub.Status.Description = Redact(stub.Status.Description)
	}

	return stub.Snapshot()
}

func spanNeedsScrubbing(s sdktrace.ReadOnlySpan) bool {
	for _, a := range s.Attributes() {
		if a.Value.Type() == attribute.STRING && HasCredential(a.Value.AsString()) {
			return true
		}
	}
	for _, event := range s.Events() {
		for _, a := range event.Attributes {
			if a.Value.Type() == attribute.STRING && HasCredential(a.Value.AsString()) {
				return true
			}
		}
	}
	return HasCredential(s.Status().Description)
}

func scrubAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	result := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		if a.Value.Type() == attribute.STRING {
			val := a.Value.AsString()
			if HasCredential(val) {
				result[i] = attribute.String(string(a.Key), Redact(val))
				continue
			}
		}
		result[i] = a
	}
	return result
}
