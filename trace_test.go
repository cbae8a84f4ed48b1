package lumina

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/use-lumina/lumina-go/semconv"
)

func spanAttr(stub tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range stub.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func mustStringAttr(t *testing.T, stub tracetest.SpanStub, key attribute.Key) string {
	t.Helper()
	v, ok := spanAttr(stub, key)
	if !ok {
		t.Fatalf("span %q missing attribute %q", stub.Name, key)
	}
	return v.AsString()
}

func TestTraceRecordsSpanAndPassesResultThrough(t *testing.T) {
	c, exporter := newTestClient(t, func(o *Overrides) {
		o.CustomerID = ptr("cust-1")
	})

	got, err := Trace(context.Background(), c, "fetch-user", func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Trace() = %q, %v; want ok, nil", got, err)
	}

	spans := flushSpans(t, c, exporter)
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	span := spans[0]

	if span.Name != "fetch-user" {
		t.Fatalf("span name=%q, want fetch-user", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("status=%v, want Ok", span.Status.Code)
	}
	if _, ok := spanAttr(span, semconv.DurationMS); !ok {
		t.Fatal("span missing duration_ms")
	}
	if got := mustStringAttr(t, span, semconv.LuminaEnvironment); got != EnvironmentTest {
		t.Fatalf("environment=%q, want test", got)
	}
	if got := mustStringAttr(t, span, semconv.LuminaServiceName); got != "test-service" {
		t.Fatalf("service_name=%q, want test-service", got)
	}
	if got := mustStringAttr(t, span, semconv.LuminaCustomerID); got != "cust-1" {
		t.Fatalf("customer_id=%q, want cust-1", got)
	}
}

func TestTraceErrorReturnedVerbatim(t *testing.T) {
	c, exporter := newTestClient(t, nil)

	sentinel := errors.New("rate limited")
	got, err := Trace(context.Background(), c, "llm-call", func(context.Context) (string, error) {
		return "", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Trace() error = %v, want the original error", err)
	}
	if got != "" {
		t.Fatalf("Trace() result = %q, want zero value", got)
	}

	spans := flushSpans(t, c, exporter)
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Status.Code != codes.Error {
		t.Fatalf("status=%v, want Error", span.Status.Code)
	}
	if span.Status.Description != "rate limited" {
		t.Fatalf("status description=%q, want rate limited", span.Status.Description)
	}
	if len(span.Events) == 0 {
		t.Fatal("span has no recorded exception event")
	}
}

func TestTracePanicClosesSpanAndRepanics(t *testing.T) {
	c, exporter := newTestClient(t, nil)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("panic did not propagate")
			}
		}()
		_, _ = Trace(context.Background(), c, "boom", func(context.Context) (int, error) {
			panic("kaput")
		})
	}()

	spans := flushSpans(t, c, exporter)
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("status=%v, want Error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "kaput" {
		t.Fatalf("status description=%q, want kaput", spans[0].Status.Description)
	}
}

func TestTraceExactlyOneSpanPerCall(t *testing.T) {
	c, exporter := newTestClient(t, nil)

	_, _ = Trace(context.Background(), c, "one", func(context.Context) (int, error) { return 1, nil })
	_, _ = Trace(context.Background(), c, "two", func(context.Context) (int, error) { return 0, errors.New("x") })
	_, _ = TraceLLM(context.Background(), c, func(context.Context) (any, error) { return map[string]any{}, nil })

	spans := flushSpans(t, c, exporter)
	if len(spans) != 3 {
		t.Fatalf("exported %d spans, want exactly 3", len(spans))
	}
}

func TestTraceMetadataAttributeKinds(t *testing.T) {
	c, exporter := newTestClient(t, nil)

	_, err := Trace(context.Background(), c, "meta", func(context.Context) (int, error) { return 0, nil },
		WithMetadata(map[string]any{
			"plan":     "pro",
			"retries":  3,
			"latency":  1.5,
			"beta":     true,
			"nested":   map[string]any{"a": 1},
			"elements": []string{"x", "y"},
		}),
	)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}

	span := flushSpans(t, c, exporter)[0]

	if v, _ := spanAttr(span, "plan"); v.AsString() != "pro" {
		t.Fatalf("plan=%v, want string pro", v.Emit())
	}
	if v, _ := spanAttr(span, "retries"); v.Type() != attribute.INT64 || v.AsInt64() != 3 {
		t.Fatalf("retries=%v, want int64 3", v.Emit())
	}
	if v, _ := spanAttr(span, "latency"); v.Type() != attribute.FLOAT64 || v.AsFloat64() != 1.5 {
		t.Fatalf("latency=%v, want float64 1.5", v.Emit())
	}
	if v, _ := spanAttr(span, "beta"); v.Type() != attribute.BOOL || !v.AsBool() {
		t.Fatalf("beta=%v, want bool true", v.Emit())
	}
	if v, _ := spanAttr(span, "nested"); v.AsString() != `{"a":1}` {
		t.Fatalf("nested=%v, want JSON-encoded string", v.Emit())
	}
	if v, _ := spanAttr(span, "elements"); v.AsString() != `["x","y"]` {
		t.Fatalf("elements=%v, want JSON-encoded string", v.Emit())
	}
}

func TestTraceTagsMergeAmbientAndCallSite(t *testing.T) {
	c, exporter := newTestClient(t, nil)

	ctx := ContextWithTags(context.Background(), "ambient")
	ctx = ContextWithMetadata(ctx, map[string]any{"tenant": "acme", "shadowed": "ambient"})

	_, err := Trace(ctx, c, "merge", func(context.Context) (int, error) { return 0, nil },
		WithTags("local"),
		WithMetadata(map[string]any{"shadowed": "call-site"}),
	)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}

	span := flushSpans(t, c, exporter)[0]

	if got := mustStringAttr(t, span, semconv.LuminaTags); got != `["ambient","local"]` {
		t.Fatalf("tags=%q, want ambient before call-site", got)
	}
	if got := mustStringAttr(t, span, "tenant"); got != "acme" {
		t.Fatalf("tenant=%q, want acme", got)
	}
	if got := mustStringAttr(t, span, "shadowed"); got != "call-site" {
		t.Fatalf("shadowed=%q, want call-site metadata to win", got)
	}
}

func TestTruncateContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{name: "shorter than cap", s: "hello", maxLen: 10, want: "hello"},
		{name: "exactly cap", s: "hello", maxLen: 5, want: "hello"},
		{name: "truncates", s: "hello world", maxLen: 5, want: "hello"},
		{name: "zero disables", s: "hello world", maxLen: 0, want: "hello world"},
		{name: "multibyte runes survive", s: "héllo wörld", maxLen: 7, want: "héllo w"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateContent(tt.s, tt.maxLen); got != tt.want {
				t.Fatalf("truncateContent(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}
