package ingest

import (
	"reflect"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/use-lumina/lumina-go/semconv"
)

func testSpanContext(t *testing.T) (oteltrace.SpanContext, oteltrace.SpanContext) {
	t.Helper()
	traceID, err := oteltrace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	spanID, err := oteltrace.SpanIDFromHex("0102030405060708")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	parentID, err := oteltrace.SpanIDFromHex("1112131415161718")
	if err != nil {
		t.Fatalf("parent span id: %v", err)
	}

	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	parent := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{TraceID: traceID, SpanID: parentID})
	return sc, parent
}

func spanStubForExport(sc oteltrace.SpanContext) []sdktrace.ReadOnlySpan {
	stub := tracetest.SpanStub{
		Name:        "llm.request",
		SpanContext: sc,
		StartTime:   time.Now(),
		EndTime:     time.Now().Add(time.Millisecond),
	}
	return []sdktrace.ReadOnlySpan{stub.Snapshot()}
}

func TestFromSpanMapsFields(t *testing.T) {
	t.Parallel()

	sc, parent := testSpanContext(t)
	start := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	stub := tracetest.SpanStub{
		Name:        "llm.request",
		SpanContext: sc,
		Parent:      parent,
		StartTime:   start,
		EndTime:     start.Add(950 * time.Millisecond),
		Status:      sdktrace.Status{Code: codes.Ok},
		Resource: resource.NewSchemaless(
			attribute.String("service.name", "checkout"),
			semconv.LuminaEnvironment.String("live"),
			semconv.LuminaCustomerID.String("cust-9"),
		),
		Attributes: []attribute.KeyValue{
			semconv.LLMSystem.String("openai"),
			semconv.LLMResponseModel.String("gpt-4"),
			semconv.LLMPrompt.String("What is the capital of France?"),
			semconv.LLMCompletion.String("Paris"),
			semconv.LuminaResponseHash.String("abc123"),
			semconv.LLMUsagePromptTokens.Int(10),
			semconv.LLMUsageCompletionTokens.Int(5),
			semconv.LLMUsageTotalTokens.Int(15),
			semconv.LuminaCostUSD.Float64(0.00045),
			semconv.DurationMS.Int64(950),
			semconv.LuminaTags.String(`["chat","example"]`),
			attribute.String("tenant", "acme"),
		},
	}

	got := FromSpan(stub.Snapshot())

	if got.TraceID != "0102030405060708090a0b0c0d0e0f10" || got.SpanID != "0102030405060708" {
		t.Fatalf("ids=%q/%q, want hex span context ids", got.TraceID, got.SpanID)
	}
	if got.ParentSpanID != "1112131415161718" {
		t.Fatalf("parent_span_id=%q, want parent id", got.ParentSpanID)
	}
	if got.Timestamp != "2026-08-26T12:00:00Z" {
		t.Fatalf("timestamp=%q, want RFC3339 start time", got.Timestamp)
	}
	if got.ServiceName != "checkout" || got.Environment != "live" || got.CustomerID != "cust-9" {
		t.Fatalf("resource fields=%q/%q/%q, want checkout/live/cust-9",
			got.ServiceName, got.Environment, got.CustomerID)
	}
	if got.Provider != "openai" || got.Model != "gpt-4" {
		t.Fatalf("provider=%q model=%q, want openai/gpt-4", got.Provider, got.Model)
	}
	if got.Prompt != "What is the capital of France?" || got.Response != "Paris" {
		t.Fatalf("prompt=%q response=%q", got.Prompt, got.Response)
	}
	if got.ResponseHash != "abc123" {
		t.Fatalf("response_hash=%q, want abc123", got.ResponseHash)
	}
	if got.PromptTokens != 10 || got.CompletionTokens != 5 || got.TotalTokens != 15 || got.Tokens != 15 {
		t.Fatalf("tokens=%d/%d/%d/%d, want 10/5/15/15",
			got.PromptTokens, got.CompletionTokens, got.TotalTokens, got.Tokens)
	}
	if got.CostUSD != 0.00045 {
		t.Fatalf("cost=%v, want 0.00045", got.CostUSD)
	}
	if got.LatencyMS != 950 {
		t.Fatalf("latency_ms=%d, want duration_ms attribute value", got.LatencyMS)
	}
	if got.Status != StatusSuccess || got.ErrorMessage != "" {
		t.Fatalf("status=%q/%q, want success with no error", got.Status, got.ErrorMessage)
	}
	if !reflect.DeepEqual(got.Tags, []string{"chat", "example"}) {
		t.Fatalf("tags=%v, want decoded JSON array", got.Tags)
	}
	if !reflect.DeepEqual(got.Metadata, map[string]any{"tenant": "acme"}) {
		t.Fatalf("metadata=%v, want leftover attributes only", got.Metadata)
	}
}

func TestFromSpanErrorStatus(t *testing.T) {
	t.Parallel()

	sc, _ := testSpanContext(t)
	stub := tracetest.SpanStub{
		Name:        "llm.request",
		SpanContext: sc,
		StartTime:   time.Now(),
		EndTime:     time.Now().Add(10 * time.Millisecond),
		Status:      sdktrace.Status{Code: codes.Error, Description: "rate limited"},
	}

	got := FromSpan(stub.Snapshot())
	if got.Status != StatusError || got.ErrorMessage != "rate limited" {
		t.Fatalf("status=%q/%q, want error/rate limited", got.Status, got.ErrorMessage)
	}
	if got.ParentSpanID != "" {
		t.Fatalf("parent_span_id=%q, want empty for root span", got.ParentSpanID)
	}
}

func TestFromSpanLatencyFallsBackToSpanDuration(t *testing.T) {
	t.Parallel()

	sc, _ := testSpanContext(t)
	start := time.Now()
	stub := tracetest.SpanStub{
		Name:        "llm.request",
		SpanContext: sc,
		StartTime:   start,
		EndTime:     start.Add(1200 * time.Millisecond),
	}

	got := FromSpan(stub.Snapshot())
	if got.LatencyMS != 1200 {
		t.Fatalf("latency_ms=%d, want 1200 from span duration", got.LatencyMS)
	}
}

func TestFromSpansPreservesOrder(t *testing.T) {
	t.Parallel()

	sc, _ := testSpanContext(t)
	spans := []sdktrace.ReadOnlySpan{
		tracetest.SpanStub{Name: "first", SpanContext: sc, StartTime: time.Now()}.Snapshot(),
		tracetest.SpanStub{Name: "second", SpanContext: sc, StartTime: time.Now()}.Snapshot(),
	}

	got := FromSpans(spans)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
}
