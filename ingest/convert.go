package ingest

import (
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/use-lumina/lumina-go/semconv"
)

// FromSpan translates a finished span into the collector's ingest schema.
// Known semantic-convention attributes map onto named fields; whatever is
// left over (caller metadata) lands in the Metadata map.
func FromSpan(s sdktrace.ReadOnlySpan) Trace {
	attrs := make(map[attribute.Key]attribute.Value, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	resourceAttrs := make(map[attribute.Key]attribute.Value)
	if res := s.Resource(); res != nil {
		for _, kv := range res.Attributes() {
			resourceAttrs[kv.Key] = kv.Value
		}
	}

	sc := s.SpanContext()
	t := Trace{
		TraceID:      sc.TraceID().String(),
		SpanID:       sc.SpanID().String(),
		Timestamp:    s.StartTime().UTC().Format(time.RFC3339Nano),
		ServiceName:  stringAttr(resourceAttrs, "service.name"),
		Environment:  stringAttr(resourceAttrs, semconv.LuminaEnvironment),
		CustomerID:   stringAttr(resourceAttrs, semconv.LuminaCustomerID),
		Endpoint:     stringAttr(attrs, semconv.LuminaEndpoint),
		Provider:     stringAttr(attrs, semconv.LLMSystem),
		Prompt:       stringAttr(attrs, semconv.LLMPrompt),
		Response:     stringAttr(attrs, semconv.LLMCompletion),
		ResponseHash: stringAttr(attrs, semconv.LuminaResponseHash),
		CostUSD:      floatAttr(attrs, semconv.LuminaCostUSD),
	}

	if parent := s.Parent(); parent.HasSpanID() {
		t.ParentSpanID = parent.SpanID().String()
	}

	// Span-level values win over resource-level ones when both are present.
	if serviceName := stringAttr(attrs, semconv.LuminaServiceName); serviceName != "" {
		t.ServiceName = serviceName
	}
	if environment := stringAttr(attrs, semconv.LuminaEnvironment); environment != "" {
		t.Environment = environment
	}
	if customerID := stringAttr(attrs, semconv.LuminaCustomerID); customerID != "" {
		t.CustomerID = customerID
	}

	t.Model = stringAttr(attrs, semconv.LLMResponseModel)
	if t.Model == "" {
		t.Model = stringAttr(attrs, semconv.LLMRequestModel)
	}

	t.PromptTokens = intAttr(attrs, semconv.LLMUsagePromptTokens)
	t.CompletionTokens = intAttr(attrs, semconv.LLMUsageCompletionTokens)
	t.TotalTokens = intAttr(attrs, semconv.LLMUsageTotalTokens)
	t.Tokens = t.TotalTokens

	t.LatencyMS = int64(intAttr(attrs, semconv.DurationMS))
	if t.LatencyMS == 0 && !s.EndTime().IsZero() {
		t.LatencyMS = s.EndTime().Sub(s.StartTime()).Milliseconds()
	}

	if raw := stringAttr(attrs, semconv.LuminaTags); raw != "" {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil && len(tags) > 0 {
			t.Tags = tags
		}
	}

	switch s.Status().Code {
	case codes.Error:
		t.Status = StatusError
		t.ErrorMessage = s.Status().Description
	default:
		t.Status = StatusSuccess
	}

	if metadata := leftoverMetadata(s.Attributes()); len(metadata) > 0 {
		t.Metadata = metadata
	}

	return t
}

// FromSpans translates a batch in order.
func FromSpans(spans []sdktrace.ReadOnlySpan) []Trace {
	traces := make([]Trace, len(spans))
	for i, s := range spans {
		traces[i] = FromSpan(s)
	}
	return traces
}

// knownKeys are attributes already represented by a named Trace field.
var knownKeys = map[attribute.Key]struct{}{
	semconv.LLMSystem:                {},
	semconv.LLMRequestModel:          {},
	semconv.LLMRequestMaxTokens:      {},
	semconv.LLMRequestTemperature:    {},
	semconv.LLMRequestTopP:           {},
	semconv.LLMResponseModel:         {},
	semconv.LLMResponseID:            {},
	semconv.LLMResponseFinishReason:  {},
	semconv.LLMUsagePromptTokens:     {},
	semconv.LLMUsageCompletionTokens: {},
	semconv.LLMUsageTotalTokens:      {},
	semconv.LLMPrompt:                {},
	semconv.LLMCompletion:            {},
	semconv.LuminaCustomerID:         {},
	semconv.LuminaEnvironment:        {},
	semconv.LuminaServiceName:        {},
	semconv.LuminaEndpoint:           {},
	semconv.LuminaCostUSD:            {},
	semconv.LuminaResponseHash:       {},
	semconv.LuminaTags:               {},
	semconv.DurationMS:               {},
}

func leftoverMetadata(attrs []attribute.KeyValue) map[string]any {
	var metadata map[string]any
	for _, kv := range attrs {
		if _, known := knownKeys[kv.Key]; known {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata[string(kv.Key)] = kv.Value.AsInterface()
	}
	return metadata
}

func stringAttr(attrs map[attribute.Key]attribute.Value, key attribute.Key) string {
	v, ok := attrs[key]
	if !ok || v.Type() != attribute.STRING {
		return ""
	}
	return v.AsString()
}

func intAttr(attrs map[attribute.Key]attribute.Value, key attribute.Key) int {
	v, ok := attrs[key]
	if !ok || v.Type() != attribute.INT64 {
		return 0
	}
	return int(v.AsInt64())
}

func floatAttr(attrs map[attribute.Key]attribute.Value, key attribute.Key) float64 {
	v, ok := attrs[key]
	if !ok || v.Type() != attribute.FLOAT64 {
		return 0
	}
	return v.AsFloat64()
}
