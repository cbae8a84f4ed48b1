// Package ingest defines the Lumina collector's native batch ingest contract
// and a SpanExporter that speaks it, as an alternative to OTLP for embedders
// pointing the SDK directly at a Lumina collector.
package ingest

// Trace statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Trace is one finished LLM call in the collector's ingest schema.
type Trace struct {
	TraceID          string         `json:"trace_id"`
	SpanID           string         `json:"span_id"`
	ParentSpanID     string         `json:"parent_span_id,omitempty"`
	Timestamp        string         `json:"timestamp"`
	ServiceName      string         `json:"service_name"`
	Endpoint         string         `json:"endpoint"`
	Environment      string         `json:"environment"`
	Provider         string         `json:"provider,omitempty"`
	Model            string         `json:"model"`
	Prompt           string         `json:"prompt"`
	Response         string         `json:"response"`
	ResponseHash     string         `json:"response_hash,omitempty"`
	Tokens           int            `json:"tokens,omitempty"`
	PromptTokens     int            `json:"prompt_tokens,omitempty"`
	CompletionTokens int            `json:"completion_tokens,omitempty"`
	TotalTokens      int            `json:"total_tokens,omitempty"`
	LatencyMS        int64          `json:"latency_ms"`
	CostUSD          float64        `json:"cost_usd"`
	Status           string         `json:"status,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	CustomerID       string         `json:"customer_id,omitempty"`
}

// Alert types and severities.
const (
	AlertTypeCostSpike      = "cost_spike"
	AlertTypeQualityDrop    = "quality_drop"
	AlertTypeCostAndQuality = "cost_and_quality"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a collector-side anomaly record. The SDK never raises alerts; the
// shape is carried so embedders consuming the collector API share one schema.
type Alert struct {
	AlertID       string   `json:"alert_id"`
	TraceID       string   `json:"trace_id"`
	ServiceName   string   `json:"service_name"`
	Endpoint      string   `json:"endpoint"`
	AlertType     string   `json:"alert_type"`
	Severity      string   `json:"severity"`
	Message       string   `json:"message"`
	BaselineValue *float64 `json:"baseline_value,omitempty"`
	CurrentValue  float64  `json:"current_value"`
	Threshold     float64  `json:"threshold"`
	CreatedAt     string   `json:"created_at"`
	ResolvedAt    string   `json:"resolved_at,omitempty"`
}

// IngestRequest is one batch of traces posted to the collector.
type IngestRequest struct {
	Traces []Trace `json:"traces"`
}

// IngestResponse reports how the collector handled a batch. Errors holds
// per-record messages for traces the collector could not accept.
type IngestResponse struct {
	Success        bool     `json:"success"`
	TracesReceived int      `json:"traces_received"`
	Errors         []string `json:"errors,omitempty"`
}
