package lumina

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// llmInstruments holds the instruments recorded once per traced LLM call.
// Instruments that failed to build stay nil and are skipped at record time.
type llmInstruments struct {
	requests metric.Int64Counter
	tokens   metric.Int64Counter
	costUSD  metric.Float64Counter
	duration metric.Float64Histogram
}

func newLLMInstruments(meter metric.Meter, logger *slog.Logger) llmInstruments {
	var inst llmInstruments
	var err error

	inst.requests, err = meter.Int64Counter(
		"lumina.llm.requests",
		metric.WithDescription("Count of traced LLM calls by outcome."),
		metric.WithUnit("{request}"),
	)
	if err != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "lumina.llm.requests", "error", err)
	}

	inst.tokens, err = meter.Int64Counter(
		"lumina.llm.tokens",
		metric.WithDescription("Count of prompt and completion tokens reported by providers."),
		metric.WithUnit("{token}"),
	)
	if err != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "lumina.llm.tokens", "error", err)
	}

	inst.costUSD, err = meter.Float64Counter(
		"lumina.llm.cost_usd",
		metric.WithDescription("Estimated spend across traced LLM calls."),
		metric.WithUnit("USD"),
	)
	if err != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "lumina.llm.cost_usd", "error", err)
	}

	inst.duration, err = meter.Float64Histogram(
		"lumina.llm.duration",
		metric.WithDescription("Wall-clock duration of traced LLM calls."),
		metric.WithUnit("ms"),
	)
	if err != nil && logger != nil {
		logger.Warn("failed to create opentelemetry histogram", "metric", "lumina.llm.duration", "error", err)
	}

	return inst
}

// recordLLMMetrics emits the per-call instruments. Attribute values stay
// bounded: status, provider system, and model only.
func (c *Client) recordLLMMetrics(ctx context.Context, system, model, status string, promptTokens, completionTokens int, cost float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	base := make([]attribute.KeyValue, 0, 3)
	base = append(base, attribute.String("status", status))
	if system != "" {
		base = append(base, attribute.String("system", system))
	}
	if model != "" {
		base = append(base, attribute.String("model", model))
	}

	if c.instruments.requests != nil {
		c.instruments.requests.Add(ctx, 1, metric.WithAttributes(base...))
	}
	if c.instruments.duration != nil {
		c.instruments.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(base...))
	}
	if c.instruments.tokens != nil {
		if promptTokens > 0 {
			attrs := append(append(make([]attribute.KeyValue, 0, len(base)+1), base...), attribute.String("token_kind", "prompt"))
			c.instruments.tokens.Add(ctx, int64(promptTokens), metric.WithAttributes(attrs...))
		}
		if completionTokens > 0 {
			attrs := append(append(make([]attribute.KeyValue, 0, len(base)+1), base...), attribute.String("token_kind", "completion"))
			c.instruments.tokens.Add(ctx, int64(completionTokens), metric.WithAttributes(attrs...))
		}
	}
	if c.instruments.costUSD != nil && cost > 0 {
		c.instruments.costUSD.Add(ctx, cost, metric.WithAttributes(base...))
	}
}
