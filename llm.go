package lumina

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/use-lumina/lumina-go/internal/extract"
	"github.com/use-lumina/lumina-go/internal/pricing"
	"github.com/use-lumina/lumina-go/semconv"
)

// TraceLLM runs fn inside an LLM call span. On top of what Trace records, the
// span carries request attributes before fn runs (system, prompt, requested
// model parameters) and, after fn returns, whatever the response yields:
// response model and id, finish reason, completion text with its hash, token
// usage, and estimated cost. Responses of unknown shape degrade to an
// unannotated successful span rather than an error.
//
// The span is named llm.request unless WithSpanName overrides it.
func TraceLLM[T any](ctx context.Context, c *Client, fn Func[T], opts ...Option) (T, error) {
	call := newCallOptions(opts)
	return run(ctx, c, llmSpanName(call), call, fn, true)
}

// TraceLLMAsync is TraceLLM on its own goroutine. The span settles when fn
// settles, whether or not anyone waits on the handle.
func TraceLLMAsync[T any](ctx context.Context, c *Client, fn Func[T], opts ...Option) *Async[T] {
	call := newCallOptions(opts)
	return startAsync(ctx, c, llmSpanName(call), call, fn, true)
}

func llmSpanName(call callOptions) string {
	if call.name != "" {
		return call.name
	}
	return semconv.SpanNameLLMRequest
}

func setLLMRequestAttrs(span trace.Span, call callOptions, contentMaxLen int) {
	if call.system != "" {
		span.SetAttributes(semconv.LLMSystem.String(call.system))
	}
	if call.prompt != "" {
		span.SetAttributes(semconv.LLMPrompt.String(truncateContent(call.prompt, contentMaxLen)))
	}
	if call.requestModel != "" {
		span.SetAttributes(semconv.LLMRequestModel.String(call.requestModel))
	}
	if call.hasMaxTokens {
		span.SetAttributes(semconv.LLMRequestMaxTokens.Int(call.maxTokens))
	}
	if call.hasTemperature {
		span.SetAttributes(semconv.LLMRequestTemperature.Float64(call.temperature))
	}
	if call.hasTopP {
		span.SetAttributes(semconv.LLMRequestTopP.Float64(call.topP))
	}
}

// recordLLMResponse normalizes the response and attaches whatever it carries.
// Extraction is best-effort: it never fails the traced call, and a panic here
// is swallowed after a debug log so the span still closes normally.
func (c *Client) recordLLMResponse(ctx context.Context, span trace.Span, call callOptions, result any, elapsed time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.loggerOrDefault().Debug("response attribute extraction failed", "panic", r)
		}
	}()

	digest := extract.Normalize(result)

	if digest.Model != "" {
		span.SetAttributes(semconv.LLMResponseModel.String(digest.Model))
	}
	if digest.ResponseID != "" {
		span.SetAttributes(semconv.LLMResponseID.String(digest.ResponseID))
	}
	if digest.FinishReason != "" {
		span.SetAttributes(semconv.LLMResponseFinishReason.String(digest.FinishReason))
	}
	if digest.Completion != "" {
		span.SetAttributes(semconv.LLMCompletion.String(truncateContent(digest.Completion, c.contentMaxLen())))
		span.SetAttributes(semconv.LuminaResponseHash.String(hashContent(digest.Completion)))
	}

	var cost float64
	if digest.HasUsage {
		if digest.PromptTokens > 0 {
			span.SetAttributes(semconv.LLMUsagePromptTokens.Int(digest.PromptTokens))
		}
		if digest.CompletionTokens > 0 {
			span.SetAttributes(semconv.LLMUsageCompletionTokens.Int(digest.CompletionTokens))
		}
		if digest.TotalTokens > 0 {
			span.SetAttributes(semconv.LLMUsageTotalTokens.Int(digest.TotalTokens))
		}

		cost = pricing.Estimate(digest.Model, digest.PromptTokens, digest.CompletionTokens)
		if cost > 0 {
			span.SetAttributes(semconv.LuminaCostUSD.Float64(cost))
		}
	}

	c.recordLLMMetrics(ctx, call.system, digest.Model, statusSuccess,
		digest.PromptTokens, digest.CompletionTokens, cost, elapsed)
}

// hashContent fingerprints the full, untruncated completion so collectors can
// deduplicate and diff responses without storing raw text.
func hashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
