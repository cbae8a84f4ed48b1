package lumina

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/use-lumina/lumina-go/semconv"
)

// Func is a traced unit of work. The context passed in carries the live span,
// so downstream instrumented calls nest under it.
type Func[T any] func(ctx context.Context) (T, error)

// Trace runs fn inside a span named name and blocks until it returns. The
// span records caller metadata, tags, environment, and duration, ends with OK
// or the error's message, and is always finalized exactly once before Trace
// returns. fn's result and error pass through unchanged.
func Trace[T any](ctx context.Context, c *Client, name string, fn Func[T], opts ...Option) (T, error) {
	return run(ctx, c, name, newCallOptions(opts), fn, false)
}

// TraceAsync runs fn on its own goroutine and returns a handle to await the
// result. The span settles when fn settles, whether or not anyone waits.
func TraceAsync[T any](ctx context.Context, c *Client, name string, fn Func[T], opts ...Option) *Async[T] {
	return startAsync(ctx, c, name, newCallOptions(opts), fn, false)
}

// run is the span lifecycle state machine shared by all entry points:
// start span -> common attributes (-> request attributes for LLM calls) ->
// invoke fn -> success or failure bookkeeping -> end span, exactly once.
func run[T any](ctx context.Context, c *Client, name string, call callOptions, fn Func[T], llm bool) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	spanKind := trace.SpanKindInternal
	if llm {
		spanKind = trace.SpanKindClient
	}
	ctx, span := c.tracerOrNoop().Start(ctx, name, trace.WithSpanKind(spanKind))
	start := time.Now()

	// A panic inside fn must not leave the span open or change the panic.
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, fmt.Sprint(r))
			span.End()
			if llm {
				c.recordLLMMetrics(ctx, call.system, "", statusError, 0, 0, 0, time.Since(start))
			}
			panic(r)
		}
	}()

	c.setCommonAttrs(ctx, span, call)
	if llm {
		setLLMRequestAttrs(span, call, c.contentMaxLen())
	}

	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		if llm {
			c.recordLLMMetrics(ctx, call.system, "", statusError, 0, 0, 0, elapsed)
		}
		return result, err
	}

	if llm {
		c.recordLLMResponse(ctx, span, call, result, elapsed)
	}
	span.SetAttributes(semconv.DurationMS.Int64(elapsed.Milliseconds()))
	span.SetStatus(codes.Ok, "")
	span.End()
	return result, nil
}

// setCommonAttrs writes the attributes every traced call carries: ambient
// context metadata and tags, call-site metadata and tags, environment, and
// service name. Call-site metadata wins over ambient metadata on key
// conflicts.
func (c *Client) setCommonAttrs(ctx context.Context, span trace.Span, call callOptions) {
	for key, value := range MetadataFromContext(ctx) {
		span.SetAttributes(metadataAttr(key, value))
	}
	for key, value := range call.metadata {
		span.SetAttributes(metadataAttr(key, value))
	}

	tags := append(TagsFromContext(ctx), call.tags...)
	if len(tags) > 0 {
		if encoded, err := json.Marshal(tags); err == nil {
			span.SetAttributes(semconv.LuminaTags.String(string(encoded)))
		}
	}

	settings := c.settingsOrDefault()
	span.SetAttributes(semconv.LuminaEnvironment.String(settings.Environment))
	if settings.ServiceName != "" {
		span.SetAttributes(semconv.LuminaServiceName.String(settings.ServiceName))
	}
	if settings.CustomerID != "" {
		span.SetAttributes(semconv.LuminaCustomerID.String(settings.CustomerID))
	}
}

// metadataAttr maps a metadata entry onto a span attribute: string, bool,
// int, int64, and float64 values keep their kind, everything else is
// JSON-encoded into a string attribute.
func metadataAttr(key string, value any) attribute.KeyValue {
	switch typed := value.(type) {
	case string:
		return attribute.String(key, typed)
	case bool:
		return attribute.Bool(key, typed)
	case int:
		return attribute.Int(key, typed)
	case int64:
		return attribute.Int64(key, typed)
	case float64:
		return attribute.Float64(key, typed)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return attribute.String(key, fmt.Sprintf("%v", value))
		}
		return attribute.String(key, string(encoded))
	}
}

// truncateContent caps prompt/completion text at maxLen runes. maxLen <= 0
// disables truncation.
func truncateContent(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
