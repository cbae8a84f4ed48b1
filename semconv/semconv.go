package semconv

import "go.opentelemetry.io/otel/attribute"

// GenAI attribute keys follow the OpenTelemetry GenAI conventions proposal.
// The exact strings are part of the wire contract with the Lumina collector
// and must not change between releases.
const (
	LLMSystem             = attribute.Key("gen_ai.system")
	LLMRequestModel       = attribute.Key("gen_ai.request.model")
	LLMRequestMaxTokens   = attribute.Key("gen_ai.request.max_tokens")
	LLMRequestTemperature = attribute.Key("gen_ai.request.temperature")
	LLMRequestTopP        = attribute.Key("gen_ai.request.top_p")

	LLMResponseModel        = attribute.Key("gen_ai.response.model")
	LLMResponseID           = attribute.Key("gen_ai.response.id")
	LLMResponseFinishReason = attribute.Key("gen_ai.response.finish_reason")

	LLMUsagePromptTokens     = attribute.Key("gen_ai.usage.prompt_tokens")
	LLMUsageCompletionTokens = attribute.Key("gen_ai.usage.completion_tokens")
	LLMUsageTotalTokens      = attribute.Key("gen_ai.usage.total_tokens")

	LLMPrompt     = attribute.Key("gen_ai.prompt")
	LLMCompletion = attribute.Key("gen_ai.completion")
)

// Lumina-specific extension keys.
const (
	LuminaCustomerID   = attribute.Key("lumina.customer_id")
	LuminaEnvironment  = attribute.Key("lumina.environment")
	LuminaServiceName  = attribute.Key("lumina.service_name")
	LuminaEndpoint     = attribute.Key("lumina.endpoint")
	LuminaCostUSD      = attribute.Key("lumina.cost_usd")
	LuminaResponseHash = attribute.Key("lumina.response_hash")
	LuminaTags         = attribute.Key("lumina.tags")
)

// DurationMS records wall-clock milliseconds spent inside the traced call.
const DurationMS = attribute.Key("duration_ms")

// Well-known span names.
const (
	SpanNameLLMRequest    = "llm.request"
	SpanNameLLMGeneration = "llm.generation"
	SpanNameRAGRetrieval  = "rag.retrieval"
	SpanNameEmbedding     = "embedding.generation"
)
