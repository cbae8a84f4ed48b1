package lumina

// Option customizes a single traced call.
type Option func(*callOptions)

type callOptions struct {
	name     string
	system   string
	prompt   string
	metadata map[string]any
	tags     []string

	requestModel   string
	maxTokens      int
	hasMaxTokens   bool
	temperature    float64
	hasTemperature bool
	topP           float64
	hasTopP        bool
}

func newCallOptions(opts []Option) callOptions {
	var call callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&call)
		}
	}
	return call
}

// WithSpanName overrides the span name of an LLM-traced call. Generic traced
// calls name their span positionally and ignore this option.
func WithSpanName(name string) Option {
	return func(c *callOptions) { c.name = name }
}

// WithSystem records the provider system identifier, e.g. "openai" or
// "anthropic".
func WithSystem(system string) Option {
	return func(c *callOptions) { c.system = system }
}

// WithPrompt records the prompt text sent to the provider. The recorded value
// is truncated to the configured content length.
func WithPrompt(prompt string) Option {
	return func(c *callOptions) { c.prompt = prompt }
}

// WithMetadata records caller metadata on the span. Scalar values become
// typed attributes; anything else is JSON-encoded into a string attribute.
// Repeated uses merge, with later values winning on key conflicts.
func WithMetadata(metadata map[string]any) Option {
	return func(c *callOptions) {
		if len(metadata) == 0 {
			return
		}
		if c.metadata == nil {
			c.metadata = make(map[string]any, len(metadata))
		}
		for key, value := range metadata {
			c.metadata[key] = value
		}
	}
}

// WithTags appends tags recorded as a JSON array attribute.
func WithTags(tags ...string) Option {
	return func(c *callOptions) { c.tags = append(c.tags, tags...) }
}

// WithRequestModel records the model the caller asked for, which may differ
// from the model the provider answers with.
func WithRequestModel(model string) Option {
	return func(c *callOptions) { c.requestModel = model }
}

// WithMaxTokens records the request max_tokens parameter.
func WithMaxTokens(maxTokens int) Option {
	return func(c *callOptions) {
		c.maxTokens = maxTokens
		c.hasMaxTokens = true
	}
}

// WithTemperature records the request temperature parameter.
func WithTemperature(temperature float64) Option {
	return func(c *callOptions) {
		c.temperature = temperature
		c.hasTemperature = true
	}
}

// WithTopP records the request top_p parameter.
func WithTopP(topP float64) Option {
	return func(c *callOptions) {
		c.topP = topP
		c.hasTopP = true
	}
}
