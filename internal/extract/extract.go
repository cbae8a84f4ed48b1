package extract

import (
	"encoding/json"
	"strings"
)

// Digest is the vendor-neutral projection of one LLM provider response.
// Fields hold their zero value when the response does not carry them.
type Digest struct {
	Model            string
	ResponseID       string
	Completion       string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	HasUsage         bool
}

// Normalize projects an opaque provider response onto a Digest. It probes the
// value's JSON shape rather than its Go type, so raw payload maps, []byte
// bodies, and typed SDK response structs all extract the same way. It never
// fails: a value with no recognizable shape produces an empty digest.
func Normalize(resp any) Digest {
	payload, ok := toMap(resp)
	if !ok {
		return Digest{}
	}

	digest := Digest{
		Model:      stringField(payload, "model"),
		ResponseID: stringField(payload, "id"),
	}
	digest.Completion, digest.FinishReason = extractCompletion(payload)
	digest.PromptTokens, digest.CompletionTokens, digest.TotalTokens, digest.HasUsage = extractUsage(payload)
	return digest
}

func toMap(resp any) (map[string]any, bool) {
	switch typed := resp.(type) {
	case map[string]any:
		return typed, typed != nil
	case []byte:
		return parseJSONMap(typed)
	case json.RawMessage:
		return parseJSONMap(typed)
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return nil, false
	}
	return parseJSONMap(encoded)
}

func parseJSONMap(raw []byte) (map[string]any, bool) {
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return nil, false
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, false
	}
	return out, out != nil
}

// extractCompletion tries the known provider shapes in order: a choices array
// holding message content, a content array of typed blocks, then a plain
// string content field. No match is not an error.
func extractCompletion(payload map[string]any) (completion, finishReason string) {
	if choices, ok := payload["choices"].([]any); ok && len(choices) > 0 {
		first, _ := choices[0].(map[string]any)
		if first == nil {
			return "", ""
		}
		finishReason = stringField(first, "finish_reason")
		message, _ := first["message"].(map[string]any)
		if message == nil {
			return "", finishReason
		}
		completion, _ = message["content"].(string)
		return completion, finishReason
	}

	switch content := payload["content"].(type) {
	case []any:
		if len(content) == 0 {
			return "", ""
		}
		first, _ := content[0].(map[string]any)
		if first == nil {
			return "", ""
		}
		finishReason = stringField(payload, "stop_reason")
		if kind, _ := first["type"].(string); kind != "text" {
			return "", finishReason
		}
		completion, _ = first["text"].(string)
		return completion, finishReason
	case string:
		return content, stringField(payload, "stop_reason")
	}

	return "", ""
}

func extractUsage(payload map[string]any) (prompt, completion, total int, present bool) {
	usage, ok := payload["usage"].(map[string]any)
	if !ok || len(usage) == 0 {
		return 0, 0, 0, false
	}

	prompt = clampNonNegative(firstInt(usage, "prompt_tokens", "input_tokens"))
	completion = clampNonNegative(firstInt(usage, "completion_tokens", "output_tokens"))
	total = clampNonNegative(firstInt(usage, "total_tokens"))
	if total == 0 {
		total = prompt + completion
	}
	return prompt, completion, total, true
}

func firstInt(values map[string]any, keys ...string) int {
	for _, key := range keys {
		raw, ok := values[key]
		if !ok {
			continue
		}
		switch typed := raw.(type) {
		case float64:
			return int(typed)
		case int:
			return typed
		case int64:
			return int(typed)
		}
	}
	return 0
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
