package pricing

import (
	"math"
	"testing"
)

func TestEstimateKnownModels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             float64
	}{
		{
			name:             "gpt-4",
			model:            "gpt-4",
			promptTokens:     10,
			completionTokens: 5,
			want:             0.0006,
		},
		{
			name:             "claude-3-haiku",
			model:            "claude-3-haiku",
			promptTokens:     8,
			completionTokens: 3,
			want:             0.00000575,
		},
		{
			name:             "gpt-3.5-turbo",
			model:            "gpt-3.5-turbo-0125",
			promptTokens:     1000,
			completionTokens: 1000,
			want:             0.002,
		},
		{
			name:             "claude-3-opus",
			model:            "claude-3-opus-20240229",
			promptTokens:     2000,
			completionTokens: 1000,
			want:             0.105,
		},
		{
			name:             "claude-sonnet-4",
			model:            "claude-sonnet-4-20250514",
			promptTokens:     1000,
			completionTokens: 1000,
			want:             0.018,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Estimate(tt.model, tt.promptTokens, tt.completionTokens)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("cost=%.10f, want=%.10f", got, tt.want)
			}
		})
	}
}

func TestEstimateUnknownModelUsesDefaultRates(t *testing.T) {
	t.Parallel()

	got := Estimate("mistral-large", 1000, 1000)
	want := 0.003

	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("cost=%.10f, want=%.10f", got, want)
	}
}

// The scan is first-contained-key-wins, so every gpt-4-turbo model id matches
// the broader gpt-4 entry before its own. Recorded costs depend on that
// matching; this test pins it.
func TestEstimateTurboShadowedByGPT4(t *testing.T) {
	t.Parallel()

	got := Estimate("gpt-4-turbo-2024-04-09", 1000, 1000)
	want := 0.09

	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("cost=%.10f, want=%.10f", got, want)
	}
}

func TestEstimateZeroTokens(t *testing.T) {
	t.Parallel()

	if got := Estimate("gpt-4", 0, 0); got != 0 {
		t.Fatalf("cost=%f, want 0", got)
	}
	if got := Estimate("unknown-model", 0, 0); got != 0 {
		t.Fatalf("cost=%f, want 0", got)
	}
}

func TestEstimateIsPure(t *testing.T) {
	t.Parallel()

	first := Estimate("claude-3-sonnet", 123, 456)
	second := Estimate("claude-3-sonnet", 123, 456)

	if first != second {
		t.Fatalf("repeated estimates differ: %.10f vs %.10f", first, second)
	}
}
