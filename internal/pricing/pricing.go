package pricing

import "strings"

type modelRates struct {
	inputPerMTok  float64
	outputPerMTok float64
}

type pricingRule struct {
	key   string
	rates modelRates
}

// USD per 1M tokens. The first rule whose key is contained in the model id
// wins, so the gpt-4 entry also captures gpt-4-turbo model ids; the order is
// load-bearing and new entries belong at the end unless they must win.
var pricingRules = []pricingRule{
	{key: "gpt-4", rates: modelRates{inputPerMTok: 30.0, outputPerMTok: 60.0}},
	{key: "gpt-4-turbo", rates: modelRates{inputPerMTok: 10.0, outputPerMTok: 30.0}},
	{key: "gpt-3.5-turbo", rates: modelRates{inputPerMTok: 0.5, outputPerMTok: 1.5}},
	{key: "claude-sonnet-4", rates: modelRates{inputPerMTok: 3.0, outputPerMTok: 15.0}},
	{key: "claude-3-opus", rates: modelRates{inputPerMTok: 15.0, outputPerMTok: 75.0}},
	{key: "claude-3-sonnet", rates: modelRates{inputPerMTok: 3.0, outputPerMTok: 15.0}},
	{key: "claude-3-haiku", rates: modelRates{inputPerMTok: 0.25, outputPerMTok: 1.25}},
}

// Unknown models are billed at a flat default rather than rejected.
var defaultRates = modelRates{inputPerMTok: 1.0, outputPerMTok: 2.0}

// Estimate returns the estimated USD cost of a call given the model id and
// token counts. It is pure: identical inputs always produce identical output,
// and zero tokens cost zero.
func Estimate(model string, promptTokens, completionTokens int) float64 {
	rates := ratesForModel(model)
	return (float64(promptTokens)/1_000_000)*rates.inputPerMTok +
		(float64(completionTokens)/1_000_000)*rates.outputPerMTok
}

func ratesForModel(model string) modelRates {
	for _, rule := range pricingRules {
		if strings.Contains(model, rule.key) {
			return rule.rates
		}
	}
	return defaultRates
}
