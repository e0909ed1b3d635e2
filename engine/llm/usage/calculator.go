package usage

import (
	"strings"
	"time"

	"github.com/genflow/genflow/engine/event"
	"github.com/pkoukk/tiktoken-go"
	"github.com/shopspring/decimal"
)

const fallbackEncoding = "cl100k_base"

// Pricing holds per-thousand-token unit prices for one model.
type Pricing struct {
	PromptPerThousand     decimal.Decimal
	CompletionPerThousand decimal.Decimal
	Currency              string
}

// Calculator finalizes usage records: it fills missing token counts via
// tokenizer estimation and computes prices from the configured price table.
type Calculator struct {
	pricing map[string]Pricing
}

func NewCalculator(pricing map[string]Pricing) *Calculator {
	if pricing == nil {
		pricing = make(map[string]Pricing)
	}
	return &Calculator{pricing: pricing}
}

// EstimateTokens counts tokens for text with the model's tokenizer, falling
// back to cl100k_base and finally to a whitespace heuristic when the
// tokenizer data is unavailable.
func (c *Calculator) EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		return len(strings.Fields(text))
	}
	return len(enc.Encode(text, nil, nil))
}

// Finalize completes a usage record for the terminal payload. Provider-
// reported counts win; estimation only fills gaps.
func (c *Calculator) Finalize(
	model string,
	u *event.Usage,
	latency time.Duration,
	promptText string,
	completionText string,
) *event.Usage {
	if u == nil {
		u = &event.Usage{}
	}
	if u.PromptTokens == 0 && promptText != "" {
		u.PromptTokens = c.EstimateTokens(model, promptText)
	}
	if u.CompletionTokens == 0 && completionText != "" {
		u.CompletionTokens = c.EstimateTokens(model, completionText)
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	if latency > 0 {
		u.LatencySecs = latency.Seconds()
	}
	c.applyPricing(model, u)
	return u
}

func (c *Calculator) applyPricing(model string, u *event.Usage) {
	pricing, ok := c.pricing[model]
	if !ok {
		return
	}
	thousand := decimal.NewFromInt(1000)
	promptCost := pricing.PromptPerThousand.
		Mul(decimal.NewFromInt(int64(u.PromptTokens))).
		Div(thousand)
	completionCost := pricing.CompletionPerThousand.
		Mul(decimal.NewFromInt(int64(u.CompletionTokens))).
		Div(thousand)
	u.PromptUnitPrice = pricing.PromptPerThousand
	u.CompletionUnitPrice = pricing.CompletionPerThousand
	u.TotalPrice = promptCost.Add(completionCost)
	u.Currency = pricing.Currency
}
