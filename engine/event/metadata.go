package event

import "github.com/shopspring/decimal"

// Usage accumulates model consumption for one generation task.
type Usage struct {
	PromptTokens        int             `json:"prompt_tokens"`
	CompletionTokens    int             `json:"completion_tokens"`
	TotalTokens         int             `json:"total_tokens"`
	PromptUnitPrice     decimal.Decimal `json:"prompt_unit_price"`
	CompletionUnitPrice decimal.Decimal `json:"completion_unit_price"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Currency            string          `json:"currency"`
	LatencySecs         float64         `json:"latency"`
}

// Add folds another usage sample into the accumulator. Prices are summed,
// latency keeps the max since provider calls overlap.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.TotalPrice = u.TotalPrice.Add(other.TotalPrice)
	if other.PromptUnitPrice.IsPositive() {
		u.PromptUnitPrice = other.PromptUnitPrice
	}
	if other.CompletionUnitPrice.IsPositive() {
		u.CompletionUnitPrice = other.CompletionUnitPrice
	}
	if other.Currency != "" {
		u.Currency = other.Currency
	}
	if other.LatencySecs > u.LatencySecs {
		u.LatencySecs = other.LatencySecs
	}
}

// Metadata is the aggregate attached to the terminal MessageEnd event and to
// blocking responses.
type Metadata struct {
	Usage              *Usage              `json:"usage,omitempty"`
	RetrieverResources []RetrieverResource `json:"retriever_resources,omitempty"`
}

// Simple returns a client-safe copy: unit prices and raw retrieval scores are
// internal-only and never reach untrusted clients.
func (m Metadata) Simple() Metadata {
	out := Metadata{}
	if m.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     m.Usage.PromptTokens,
			CompletionTokens: m.Usage.CompletionTokens,
			TotalTokens:      m.Usage.TotalTokens,
			LatencySecs:      m.Usage.LatencySecs,
		}
	}
	if len(m.RetrieverResources) > 0 {
		out.RetrieverResources = make([]RetrieverResource, len(m.RetrieverResources))
		for i, r := range m.RetrieverResources {
			r.Score = 0
			r.DocumentID = ""
			out.RetrieverResources[i] = r
		}
	}
	return out
}
