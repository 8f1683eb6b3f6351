package agent

import (
	"sync"

	"github.com/warroomlabs/warroom/pkg/models"
)

// ModelPricing contains pricing per 1M tokens for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultModelPricing contains pricing for known Claude models.
var DefaultModelPricing = map[string]ModelPricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// Cost estimates the USD cost of the given usage for a model.
// Unknown models cost zero rather than guessing.
func Cost(model string, usage models.TokenUsage) float64 {
	pricing, ok := DefaultModelPricing[model]
	if !ok {
		return 0
	}
	inputCost := float64(usage.InputTokens) / 1_000_000 * pricing.InputPerMillion
	outputCost := float64(usage.OutputTokens) / 1_000_000 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// UsageTracker accumulates token usage across runs.
type UsageTracker struct {
	mu    sync.Mutex
	usage models.TokenUsage
	calls int
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Add records usage from one run.
func (t *UsageTracker) Add(usage models.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Add(usage)
	t.calls++
}

// Total returns the accumulated usage.
func (t *UsageTracker) Total() models.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Calls returns the number of runs recorded.
func (t *UsageTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
