package llm

import "sync"

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model identifiers to their pricing.
var priceTable = map[string]modelPricing{
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1":     {InputPerMillion: 2.00, OutputPerMillion: 8.00},
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Returns 0 if the model is not found in the price table.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := priceTable[model]
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// CostTracker accumulates token usage and estimated spend per session.
type CostTracker struct {
	mu    sync.Mutex
	usage map[string]*Usage
}

// Usage is the accumulated consumption for one session.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Calls        int
	CostUSD      float64
}

// NewCostTracker creates an empty tracker.
func NewCostTracker() *CostTracker {
	return &CostTracker{usage: make(map[string]*Usage)}
}

// Record adds one completion's usage to the session's running total.
func (t *CostTracker) Record(sessionID, model string, inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.usage[sessionID]
	if !ok {
		u = &Usage{}
		t.usage[sessionID] = u
	}
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.Calls++
	u.CostUSD += EstimateCost(model, inputTokens, outputTokens)
}

// SessionUsage returns a copy of the accumulated usage for the session.
func (t *CostTracker) SessionUsage(sessionID string) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u, ok := t.usage[sessionID]; ok {
		return *u
	}
	return Usage{}
}
