package routing

import "context"

// HybridRouter tries the Rule router first and falls back to the LLM
// router only when Rule has no applicable row. It does not wrap the LLM
// error on failure — the original error type is propagated unchanged so
// the dispatch loop's retry logic can inspect its retryability.
type HybridRouter struct {
	LLM *LLMRouter
}

// Route implements Router.
func (h *HybridRouter) Route(ctx context.Context, prompt string, meta Metadata) (Decision, error) {
	if tier, ok := ruleDecide(meta); ok {
		return Decision{Target: tier, Strategy: StrategyRule}, nil
	}
	return h.LLM.Route(ctx, prompt, meta)
}
