package routing

import (
	"context"
	"fmt"

	octerrors "github.com/octoroute/octoroute/pkg/errors"
	"github.com/octoroute/octoroute/internal/endpoint"
)

// RuleRouter is a deterministic, CPU-only metadata→tier mapping. It never
// performs I/O and completes in well under a millisecond.
//
// Grounded on the retrieval pack's keyword-table routing pattern
// (other_examples mazori-ai-modelgate's detectTaskType), adapted here from
// keyword lookup to the metadata table the design specifies.
type RuleRouter struct{}

// ruleDecide applies the deterministic table. The CasualChat+High row is
// checked before the general High/Critical→Deep row because it is the
// more specific case: an ambiguous combination the table deliberately
// leaves undecided rather than guessing.
func ruleDecide(meta Metadata) (endpoint.Tier, bool) {
	if meta.TaskType == CasualChat && meta.Importance == High {
		return "", false
	}
	if meta.TaskType == DeepAnalysis || meta.TaskType == CreativeWriting {
		return endpoint.Deep, true
	}
	if meta.Importance == High || meta.Importance == Critical {
		return endpoint.Deep, true
	}
	if meta.TaskType == Code || meta.TaskType == QuestionAnswer {
		if meta.Importance == Normal {
			return endpoint.Balanced, true
		}
	}
	if meta.TaskType == CasualChat && (meta.Importance == Low || meta.Importance == Normal) {
		return endpoint.Fast, true
	}
	return "", false
}

// Route implements Router. When the table has no applicable row it
// returns a RoutingFailed error naming the metadata that produced no
// decision; Hybrid bypasses this and calls ruleDecide directly so it can
// fall back to the LLM router instead of failing outright.
func (RuleRouter) Route(_ context.Context, _ string, meta Metadata) (Decision, error) {
	tier, ok := ruleDecide(meta)
	if !ok {
		return Decision{}, octerrors.NewRoutingFailed(
			"",
			fmt.Sprintf("rule router produced no decision for task_type=%s importance=%s", meta.TaskType, meta.Importance),
		)
	}
	return Decision{Target: tier, Strategy: StrategyRule}, nil
}
