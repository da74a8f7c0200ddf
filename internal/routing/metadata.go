// Package routing implements the Rule, LLM, and Hybrid routers and the
// RouteMetadata fingerprint they consume.
package routing

import (
	"context"

	"github.com/octoroute/octoroute/internal/endpoint"
)

// Importance is the caller-supplied or config-defaulted urgency of a
// request; it biases routing toward higher capability tiers.
type Importance string

const (
	Low      Importance = "low"
	Normal   Importance = "normal"
	High     Importance = "high"
	Critical Importance = "critical"
)

// TaskType classifies the kind of work a prompt represents.
type TaskType string

const (
	CasualChat      TaskType = "casual_chat"
	Code            TaskType = "code"
	CreativeWriting TaskType = "creative_writing"
	DeepAnalysis    TaskType = "deep_analysis"
	QuestionAnswer  TaskType = "question_answer"
	UnknownTask     TaskType = "unknown"
)

// Metadata is the request fingerprint the routers decide on.
type Metadata struct {
	TokenEstimate uint32
	Importance    Importance
	TaskType      TaskType
}

// EstimateTokens derives a token estimate from prompt length using the
// simple len/4 heuristic the design calls for.
func EstimateTokens(prompt string) uint32 {
	return uint32(len(prompt)) / 4
}

// Strategy is the routing strategy that produced a Decision. Hybrid never
// appears here — it is a composer, not a third peer, and always resolves
// to one of these two on the wire.
type Strategy string

const (
	StrategyRule Strategy = "rule"
	StrategyLLM  Strategy = "llm"
)

// Decision is the outcome of a routing call: which tier to dispatch to,
// which strategy decided it, and any non-fatal warnings accumulated along
// the way (most commonly a health-tracking degradation).
type Decision struct {
	Target   endpoint.Tier
	Strategy Strategy
	Warnings []string
}

// Router decides which tier a request should be dispatched to.
type Router interface {
	Route(ctx context.Context, prompt string, meta Metadata) (Decision, error)
}
