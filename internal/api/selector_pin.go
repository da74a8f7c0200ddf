package api

import (
	"context"

	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/routing"
)

// pinnedSelector always returns the single wrapped endpoint, unless it has
// already been added to the exclusion set — at which point every
// candidate is exhausted, the same semantics a real priority group of one
// member has. This gives a model-field pin (spec §6.2) exactly one
// dispatch attempt: once it fails it is excluded, and there is nothing
// left to fall back to within the pin.
type pinnedSelector struct {
	ep endpoint.Endpoint
}

func (p pinnedSelector) Select(_ endpoint.Tier, exclude map[string]struct{}) (endpoint.Endpoint, bool) {
	if _, excluded := exclude[p.ep.Name]; excluded {
		return endpoint.Endpoint{}, false
	}
	return p.ep, true
}

// pinnedRouter always returns the wrapped decision — the model field named
// an endpoint directly, so neither the rule table nor the LLM classifier is
// consulted. The handler labels that decision StrategyRule. The
// pinnedSelector the dispatch loop consults next checks only the exclusion
// set, not the health tracker, so a pinned endpoint is tried even when it
// is marked unhealthy.
type pinnedRouter struct {
	decision routing.Decision
}

func (p pinnedRouter) Route(_ context.Context, _ string, _ routing.Metadata) (routing.Decision, error) {
	return p.decision, nil
}
