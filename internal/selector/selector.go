// Package selector implements the Endpoint Selector: priority-grouped,
// weighted-random choice among healthy, non-excluded endpoints of a tier.
//
// The weighted-random scan is grounded on the teacher's
// internal/router.SimpleShuffleRouter.weightedPick: normalize weights,
// draw a uniform float, walk the cumulative sum, and fall back to the last
// candidate for floating-point safety.
package selector

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
)

func randSeed() int64 { return time.Now().UnixNano() }

// Selector picks a concrete Endpoint within a tier.
type Selector struct {
	byTier map[endpoint.Tier][]endpoint.Endpoint
	health *health.Tracker

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New builds a Selector over the given tier→endpoints map, consulting
// tracker for health state at selection time.
func New(byTier map[endpoint.Tier][]endpoint.Endpoint, tracker *health.Tracker) *Selector {
	return &Selector{
		byTier: byTier,
		health: tracker,
		rng:    rand.New(rand.NewSource(randSeed())),
	}
}

// Select returns a healthy, non-excluded endpoint from tier, preferring
// the lowest-numbered priority group and choosing within that group by
// weighted random draw. Returns ok=false only when every candidate in
// every priority group is unhealthy or excluded.
func (s *Selector) Select(tier endpoint.Tier, exclude map[string]struct{}) (endpoint.Endpoint, bool) {
	candidates := make([]endpoint.Endpoint, 0, len(s.byTier[tier]))
	for _, ep := range s.byTier[tier] {
		if _, excluded := exclude[ep.Name]; excluded {
			continue
		}
		if !s.health.IsHealthy(ep.Name) {
			continue
		}
		candidates = append(candidates, ep)
	}
	if len(candidates) == 0 {
		return endpoint.Endpoint{}, false
	}

	lowestPriority := candidates[0].Priority
	for _, c := range candidates[1:] {
		if c.Priority < lowestPriority {
			lowestPriority = c.Priority
		}
	}
	group := candidates[:0:0]
	for _, c := range candidates {
		if c.Priority == lowestPriority {
			group = append(group, c)
		}
	}
	sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })

	return s.weightedPick(group), true
}

// weightedPick performs a cumulative-weight scan over a uniform draw in
// [0, Σw). Falls back to the last candidate to guard against floating
// point rounding leaving the draw just past the last cumulative boundary.
func (s *Selector) weightedPick(group []endpoint.Endpoint) endpoint.Endpoint {
	if len(group) == 1 {
		return group[0]
	}

	var total float64
	for _, ep := range group {
		total += ep.Weight
	}
	if total <= 0 {
		return group[s.intn(len(group))]
	}

	draw := s.float64() * total
	var cumulative float64
	for _, ep := range group {
		cumulative += ep.Weight
		if draw <= cumulative {
			return ep
		}
	}
	return group[len(group)-1]
}

func (s *Selector) float64() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Selector) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
