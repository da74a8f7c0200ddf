// Package endpoint defines the Endpoint entity and the capability tiers
// it belongs to.
package endpoint

import (
	"fmt"
	"net/url"
)

// Tier is a capability class of backend model. Lower tiers trade quality
// for latency; higher tiers trade latency for quality.
type Tier string

const (
	Fast     Tier = "fast"
	Balanced Tier = "balanced"
	Deep     Tier = "deep"
)

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	switch t {
	case Fast, Balanced, Deep:
		return true
	default:
		return false
	}
}

// Endpoint is an immutable upstream model target belonging to exactly one
// tier. Name is the unique key used by the health tracker and the
// exclusion set.
type Endpoint struct {
	Name        string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Weight      float64
	Priority    int
	Tier        Tier
}

// Validate checks the invariants every configured endpoint must satisfy.
func (e Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("endpoint name must not be empty")
	}
	if e.MaxTokens <= 0 {
		return fmt.Errorf("endpoint %q: max_tokens must be > 0, got %d", e.Name, e.MaxTokens)
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("endpoint %q: temperature must be in [0, 2], got %f", e.Name, e.Temperature)
	}
	if e.Weight <= 0 {
		return fmt.Errorf("endpoint %q: weight must be > 0, got %f", e.Name, e.Weight)
	}
	if e.Priority < 1 {
		return fmt.Errorf("endpoint %q: priority must be >= 1, got %d", e.Name, e.Priority)
	}
	if !e.Tier.Valid() {
		return fmt.Errorf("endpoint %q: invalid tier %q", e.Name, e.Tier)
	}
	u, err := url.Parse(e.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint %q: base_url %q is not a valid absolute URL", e.Name, e.BaseURL)
	}
	return nil
}

// HealthCheckURL returns the URL the health tracker probes for this
// endpoint. base_url is used verbatim — it must not duplicate a trailing
// "/v1" segment.
func (e Endpoint) HealthCheckURL() string {
	return e.BaseURL + "/models"
}

// CompletionsURL returns the URL the query client POSTs chat completion
// requests to.
func (e Endpoint) CompletionsURL() string {
	return e.BaseURL + "/chat/completions"
}
