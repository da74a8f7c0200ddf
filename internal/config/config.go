// Package config loads and validates the frozen startup snapshot the core
// runs against: tiers and their endpoints, routing strategy, router tier,
// per-tier timeouts, and retry parameters.
//
// Grounded on the teacher's internal/config.Config (nested structs per
// concern, a Validate method, defaults applied before validation) but
// serialized as TOML instead of the teacher's YAML, per the retrieval
// pack's mazori-ai-modelgate config shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/octoroute/octoroute/internal/endpoint"
	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

const (
	defaultUnhealthyThreshold = 3
	defaultMaxRetries         = 3
	defaultRetryBaseBackoffMS = 100
	defaultMaxRouterResponse  = 1024
	defaultRequestTimeout     = 30 * time.Second
)

// Strategy is the configured routing strategy.
type Strategy string

const (
	StrategyRule   Strategy = "rule"
	StrategyLLM    Strategy = "llm"
	StrategyHybrid Strategy = "hybrid"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// ModelConfig is the TOML shape of one [[models.<tier>]] entry.
type ModelConfig struct {
	Name        string  `toml:"name"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Weight      float64 `toml:"weight"`
	Priority    int     `toml:"priority"`
}

// RouterTimeouts holds the three required per-tier timeout overrides for
// LLM-router classification calls. All three fields are required together
// when the [routing.router_timeouts] table is present at all.
type RouterTimeouts struct {
	Fast     int `toml:"fast"`
	Balanced int `toml:"balanced"`
	Deep     int `toml:"deep"`
}

// RoutingConfig holds the [routing] table.
type RoutingConfig struct {
	Strategy          Strategy        `toml:"strategy"`
	DefaultImportance string          `toml:"default_importance"`
	RouterTier        string          `toml:"router_tier"`
	RouterTimeouts    *RouterTimeouts `toml:"router_timeouts"`
	MaxRouterResponse int             `toml:"max_router_response"`
}

// ObservabilityConfig holds the [observability] table. The core's
// observability surface is structured logging plus the bounded Prometheus
// counter family; no exporters or formats are configurable beyond level.
type ObservabilityConfig struct {
	LogLevel string `toml:"log_level"`
}

// TimeoutsConfig holds the [timeouts] table: per-tier request timeout
// overrides, in seconds. Zero means "use the default".
type TimeoutsConfig struct {
	FastSeconds     int `toml:"fast"`
	BalancedSeconds int `toml:"balanced"`
	DeepSeconds     int `toml:"deep"`
}

// Models holds the three [[models.*]] tables.
type Models struct {
	Fast     []ModelConfig `toml:"fast"`
	Balanced []ModelConfig `toml:"balanced"`
	Deep     []ModelConfig `toml:"deep"`
}

// Config is the root of the TOML document, and the frozen snapshot passed
// to every core component after Load succeeds.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Models        Models              `toml:"models"`
	Routing       RoutingConfig       `toml:"routing"`
	Observability ObservabilityConfig `toml:"observability"`
	Timeouts      TimeoutsConfig      `toml:"timeouts"`

	UnhealthyThreshold int `toml:"-"`
	MaxRetries         int `toml:"-"`
	RetryBaseBackoffMS int `toml:"-"`
}

// Load reads path, applies defaults, validates, and returns the frozen
// Config. The underlying I/O or TOML parse error is preserved via %w so
// operators see the errno or line:column.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, octerrors.NewConfigError(fmt.Errorf("read config %s: %w", path, err))
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, octerrors.NewConfigError(fmt.Errorf("parse config %s: %w", path, err))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, octerrors.NewConfigError(err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Routing.Strategy == "" {
		c.Routing.Strategy = StrategyHybrid
	}
	if c.Routing.DefaultImportance == "" {
		c.Routing.DefaultImportance = "normal"
	}
	if c.Routing.MaxRouterResponse == 0 {
		c.Routing.MaxRouterResponse = defaultMaxRouterResponse
	}
	c.UnhealthyThreshold = defaultUnhealthyThreshold
	c.MaxRetries = defaultMaxRetries
	c.RetryBaseBackoffMS = defaultRetryBaseBackoffMS
}

// validRouterTiers lists the lowercase tier names router_tier may name.
// The check is case-sensitive by design — "FAST" or "Balanced" must be
// rejected rather than silently folded, so a typo in an operator's TOML
// surfaces at startup instead of silently routing classification traffic
// to the wrong tier.
var validRouterTiers = []string{"fast", "balanced", "deep"}

// Validate enforces every fail-fast rule from spec §6.3. All endpoint
// names across all tiers must be unique; every tier must have at least
// one endpoint.
func (c *Config) Validate() error {
	if len(c.Models.Fast) == 0 || len(c.Models.Balanced) == 0 || len(c.Models.Deep) == 0 {
		return configErrf("every tier must have at least one endpoint configured")
	}

	seen := make(map[string]struct{})
	for tierName, models := range map[string][]ModelConfig{
		"fast": c.Models.Fast, "balanced": c.Models.Balanced, "deep": c.Models.Deep,
	} {
		for _, m := range models {
			ep := endpoint.Endpoint{
				Name: m.Name, BaseURL: m.BaseURL, MaxTokens: m.MaxTokens,
				Temperature: m.Temperature, Weight: m.Weight, Priority: m.Priority,
				Tier: endpoint.Tier(tierName),
			}
			if err := ep.Validate(); err != nil {
				return configErrf("%v", err)
			}
			if _, dup := seen[m.Name]; dup {
				return configErrf("endpoint name %q is used more than once across tiers", m.Name)
			}
			seen[m.Name] = struct{}{}
		}
	}

	switch c.Routing.Strategy {
	case StrategyRule, StrategyLLM, StrategyHybrid:
	default:
		return configErrf("routing.strategy must be one of rule|llm|hybrid, got %q", c.Routing.Strategy)
	}

	if c.Routing.Strategy == StrategyLLM || c.Routing.Strategy == StrategyHybrid {
		if !isValidRouterTier(c.Routing.RouterTier) {
			return configErrf(
				"routing.router_tier must be one of %s (case-sensitive, lowercase) — got %q",
				strings.Join(validRouterTiers, ", "), c.Routing.RouterTier,
			)
		}
	}

	if rt := c.Routing.RouterTimeouts; rt != nil {
		if rt.Fast <= 0 || rt.Balanced <= 0 || rt.Deep <= 0 {
			return configErrf("routing.router_timeouts requires all of fast, balanced, deep to be > 0 when the table is present")
		}
	}

	for name, seconds := range map[string]int{
		"fast": c.Timeouts.FastSeconds, "balanced": c.Timeouts.BalancedSeconds, "deep": c.Timeouts.DeepSeconds,
	} {
		if seconds < 0 {
			return configErrf("timeouts.%s must be >= 0, got %d", name, seconds)
		}
	}

	return nil
}

func isValidRouterTier(tier string) bool {
	for _, v := range validRouterTiers {
		if tier == v {
			return true
		}
	}
	return false
}

func configErrf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Endpoints flattens the three tiers into the slice internal/health and
// internal/selector expect.
func (c *Config) Endpoints() []endpoint.Endpoint {
	var out []endpoint.Endpoint
	for tierName, models := range map[endpoint.Tier][]ModelConfig{
		endpoint.Fast: c.Models.Fast, endpoint.Balanced: c.Models.Balanced, endpoint.Deep: c.Models.Deep,
	} {
		for _, m := range models {
			out = append(out, endpoint.Endpoint{
				Name: m.Name, BaseURL: m.BaseURL, MaxTokens: m.MaxTokens,
				Temperature: m.Temperature, Weight: m.Weight, Priority: m.Priority,
				Tier: tierName,
			})
		}
	}
	return out
}

// EndpointsByTier groups Endpoints() by tier, the shape internal/selector
// consumes directly.
func (c *Config) EndpointsByTier() map[endpoint.Tier][]endpoint.Endpoint {
	out := map[endpoint.Tier][]endpoint.Endpoint{
		endpoint.Fast:     {},
		endpoint.Balanced: {},
		endpoint.Deep:     {},
	}
	for _, ep := range c.Endpoints() {
		out[ep.Tier] = append(out[ep.Tier], ep)
	}
	return out
}

// TimeoutFor returns the configured request timeout for tier, falling
// back to defaultRequestTimeout when no override is set.
func (c *Config) TimeoutFor(tier endpoint.Tier) time.Duration {
	var seconds int
	switch tier {
	case endpoint.Fast:
		seconds = c.Timeouts.FastSeconds
	case endpoint.Balanced:
		seconds = c.Timeouts.BalancedSeconds
	case endpoint.Deep:
		seconds = c.Timeouts.DeepSeconds
	}
	if seconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(seconds) * time.Second
}

// RouterTimeoutFor returns the timeout the LLM router should use when
// issuing a classification prompt to routerTier, falling back to
// TimeoutFor(routerTier) when no router-specific override is configured.
func (c *Config) RouterTimeoutFor(routerTier endpoint.Tier) time.Duration {
	if rt := c.Routing.RouterTimeouts; rt != nil {
		var seconds int
		switch routerTier {
		case endpoint.Fast:
			seconds = rt.Fast
		case endpoint.Balanced:
			seconds = rt.Balanced
		case endpoint.Deep:
			seconds = rt.Deep
		}
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.TimeoutFor(routerTier)
}
