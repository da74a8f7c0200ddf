package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octoroute/octoroute/internal/config"
	"github.com/octoroute/octoroute/internal/health"
	"github.com/octoroute/octoroute/internal/metrics"
	"github.com/octoroute/octoroute/internal/routing"
	"github.com/octoroute/octoroute/internal/selector"
)

func baseConfig(strategy config.Strategy) *config.Config {
	return &config.Config{
		Models: config.Models{
			Fast:     []config.ModelConfig{{Name: "fast-1", BaseURL: "http://fast.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
			Balanced: []config.ModelConfig{{Name: "balanced-1", BaseURL: "http://balanced.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
			Deep:     []config.ModelConfig{{Name: "deep-1", BaseURL: "http://deep.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
		},
		Routing: config.RoutingConfig{Strategy: strategy, RouterTier: "fast"},
	}
}

func TestBuildRouterRule(t *testing.T) {
	cfg := baseConfig(config.StrategyRule)
	tracker := health.New(cfg.Endpoints(), nil, metrics.New())
	sel := selector.New(cfg.EndpointsByTier(), tracker)

	r, err := buildRouter(cfg, sel, tracker, nil)
	require.NoError(t, err)
	_, ok := r.(routing.RuleRouter)
	assert.True(t, ok, "expected a RuleRouter for strategy=rule")
}

func TestBuildRouterLLM(t *testing.T) {
	cfg := baseConfig(config.StrategyLLM)
	tracker := health.New(cfg.Endpoints(), nil, metrics.New())
	sel := selector.New(cfg.EndpointsByTier(), tracker)

	r, err := buildRouter(cfg, sel, tracker, nil)
	require.NoError(t, err)
	llmRouter, ok := r.(*routing.LLMRouter)
	require.True(t, ok, "expected an *LLMRouter for strategy=llm")
	assert.Equal(t, "fast", string(llmRouter.RouterTier))
}

func TestBuildRouterHybrid(t *testing.T) {
	cfg := baseConfig(config.StrategyHybrid)
	tracker := health.New(cfg.Endpoints(), nil, metrics.New())
	sel := selector.New(cfg.EndpointsByTier(), tracker)

	r, err := buildRouter(cfg, sel, tracker, nil)
	require.NoError(t, err)
	hybrid, ok := r.(*routing.HybridRouter)
	require.True(t, ok, "expected a *HybridRouter for strategy=hybrid")
	assert.NotNil(t, hybrid.LLM)
}

func TestBuildRouterUnknownStrategy(t *testing.T) {
	cfg := baseConfig(config.Strategy("bogus"))
	tracker := health.New(cfg.Endpoints(), nil, metrics.New())
	sel := selector.New(cfg.EndpointsByTier(), tracker)

	_, err := buildRouter(cfg, sel, tracker, nil)
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseLogLevel(input), "input=%q", input)
	}
}
