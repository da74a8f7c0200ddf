package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octoroute/octoroute/internal/api"
	"github.com/octoroute/octoroute/internal/config"
	"github.com/octoroute/octoroute/internal/dispatch"
	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
	"github.com/octoroute/octoroute/internal/metrics"
	"github.com/octoroute/octoroute/internal/observability"
	"github.com/octoroute/octoroute/internal/queryclient"
	"github.com/octoroute/octoroute/internal/routing"
	"github.com/octoroute/octoroute/internal/selector"
)

// runServer loads configuration, wires the core pipeline, and serves HTTP
// until SIGINT/SIGTERM, then shuts down gracefully.
func runServer(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logLevel := parseLogLevel(cfg.Observability.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("starting octoroute", "config", configPath, "strategy", cfg.Routing.Strategy)

	reg := metrics.New()
	healthTracker := health.New(cfg.Endpoints(), logger, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	healthTracker.Start(ctx)
	defer healthTracker.Stop()

	byTier := cfg.EndpointsByTier()
	sel := selector.New(byTier, healthTracker)
	queryClient := queryclient.New(&http.Client{})

	router, err := buildRouter(cfg, sel, healthTracker, queryClient)
	if err != nil {
		return err
	}

	loop := &dispatch.Loop{
		Router:             router,
		Selector:           sel,
		QueryClient:        queryClient,
		Health:             healthTracker,
		Timeouts:           cfg,
		Metrics:            reg,
		MaxRetries:         cfg.MaxRetries,
		RetryBaseBackoffMS: cfg.RetryBaseBackoffMS,
	}

	handler := &api.Handler{
		Cfg:     cfg,
		Loop:    loop,
		Health:  healthTracker,
		Metrics: reg,
		Logger:  logger,
	}

	mux := handler.Routes()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))

	var httpHandler http.Handler = mux
	httpHandler = observability.RequestIDMiddleware(httpHandler)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses may run longer than the deep tier's timeout
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
	return nil
}

// buildRouter composes the Rule/LLM/Hybrid router tree per the configured
// strategy. The LLM router (used directly by "llm" and as the Hybrid
// fallback) always draws its classification endpoint from the configured
// router tier, which must already be validated non-empty by config.Load.
func buildRouter(cfg *config.Config, sel *selector.Selector, tracker *health.Tracker, qc *queryclient.Client) (dispatch.Router, error) {
	switch cfg.Routing.Strategy {
	case config.StrategyRule:
		return routing.RuleRouter{}, nil
	case config.StrategyLLM:
		return newLLMRouter(cfg, sel, tracker, qc), nil
	case config.StrategyHybrid:
		return &routing.HybridRouter{LLM: newLLMRouter(cfg, sel, tracker, qc)}, nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", cfg.Routing.Strategy)
	}
}

func newLLMRouter(cfg *config.Config, sel *selector.Selector, tracker *health.Tracker, qc *queryclient.Client) *routing.LLMRouter {
	routerTier := endpoint.Tier(cfg.Routing.RouterTier)
	return &routing.LLMRouter{
		Selector:         sel,
		Health:           tracker,
		Client:           qc,
		RouterTier:       routerTier,
		Timeout:          cfg.RouterTimeoutFor(routerTier),
		MaxResponseBytes: cfg.Routing.MaxRouterResponse,
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
