// Package dispatch implements the Dispatch Loop: route, select an
// endpoint, query it, and on a retryable failure mark it failed, exclude
// it, back off, and retry — up to MaxRetries attempts.
//
// Grounded on the teacher's client.go retry loop (attempt counter,
// exponential backoff via time.Sleep, exclusion accumulation) generalized
// from per-provider fallback to per-tier endpoint exclusion.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
	"github.com/octoroute/octoroute/internal/metrics"
	"github.com/octoroute/octoroute/internal/routing"
	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

// Router decides which tier a request should be dispatched to.
type Router interface {
	Route(ctx context.Context, prompt string, meta routing.Metadata) (routing.Decision, error)
}

// Selector picks a concrete healthy, non-excluded endpoint within a tier.
type Selector interface {
	Select(tier endpoint.Tier, exclude map[string]struct{}) (endpoint.Endpoint, bool)
}

// QueryClient streams a chat completion from a chosen endpoint.
type QueryClient interface {
	Complete(ctx context.Context, ep endpoint.Endpoint, prompt string, timeout time.Duration, maxBytes int) (string, error)
}

// TimeoutSource resolves the per-tier request timeout.
type TimeoutSource interface {
	TimeoutFor(tier endpoint.Tier) time.Duration
}

// Sleeper abstracts the retry-backoff sleep so tests can run without
// real wall-clock delay.
type Sleeper func(ctx context.Context, d time.Duration)

// RealSleeper sleeps for d or returns early if ctx is canceled.
func RealSleeper(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Loop ties the Router, Selector, QueryClient and Health Tracker together
// per the §4.7 contract.
type Loop struct {
	Router      Router
	Selector    Selector
	QueryClient QueryClient
	Health      *health.Tracker
	Timeouts    TimeoutSource
	Metrics     *metrics.Registry

	MaxRetries         int
	RetryBaseBackoffMS int
	Sleep              Sleeper
}

// Result is a successful dispatch outcome.
type Result struct {
	Content      string
	Tier         endpoint.Tier
	EndpointName string
	Strategy     routing.Strategy
	Warnings     []string
}

const defaultMaxRetries = 3
const defaultRetryBaseBackoffMS = 100

// Dispatch runs the full route→select→query→retry pipeline for one
// request.
func (l *Loop) Dispatch(ctx context.Context, prompt string, meta routing.Metadata) (Result, error) {
	maxRetries := l.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseBackoffMS := l.RetryBaseBackoffMS
	if baseBackoffMS <= 0 {
		baseBackoffMS = defaultRetryBaseBackoffMS
	}
	sleep := l.Sleep
	if sleep == nil {
		sleep = RealSleeper
	}

	decision, err := l.Router.Route(ctx, prompt, meta)
	if err != nil {
		return Result{}, err
	}
	if l.Metrics != nil {
		l.Metrics.RecordRoutingDecision(string(decision.Strategy), string(decision.Target))
	}

	excluded := make(map[string]struct{})
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ep, ok := l.Selector.Select(decision.Target, excluded)
		if !ok {
			return Result{}, octerrors.NewRoutingFailed(
				string(decision.Target),
				fmt.Sprintf("all endpoints in tier %q exhausted after %d attempt(s)", decision.Target, attempt-1),
			)
		}

		timeout := l.Timeouts.TimeoutFor(decision.Target)
		start := time.Now()
		content, queryErr := l.QueryClient.Complete(ctx, ep, prompt, timeout, 0)
		elapsed := time.Since(start).Seconds()

		if queryErr == nil {
			warnings := append([]string(nil), decision.Warnings...)
			if merr := l.Health.MarkSuccess(ep.Name); merr != nil {
				warnings = append(warnings, fmt.Sprintf("Health tracking failed: %v (endpoint health state may be stale)", merr))
			}
			if l.Metrics != nil {
				l.Metrics.RecordModelInvocationSuccess(string(decision.Target))
				l.Metrics.ObserveDispatchAttempt(string(decision.Target), "success", elapsed)
			}
			return Result{
				Content:      content,
				Tier:         decision.Target,
				EndpointName: ep.Name,
				Strategy:     decision.Strategy,
				Warnings:     warnings,
			}, nil
		}

		if merr := l.Health.MarkFailure(ep.Name); merr != nil {
			decision.Warnings = append(decision.Warnings, fmt.Sprintf("Health tracking failed: %v (endpoint health state may be stale)", merr))
		}
		excluded[ep.Name] = struct{}{}
		lastErr = queryErr
		if l.Metrics != nil {
			l.Metrics.ObserveDispatchAttempt(string(decision.Target), "failure", elapsed)
		}

		if !octerrors.IsRetryable(queryErr) {
			return Result{}, queryErr
		}
		if attempt < maxRetries {
			backoff := time.Duration(baseBackoffMS) * time.Millisecond * time.Duration(1<<(attempt-1))
			sleep(ctx, backoff)
		}
	}

	return Result{}, fmt.Errorf("dispatch exhausted %d attempt(s): %w", maxRetries, lastErr)
}
