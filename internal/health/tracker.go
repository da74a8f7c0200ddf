// Package health tracks per-endpoint health state and runs the background
// probe loop that keeps it current.
//
// Grounded on the teacher's internal/healthcheck.Prober (ticker-driven probe
// loop, per-probe HTTP client, goroutine lifecycle via context+done channel)
// and on the keyword-matching health_checker.go pattern from the retrieval
// pack for the snapshot/status shape.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	octerrors "github.com/octoroute/octoroute/pkg/errors"
	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/metrics"
)

// UnhealthyThreshold is the consecutive-failure count at which an endpoint
// is considered unhealthy. healthy ⇔ consecutive_failures < UnhealthyThreshold.
const UnhealthyThreshold = 3

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 10 * time.Second
)

// restartBackoffSchedule is the supervisor's capped exponential restart
// schedule for the background probe loop: 1, 2, 4, 8, 16s, then give up.
var restartBackoffSchedule = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
}

// Status is a copy-safe snapshot of one endpoint's health entry.
type Status struct {
	Name                 string
	Tier                 endpoint.Tier
	Healthy              bool
	ConsecutiveFailures  uint32
	LastCheckTime        time.Time
	LastError            string
	Degraded             bool
}

type entryState struct {
	tier                endpoint.Tier
	consecutiveFailures uint32
	healthy             bool
	lastCheckTime       time.Time
	lastError           string
	degraded            bool
}

// Tracker maintains one HealthEntry per configured endpoint under a single
// readers-writer lock, per the design notes: a per-entry lock is
// unnecessary at the expected scale (endpoints in the tens).
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entryState

	endpoints []endpoint.Endpoint
	client    *http.Client
	logger    *slog.Logger
	metrics   *metrics.Registry

	probeInterval time.Duration
	probeTimeout  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Tracker with one healthy entry per endpoint. Endpoints must
// be non-empty; each name must be unique (enforced by config validation
// before this constructor is reached).
func New(endpoints []endpoint.Endpoint, logger *slog.Logger, reg *metrics.Registry) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	entries := make(map[string]*entryState, len(endpoints))
	now := time.Now()
	for _, ep := range endpoints {
		entries[ep.Name] = &entryState{
			tier:          ep.Tier,
			healthy:       true,
			lastCheckTime: now,
		}
	}
	return &Tracker{
		entries:       entries,
		endpoints:     endpoints,
		logger:        logger,
		metrics:       reg,
		probeInterval: defaultProbeInterval,
		probeTimeout:  defaultProbeTimeout,
		client:        &http.Client{Timeout: defaultProbeTimeout},
	}
}

// MarkSuccess resets the endpoint's failure counter and marks it healthy.
// Idempotent. Returns UnknownEndpoint if name was never registered.
func (t *Tracker) MarkSuccess(name string) error {
	t.mu.Lock()
	e, ok := t.entries[name]
	if !ok {
		t.mu.Unlock()
		t.countFailure(name, octerrors.KindUnknownEndpoint)
		return octerrors.NewUnknownEndpoint(name)
	}
	e.consecutiveFailures = 0
	e.healthy = true
	e.lastCheckTime = time.Now()
	e.lastError = ""
	t.mu.Unlock()
	return nil
}

// MarkFailure increments the endpoint's consecutive-failure counter
// (saturating) and recomputes healthy. Returns UnknownEndpoint if name was
// never registered.
func (t *Tracker) MarkFailure(name string) error {
	return t.markFailureWithCause(name, "")
}

// MarkFailureWithCause is MarkFailure plus an operator-visible cause string
// recorded on the entry for the next status snapshot.
func (t *Tracker) MarkFailureWithCause(name, cause string) error {
	return t.markFailureWithCause(name, cause)
}

func (t *Tracker) markFailureWithCause(name, cause string) error {
	t.mu.Lock()
	e, ok := t.entries[name]
	if !ok {
		t.mu.Unlock()
		t.countFailure(name, octerrors.KindUnknownEndpoint)
		return octerrors.NewUnknownEndpoint(name)
	}
	if e.consecutiveFailures < ^uint32(0) {
		e.consecutiveFailures++
	}
	e.healthy = e.consecutiveFailures < UnhealthyThreshold
	e.lastCheckTime = time.Now()
	if cause != "" {
		e.lastError = cause
	}
	t.mu.Unlock()
	return nil
}

// IsHealthy reads the current health state. Unknown names report
// unhealthy so selection never routes to an endpoint it doesn't track.
func (t *Tracker) IsHealthy(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	if !ok {
		return false
	}
	return e.healthy
}

// AllStatuses returns a snapshot of every tracked endpoint, used by the
// operational HTTP endpoints.
func (t *Tracker) AllStatuses() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Status, 0, len(t.entries))
	for name, e := range t.entries {
		out = append(out, Status{
			Name:                name,
			Tier:                e.tier,
			Healthy:             e.healthy,
			ConsecutiveFailures: e.consecutiveFailures,
			LastCheckTime:       e.lastCheckTime,
			LastError:           e.lastError,
			Degraded:            e.degraded,
		})
	}
	return out
}

// markDegraded flags an entry as degraded without altering its health
// counters — used when a health-tracking operation itself fails (e.g. the
// probe couldn't build an HTTP client). Health tracking failures must never
// fail the user-facing request that triggered them.
func (t *Tracker) markDegraded(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[name]; ok {
		e.degraded = true
	}
}

func (t *Tracker) countFailure(endpointName string, kind octerrors.Kind) {
	if t.metrics != nil {
		t.metrics.RecordHealthTrackingFailure(endpointName, string(kind))
	}
}

// Start launches the supervised background probe loop. It returns
// immediately; the loop runs until ctx is canceled or Stop is called.
func (t *Tracker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.supervise(ctx)
}

// Stop cancels the probe loop and waits for it to exit.
func (t *Tracker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
}

// supervise runs the probe loop and restarts it with capped exponential
// backoff if it ever returns from a panic. The loop itself does not panic
// in normal operation; this defends against the unexpected, per the
// design's requirement that the background task "survive its own faults".
func (t *Tracker) supervise(ctx context.Context) {
	defer close(t.done)
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		exited := t.runLoopGuarded(ctx)
		if !exited {
			return
		}
		if attempt >= len(restartBackoffSchedule) {
			t.logger.Error("health probe loop exhausted restart attempts, giving up")
			if t.metrics != nil {
				t.metrics.RecordHealthProbeLoopGaveUp()
			}
			return
		}
		backoff := restartBackoffSchedule[attempt]
		attempt++
		t.logger.Warn("health probe loop restarting", "attempt", attempt, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// runLoopGuarded runs runLoop, recovering from a panic so the supervisor
// can decide whether to restart. It returns true if the loop exited
// abnormally (panic) and should be restarted, false if ctx was canceled.
func (t *Tracker) runLoopGuarded(ctx context.Context) (exitedAbnormally bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("health probe loop panicked", "recovered", r)
			exitedAbnormally = true
		}
	}()
	t.runLoop(ctx)
	return false
}

func (t *Tracker) runLoop(ctx context.Context) {
	t.probeAll(ctx)
	ticker := time.NewTicker(t.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.probeAll(ctx)
		}
	}
}

func (t *Tracker) probeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ep := range t.endpoints {
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.probeOne(ctx, ep)
		}()
	}
	wg.Wait()
}

// probeOne issues a GET to {base_url}/models, treating 2xx as success and
// anything else — including a transport error — as failure.
func (t *Tracker) probeOne(ctx context.Context, ep endpoint.Endpoint) {
	reqCtx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.HealthCheckURL(), nil)
	if err != nil {
		t.markDegraded(ep.Name)
		t.countFailure(ep.Name, octerrors.KindInvalidURL)
		_ = t.markFailureWithCause(ep.Name, fmt.Sprintf("invalid health check url: %v", err))
		return
	}

	resp, err := t.client.Do(req)
	if err != nil {
		_ = t.markFailureWithCause(ep.Name, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_ = t.MarkSuccess(ep.Name)
		return
	}
	_ = t.markFailureWithCause(ep.Name, fmt.Sprintf("probe returned status %d", resp.StatusCode))
}
