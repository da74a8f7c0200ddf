// Package metrics exposes the Prometheus counters octoroute records.
//
// Grounded on the teacher's internal/metrics/prometheus.go (promauto-built
// CounterVec/Histogram with a namespace prefix), narrowed to the closed set
// of labels the design calls out: endpoint names are the only unbounded
// label, and they appear only on health_tracking_failures_total, where
// cardinality is bounded by the number of configured endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "octoroute"

// Registry holds every metric octoroute records. A Registry is created
// once at startup and passed by reference to every component that emits
// metrics; this avoids reliance on prometheus's global DefaultRegisterer
// so tests can construct isolated registries.
type Registry struct {
	reg *prometheus.Registry

	healthTrackingFailures *prometheus.CounterVec
	healthProbeLoopGaveUp  prometheus.Counter
	routingDecisions       *prometheus.CounterVec
	modelInvocationSuccess *prometheus.CounterVec
	dispatchAttempts       *prometheus.HistogramVec
}

// New builds a Registry and registers all metrics against it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		healthTrackingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_tracking_failures_total",
			Help:      "Count of health-tracking operation failures, by endpoint and error type.",
		}, []string{"endpoint", "error_type"}),
		healthProbeLoopGaveUp: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_probe_loop_gave_up_total",
			Help:      "Count of times the background health probe loop exhausted its restart budget.",
		}),
		routingDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Count of routing decisions, by strategy and target tier.",
		}, []string{"strategy", "tier"}),
		modelInvocationSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_invocation_success_total",
			Help:      "Count of successful model invocations, by tier.",
		}, []string{"tier"}),
		dispatchAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_attempt_duration_seconds",
			Help:      "Duration of a single dispatch attempt's model query, by tier and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier", "outcome"}),
	}
	reg.MustRegister(
		r.healthTrackingFailures,
		r.healthProbeLoopGaveUp,
		r.routingDecisions,
		r.modelInvocationSuccess,
		r.dispatchAttempts,
	)
	return r
}

// Gatherer exposes the underlying registry for /metrics exposition via
// promhttp.HandlerFor.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// RecordHealthTrackingFailure increments the per-endpoint, per-error-type
// health-tracking failure counter. Cardinality is bounded: error_type is a
// closed enum (pkg/errors.Kind) and endpoint is bounded by configuration.
func (r *Registry) RecordHealthTrackingFailure(endpointName, errorType string) {
	r.healthTrackingFailures.WithLabelValues(endpointName, errorType).Inc()
}

// RecordHealthProbeLoopGaveUp increments the counter for a supervisor that
// exhausted its restart budget.
func (r *Registry) RecordHealthProbeLoopGaveUp() {
	r.healthProbeLoopGaveUp.Inc()
}

// RecordRoutingDecision increments the routing-decision counter. Recorded
// before the model query is attempted, per the design's observable
// property that a failed query still counts as a routing decision.
func (r *Registry) RecordRoutingDecision(strategy, tier string) {
	r.routingDecisions.WithLabelValues(strategy, tier).Inc()
}

// RecordModelInvocationSuccess increments the success counter. Recorded
// only after a successful stream completes.
func (r *Registry) RecordModelInvocationSuccess(tier string) {
	r.modelInvocationSuccess.WithLabelValues(tier).Inc()
}

// ObserveDispatchAttempt records the duration of one dispatch attempt.
func (r *Registry) ObserveDispatchAttempt(tier, outcome string, seconds float64) {
	r.dispatchAttempts.WithLabelValues(tier, outcome).Observe(seconds)
}

// HealthTrackingFailureCount returns the current observed count for a
// given endpoint/error_type pair. The /health handler does not use it; it
// reads the health tracker's degraded flags instead.
func (r *Registry) HealthTrackingFailureCount(endpointName, errorType string) float64 {
	c, err := r.healthTrackingFailures.GetMetricWithLabelValues(endpointName, errorType)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
