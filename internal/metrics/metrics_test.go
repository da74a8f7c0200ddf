package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordHealthTrackingFailure(t *testing.T) {
	r := New()
	r.RecordHealthTrackingFailure("fast-1", "unknown_endpoint")
	r.RecordHealthTrackingFailure("fast-1", "unknown_endpoint")
	r.RecordHealthTrackingFailure("fast-2", "unknown_endpoint")

	assert.Equal(t, float64(2), r.HealthTrackingFailureCount("fast-1", "unknown_endpoint"))
	assert.Equal(t, float64(1), r.HealthTrackingFailureCount("fast-2", "unknown_endpoint"))
	assert.Equal(t, float64(0), r.HealthTrackingFailureCount("fast-3", "unknown_endpoint"))
}

func TestRegistryGathererExposesRegisteredMetrics(t *testing.T) {
	r := New()
	r.RecordRoutingDecision("rule", "fast")
	families, err := r.Gatherer().Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
