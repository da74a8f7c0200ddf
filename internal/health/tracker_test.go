package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octoroute/octoroute/internal/endpoint"
)

func newTestTracker(t *testing.T, names ...string) *Tracker {
	t.Helper()
	eps := make([]endpoint.Endpoint, 0, len(names))
	for _, n := range names {
		eps = append(eps, endpoint.Endpoint{Name: n, BaseURL: "http://example.invalid", Tier: endpoint.Fast, MaxTokens: 1, Weight: 1, Priority: 1, Temperature: 1})
	}
	return New(eps, nil, nil)
}

func TestMarkSuccessResetsCounter(t *testing.T) {
	tr := newTestTracker(t, "fast-1")
	require.NoError(t, tr.MarkFailure("fast-1"))
	require.NoError(t, tr.MarkFailure("fast-1"))
	require.NoError(t, tr.MarkSuccess("fast-1"))

	statuses := tr.AllStatuses()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, uint32(0), statuses[0].ConsecutiveFailures)
}

func TestHealthInvariantHoldsAfterEveryTransition(t *testing.T) {
	tr := newTestTracker(t, "fast-1")
	ops := []string{"f", "f", "f", "s", "f", "f", "f", "f", "s"}
	for _, op := range ops {
		if op == "f" {
			require.NoError(t, tr.MarkFailure("fast-1"))
		} else {
			require.NoError(t, tr.MarkSuccess("fast-1"))
		}
		st := tr.AllStatuses()[0]
		if st.Healthy {
			assert.Less(t, st.ConsecutiveFailures, uint32(UnhealthyThreshold))
		} else {
			assert.GreaterOrEqual(t, st.ConsecutiveFailures, uint32(UnhealthyThreshold))
		}
	}
}

func TestUnhealthyAfterThreeFailures(t *testing.T) {
	tr := newTestTracker(t, "fast-1")
	require.NoError(t, tr.MarkFailure("fast-1"))
	assert.True(t, tr.IsHealthy("fast-1"))
	require.NoError(t, tr.MarkFailure("fast-1"))
	assert.True(t, tr.IsHealthy("fast-1"))
	require.NoError(t, tr.MarkFailure("fast-1"))
	assert.False(t, tr.IsHealthy("fast-1"))
}

func TestUnknownEndpointReturnsError(t *testing.T) {
	tr := newTestTracker(t, "fast-1")
	assert.Error(t, tr.MarkSuccess("ghost"))
	assert.Error(t, tr.MarkFailure("ghost"))
	assert.False(t, tr.IsHealthy("ghost"))
}

func TestMarkSuccessIdempotent(t *testing.T) {
	tr := newTestTracker(t, "fast-1")
	require.NoError(t, tr.MarkSuccess("fast-1"))
	require.NoError(t, tr.MarkSuccess("fast-1"))
	assert.True(t, tr.IsHealthy("fast-1"))
}

func TestProbeMarksSuccessOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	eps := []endpoint.Endpoint{{Name: "fast-1", BaseURL: srv.URL, Tier: endpoint.Fast, MaxTokens: 1, Weight: 1, Priority: 1, Temperature: 1}}
	tr := New(eps, nil, nil)
	require.NoError(t, tr.MarkFailure("fast-1"))
	tr.probeTimeout = time.Second
	tr.probeOne(context.Background(), eps[0])
	assert.True(t, tr.IsHealthy("fast-1"))
	assert.Equal(t, uint32(0), tr.AllStatuses()[0].ConsecutiveFailures)
}

func TestProbeMarksFailureOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	eps := []endpoint.Endpoint{{Name: "fast-1", BaseURL: srv.URL, Tier: endpoint.Fast, MaxTokens: 1, Weight: 1, Priority: 1, Temperature: 1}}
	tr := New(eps, nil, nil)
	tr.probeTimeout = time.Second
	tr.probeOne(context.Background(), eps[0])
	assert.Equal(t, uint32(1), tr.AllStatuses()[0].ConsecutiveFailures)
}

func TestHealthCheckURLConstructionNeverDoublesV1(t *testing.T) {
	eps := []endpoint.Endpoint{{Name: "fast-1", BaseURL: "http://localhost:11434/v1", Tier: endpoint.Fast, MaxTokens: 1, Weight: 1, Priority: 1, Temperature: 1}}
	assert.Equal(t, "http://localhost:11434/v1/models", eps[0].HealthCheckURL())
}
