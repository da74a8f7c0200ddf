package queryclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octoroute/octoroute/internal/endpoint"
	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

func sseServer(t *testing.T, chunks []string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func testEndpoint(baseURL string) endpoint.Endpoint {
	return endpoint.Endpoint{
		Name: "fast-1", BaseURL: baseURL, Tier: endpoint.Fast,
		MaxTokens: 100, Weight: 1, Priority: 1, Temperature: 0.5,
	}
}

func TestCompleteAccumulatesDeltaContent(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
	}, http.StatusOK)
	defer srv.Close()

	c := New(srv.Client())
	content, err := c.Complete(contextBG(), testEndpoint(srv.URL), "hi", 5*time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestCompleteReturnsStreamErrorOnBadStatus(t *testing.T) {
	srv := sseServer(t, nil, http.StatusInternalServerError)
	defer srv.Close()

	c := New(srv.Client())
	_, err := c.Complete(contextBG(), testEndpoint(srv.URL), "hi", 5*time.Second, 0)
	require.Error(t, err)
	var oe *octerrors.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, octerrors.KindStreamError, oe.Kind)
}

func TestCompleteEnforcesByteCapAndDiscardsPartialText(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"0123456789"}}]}`,
		`{"choices":[{"delta":{"content":"0123456789"}}]}`,
	}, http.StatusOK)
	defer srv.Close()

	c := New(srv.Client())
	content, err := c.Complete(contextBG(), testEndpoint(srv.URL), "hi", 5*time.Second, 10)
	require.Error(t, err)
	assert.Empty(t, content)
	var oe *octerrors.Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, octerrors.KindResponseTooLarge, oe.Kind)
}

func TestCompleteTimesOutOnSlowUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client())
	_, err := c.Complete(contextBG(), testEndpoint(srv.URL), "hi", 10*time.Millisecond, 0)
	require.Error(t, err)
}
