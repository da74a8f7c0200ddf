package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octoroute/octoroute/internal/config"
	"github.com/octoroute/octoroute/internal/dispatch"
	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
	"github.com/octoroute/octoroute/internal/routing"
)

type stubRouter struct {
	decision routing.Decision
	err      error
}

func (s stubRouter) Route(context.Context, string, routing.Metadata) (routing.Decision, error) {
	return s.decision, s.err
}

type stubSelector struct {
	ep endpoint.Endpoint
	ok bool
}

func (s stubSelector) Select(endpoint.Tier, map[string]struct{}) (endpoint.Endpoint, bool) {
	return s.ep, s.ok
}

type stubQueryClient struct {
	content string
	err     error
}

func (s stubQueryClient) Complete(context.Context, endpoint.Endpoint, string, time.Duration, int) (string, error) {
	return s.content, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Models: config.Models{
			Fast:     []config.ModelConfig{{Name: "fast-1", BaseURL: "http://fast.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
			Balanced: []config.ModelConfig{{Name: "balanced-1", BaseURL: "http://balanced.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
			Deep:     []config.ModelConfig{{Name: "deep-1", BaseURL: "http://deep.invalid", MaxTokens: 1, Temperature: 1, Weight: 1, Priority: 1}},
		},
		Routing: config.RoutingConfig{Strategy: config.StrategyRule, DefaultImportance: "normal"},
	}
}

func testHandler(t *testing.T, router dispatch.Router, sel dispatch.Selector, qc dispatch.QueryClient) *Handler {
	t.Helper()
	cfg := testConfig()
	tracker := health.New(cfg.Endpoints(), nil, nil)
	loop := &dispatch.Loop{
		Router:      router,
		Selector:    sel,
		QueryClient: qc,
		Health:      tracker,
		Timeouts:    cfg,
	}
	return &Handler{Cfg: cfg, Loop: loop, Health: tracker}
}

func doRequest(t *testing.T, h *Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// TestHandleChatEmptyMessageIs400 guards spec §8 scenario 2: an empty
// /chat message must be a plain 400, not the 422 octerrors.NewValidationError
// reserves for the OpenAI-compatible boundary checks on
// /v1/chat/completions.
func TestHandleChatEmptyMessageIs400(t *testing.T) {
	h := testHandler(t, stubRouter{decision: routing.Decision{Target: endpoint.Fast, Strategy: routing.StrategyRule}}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodPost, "/chat", "application/json", `{"message":"   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty")
	assert.Contains(t, rec.Body.String(), "invalid_request_error")
}

// TestHandleChatSuccess guards spec §8 scenario 1.
func TestHandleChatSuccess(t *testing.T) {
	h := testHandler(t,
		stubRouter{decision: routing.Decision{Target: endpoint.Fast, Strategy: routing.StrategyRule}},
		stubSelector{ep: endpoint.Endpoint{Name: "fast-1", Tier: endpoint.Fast}, ok: true},
		stubQueryClient{content: "hello there"},
	)
	rec := doRequest(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hi","task_type":"casual_chat","importance":"low"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hello there")
	assert.Contains(t, body, `"model_tier":"fast"`)
	assert.Contains(t, body, `"model_name":"fast-1"`)
}

func TestHandleChatMessageTooLongIs400(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	longMsg := strings.Repeat("a", maxChatMessageRunes+1)
	rec := doRequest(t, h, http.MethodPost, "/chat", "application/json", `{"message":"`+longMsg+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "100000")
}

func TestHandleChatMissingContentTypeIs415(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodPost, "/chat", "", `{"message":"hi"}`)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHandleChatMalformedJSONIs400(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodPost, "/chat", "application/json", `{"message":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestHandleCompletionsTemperatureOutOfRangeIs422 guards spec §8 scenario 3.
func TestHandleCompletionsTemperatureOutOfRangeIs422(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodPost, "/v1/chat/completions", "application/json",
		`{"model":"auto","messages":[{"role":"user","content":"hi"}],"temperature":2.001}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "invalid_request_error")
	assert.Contains(t, body, "temperature")
}

func TestHandleCompletionsSuccess(t *testing.T) {
	h := testHandler(t,
		stubRouter{decision: routing.Decision{Target: endpoint.Balanced, Strategy: routing.StrategyRule}},
		stubSelector{ep: endpoint.Endpoint{Name: "balanced-1", Tier: endpoint.Balanced}, ok: true},
		stubQueryClient{content: "completion text"},
	)
	rec := doRequest(t, h, http.MethodPost, "/v1/chat/completions", "application/json",
		`{"model":"auto","messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "completion text")
}

func TestHandleCompletionsModelPinBypassesRouter(t *testing.T) {
	h := testHandler(t,
		stubRouter{err: routerMustNotBeCalledError{}},
		stubSelector{},
		stubQueryClient{content: "pinned reply"},
	)
	rec := doRequest(t, h, http.MethodPost, "/v1/chat/completions", "application/json",
		`{"model":"deep-1","messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pinned reply")
}

// routerMustNotBeCalledError is an error type used only to signal (via failing
// assertions were this reached) that a pinned-model dispatch incorrectly
// still consulted the Router.
type routerMustNotBeCalledError struct{}

func (routerMustNotBeCalledError) Error() string { return "router must not be called for a pinned model" }

func TestRoutingFailedIs500(t *testing.T) {
	h := testHandler(t, stubRouter{decision: routing.Decision{Target: endpoint.Fast, Strategy: routing.StrategyRule}}, stubSelector{ok: false}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodPost, "/chat", "application/json", `{"message":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "server_error")
}

func TestMethodNotAllowedIs405(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodGet, "/chat", "", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleListModels(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodGet, "/v1/models", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{"auto", "fast", "balanced", "deep", "fast-1", "balanced-1", "deep-1", `"owned_by":"octoroute"`, `"owned_by":"user"`} {
		assert.Contains(t, body, want)
	}
}

func TestHandleModelsHealth(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodGet, "/models", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fast-1")
	assert.Contains(t, body, `"healthy":true`)
}

func TestHandleHealth(t *testing.T) {
	h := testHandler(t, stubRouter{}, stubSelector{}, stubQueryClient{})
	rec := doRequest(t, h, http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"OK"`)
	assert.Contains(t, body, `"health_tracking_status":"operational"`)
}
