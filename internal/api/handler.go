package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/octoroute/octoroute/internal/config"
	"github.com/octoroute/octoroute/internal/dispatch"
	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
	"github.com/octoroute/octoroute/internal/metrics"
	"github.com/octoroute/octoroute/internal/observability"
	"github.com/octoroute/octoroute/internal/routing"
	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

const maxRequestBodyBytes = 1 << 20 // 1MiB

// Handler serves the OpenAI-compatible gateway surface: /chat,
// /v1/chat/completions, /v1/models, /models, /health.
type Handler struct {
	Cfg     *config.Config
	Loop    *dispatch.Loop
	Health  *health.Tracker
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// Routes builds the ServeMux with method-pattern registration, mirroring
// the teacher's internal/api/routes.go style. Each route path is also
// registered without a method, so any other method on a known path gets
// the methodNotAllowed 405 envelope; unknown paths get the mux's default
// 404.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /v1/chat/completions", h.handleCompletions)
	mux.HandleFunc("GET /v1/models", h.handleListModels)
	mux.HandleFunc("GET /models", h.handleModelsHealth)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("/chat", methodNotAllowed)
	mux.HandleFunc("/v1/chat/completions", methodNotAllowed)
	mux.HandleFunc("/v1/models", methodNotAllowed)
	mux.HandleFunc("/models", methodNotAllowed)
	mux.HandleFunc("/health", methodNotAllowed)
	return mux
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, &apiError{status: http.StatusMethodNotAllowed, kind: "invalid_request_error", message: "method not allowed"})
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateChatRequest(req); err != nil {
		writeError(w, err)
		return
	}

	importance := req.Importance
	if importance == "" {
		importance = h.Cfg.Routing.DefaultImportance
	}
	meta := routing.Metadata{
		TokenEstimate: routing.EstimateTokens(req.Message),
		Importance:    routing.Importance(strings.ToLower(importance)),
		TaskType:      routing.TaskType(strings.ToLower(req.TaskType)),
	}
	if meta.TaskType == "" {
		meta.TaskType = routing.UnknownTask
	}

	res, err := h.Loop.Dispatch(r.Context(), req.Message, meta)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Content:   res.Content,
		ModelTier: string(res.Tier),
		ModelName: res.EndpointName,
		Warnings:  res.Warnings,
	})
}

func (h *Handler) handleCompletions(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCompletionRequest(req); err != nil {
		writeError(w, err)
		return
	}

	prompt := flattenMessages(req.Messages)
	meta := routing.Metadata{
		TokenEstimate: routing.EstimateTokens(prompt),
		Importance:    routing.Importance(h.Cfg.Routing.DefaultImportance),
		TaskType:      routing.UnknownTask,
	}

	loop := h.Loop
	if pinned, ok := h.resolveModelPin(req.Model); ok {
		pinnedLoop := *h.Loop
		pinnedLoop.Router = pinnedRouter{decision: routing.Decision{Target: pinned.Tier, Strategy: routing.StrategyRule}}
		pinnedLoop.Selector = pinnedSelector{ep: pinned}
		loop = &pinnedLoop
	} else if tier, ok := virtualTier(req.Model); ok && tier != "" {
		meta.TaskType = routing.UnknownTask
		_ = tier // the configured strategy still decides; an explicit tier name
		// does not force-pin in this design, it only confirms the request is
		// a chat-completion shaped request rather than a raw pin.
	}

	res, err := loop.Dispatch(r.Context(), prompt, meta)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompletionResponse{
		ID:      "chatcmpl-" + res.EndpointName,
		Object:  "chat.completion",
		Created: 0,
		Model:   res.EndpointName,
		Choices: []CompletionChoice{{
			Index:        0,
			Message:      CompletionMessage{Role: "assistant", Content: res.Content},
			FinishReason: "stop",
		}},
	})
}

// resolveModelPin reports whether model names a configured endpoint
// directly rather than a virtual tier — spec §6.2's bypass path.
func (h *Handler) resolveModelPin(model string) (endpoint.Endpoint, bool) {
	if model == "" {
		return endpoint.Endpoint{}, false
	}
	if _, isVirtual := virtualTier(model); isVirtual {
		return endpoint.Endpoint{}, false
	}
	for _, ep := range h.Cfg.Endpoints() {
		if ep.Name == model {
			return ep, true
		}
	}
	return endpoint.Endpoint{}, false
}

func virtualTier(model string) (endpoint.Tier, bool) {
	switch model {
	case "auto":
		return "", true
	case "fast":
		return endpoint.Fast, true
	case "balanced":
		return endpoint.Balanced, true
	case "deep":
		return endpoint.Deep, true
	default:
		return "", false
	}
}

func flattenMessages(msgs []CompletionMessage) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := []ModelInfo{
		{ID: "auto", Object: "model", OwnedBy: "octoroute"},
		{ID: "fast", Object: "model", OwnedBy: "octoroute"},
		{ID: "balanced", Object: "model", OwnedBy: "octoroute"},
		{ID: "deep", Object: "model", OwnedBy: "octoroute"},
	}
	for _, ep := range h.Cfg.Endpoints() {
		models = append(models, ModelInfo{ID: ep.Name, Object: "model", OwnedBy: "user"})
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Object: "list", Data: models})
}

func (h *Handler) handleModelsHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	statuses := h.Health.AllStatuses()
	out := make([]EndpointHealthInfo, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, EndpointHealthInfo{
			Name:                s.Name,
			Tier:                string(s.Tier),
			Endpoint:            s.Name,
			Healthy:             s.Healthy,
			LastCheckSecondsAgo: now.Sub(s.LastCheckTime).Seconds(),
			ConsecutiveFailures: s.ConsecutiveFailures,
		})
	}
	writeJSON(w, http.StatusOK, HealthModelsResponse{Models: out})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	statuses := h.Health.AllStatuses()
	trackingStatus := "operational"
	var failures []HealthFailureInfo
	for _, s := range statuses {
		if s.Degraded {
			trackingStatus = "degraded"
			failures = append(failures, HealthFailureInfo{
				EndpointName:        s.Name,
				ConsecutiveFailures: s.ConsecutiveFailures,
				LastError:           s.LastError,
				LastFailureTime:     s.LastCheckTime.Format(time.RFC3339),
			})
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:                 "OK",
		HealthTrackingStatus:   trackingStatus,
		MetricsRecordingStatus: "operational",
		HealthTrackingFailures: failures,
	})
}

// decodeJSONBody enforces the content-type and body-size rules from
// spec §6.1: missing content-type is 415, JSON syntax errors are 400.
func decodeJSONBody(r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return &apiError{status: http.StatusUnsupportedMediaType, kind: "invalid_request_error", message: "missing content-type header"}
	}
	if !strings.HasPrefix(ct, "application/json") {
		return &apiError{status: http.StatusUnsupportedMediaType, kind: "invalid_request_error", message: "content-type must be application/json"}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &apiError{status: http.StatusBadRequest, kind: "invalid_request_error", message: "malformed JSON body: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// apiError is a pre-classified HTTP-layer error (missing content-type,
// bad JSON, method not allowed) that doesn't originate from the core
// dispatch pipeline and so doesn't carry an octerrors.Kind.
type apiError struct {
	status  int
	kind    string
	message string
}

func (e *apiError) Error() string { return e.message }

func writeError(w http.ResponseWriter, err error) {
	status, kind, message := classifyError(err)
	writeJSON(w, status, ErrorEnvelope{Error: ErrorDetail{Message: message, Type: kind}})
}

func classifyError(err error) (status int, kind, message string) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status, ae.kind, ae.message
	}
	var oe *octerrors.Error
	if errors.As(err, &oe) {
		return oe.HTTPStatusCode(), oe.ErrorType(), oe.Error()
	}
	return http.StatusInternalServerError, "server_error", err.Error()
}

// RequestContextLogger returns base with the in-flight request id attached
// as request_id when ctx carries one, and base unchanged otherwise. The
// handlers in this package do not call it and emit no log lines of their
// own.
func RequestContextLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := observability.RequestIDFromContext(ctx); id != "" {
		return base.With("request_id", id)
	}
	return base
}
