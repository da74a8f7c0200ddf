// Package api implements the HTTP surface: request validation, metadata
// extraction, response assembly, warnings, and OpenAI-envelope error
// mapping, per spec §6.1.
//
// Grounded on the teacher's internal/api/routes.go (Go 1.22+ method-pattern
// ServeMux registration, no web framework) and its error_response.go
// envelope shape.
package api

// ChatRequest is the native /chat request envelope.
type ChatRequest struct {
	Message    string `json:"message"`
	Importance string `json:"importance,omitempty"`
	TaskType   string `json:"task_type,omitempty"`
}

// ChatResponse is the native /chat response envelope.
type ChatResponse struct {
	Content    string   `json:"content"`
	ModelTier  string   `json:"model_tier"`
	ModelName  string   `json:"model_name"`
	Warnings   []string `json:"warnings,omitempty"`
}

// CompletionMessage is one OpenAI chat message.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the OpenAI-compatible /v1/chat/completions request.
type CompletionRequest struct {
	Model            string              `json:"model"`
	Messages         []CompletionMessage `json:"messages"`
	Temperature      *float64            `json:"temperature,omitempty"`
	TopP             *float64            `json:"top_p,omitempty"`
	PresencePenalty  *float64            `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64            `json:"frequency_penalty,omitempty"`
	MaxTokens        *int                `json:"max_tokens,omitempty"`
}

// CompletionChoice is one choice in a completion response.
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// CompletionResponse is the OpenAI-compatible /v1/chat/completions
// response.
type CompletionResponse struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"`
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []CompletionChoice  `json:"choices"`
}

// ErrorEnvelope is the OpenAI-compatible error wire format.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the body of ErrorEnvelope.
type ErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param,omitempty"`
	Code    *string `json:"code,omitempty"`
}

// ModelsResponse is the /v1/models listing.
type ModelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo is one entry in ModelsResponse.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// HealthModelsResponse is the /models health-per-endpoint listing.
type HealthModelsResponse struct {
	Models []EndpointHealthInfo `json:"models"`
}

// EndpointHealthInfo is one entry in HealthModelsResponse.
type EndpointHealthInfo struct {
	Name                  string  `json:"name"`
	Tier                  string  `json:"tier"`
	Endpoint              string  `json:"endpoint"`
	Healthy               bool    `json:"healthy"`
	LastCheckSecondsAgo    float64 `json:"last_check_seconds_ago"`
	ConsecutiveFailures   uint32  `json:"consecutive_failures"`
}

// HealthFailureInfo is one entry in HealthResponse.HealthTrackingFailures.
type HealthFailureInfo struct {
	EndpointName        string  `json:"endpoint_name"`
	ConsecutiveFailures uint32  `json:"consecutive_failures"`
	LastError           string  `json:"last_error"`
	LastFailureTime     string  `json:"last_failure_time"`
}

// HealthResponse is the /health operational summary.
type HealthResponse struct {
	Status                 string              `json:"status"`
	HealthTrackingStatus   string              `json:"health_tracking_status"`
	MetricsRecordingStatus string              `json:"metrics_recording_status"`
	HealthTrackingFailures []HealthFailureInfo `json:"health_tracking_failures,omitempty"`
}
