// Package errors defines the closed error taxonomy used across octoroute.
//
// Every error the dispatch pipeline can produce is represented by a single
// *Error value carrying a Kind, not a string. Retry decisions and metric
// labels are derived from Kind, never from substring matching on Error().
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind identifies a class of error. Kinds are a closed enum: new variants
// are added here, never invented ad hoc at call sites.
type Kind string

const (
	KindConfig                  Kind = "config_error"
	KindValidation               Kind = "validation_error"
	KindRoutingFailed            Kind = "routing_failed"
	KindTimeout                  Kind = "timeout"
	KindStreamError              Kind = "stream_error"
	KindEmptyResponse            Kind = "empty_response"
	KindUnparseableResponse      Kind = "unparseable_response"
	KindAgentOptionsConfigError  Kind = "agent_options_config_error"
	KindResponseTooLarge         Kind = "response_too_large"
	KindUnknownEndpoint          Kind = "unknown_endpoint"
	KindHTTPClientCreationFailed Kind = "http_client_creation_failed"
	KindInvalidURL               Kind = "invalid_url"
)

// retryable is the closed table of which Kinds the dispatch loop may
// retry. Classification is by Kind, never by inspecting Error().
var retryable = map[Kind]bool{
	KindTimeout:     true,
	KindStreamError: true,
}

// Error is the single error type produced by the core. It carries enough
// structured context (endpoint, tier, attempt counters) for operators to
// act without re-parsing a message string.
type Error struct {
	Kind          Kind
	Message       string
	Endpoint      string
	Tier          string
	Attempt       int
	MaxAttempts   int
	Seconds       int
	BytesReceived int
	Length        int
	Cause         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether this error's Kind may be retried by the
// dispatch loop.
func (e *Error) Retryable() bool { return retryable[e.Kind] }

// HTTPStatusCode maps this error's Kind to the OpenAI-envelope status code
// the HTTP surface should return.
func (e *Error) HTTPStatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConfig, KindRoutingFailed, KindTimeout, KindStreamError,
		KindEmptyResponse, KindUnparseableResponse, KindAgentOptionsConfigError,
		KindResponseTooLarge, KindUnknownEndpoint, KindHTTPClientCreationFailed,
		KindInvalidURL:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType maps this error's Kind to the OpenAI envelope's "type" field.
func (e *Error) ErrorType() string {
	if e.Kind == KindValidation {
		return "invalid_request_error"
	}
	return "server_error"
}

// IsRetryable classifies any error by unwrapping to an *Error and checking
// its Kind. A non-octoroute error is treated as non-retryable.
func IsRetryable(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Retryable()
	}
	return false
}

// NewConfigError wraps a configuration load/parse/validation failure. The
// cause is preserved so operators can see the underlying I/O errno or TOML
// line:column.
func NewConfigError(cause error) *Error {
	return &Error{Kind: KindConfig, Message: "configuration error", Cause: cause}
}

// NewValidationError describes a malformed or out-of-range request field.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewRoutingFailed reports that routing (rule+LLM) or endpoint selection
// exhausted its options. tier should be the router tier when the failure
// happened while making the routing decision, or the target tier when the
// failure happened during endpoint selection, per the operator-message
// rule in the error design.
func NewRoutingFailed(tier, reason string) *Error {
	return &Error{Kind: KindRoutingFailed, Tier: tier, Message: reason}
}

// NewTimeout reports that an attempt against endpointName exceeded its
// per-tier deadline. Retryable.
func NewTimeout(endpointName string, seconds, attempt, max int) *Error {
	return &Error{
		Kind:        KindTimeout,
		Endpoint:    endpointName,
		Seconds:     seconds,
		Attempt:     attempt,
		MaxAttempts: max,
		Message: fmt.Sprintf(
			"endpoint %q timed out after %ds (attempt %d/%d); check health or increase timeout",
			endpointName, seconds, attempt, max,
		),
	}
}

// NewStreamError reports a mid-stream connection failure. bytesReceived is
// the count of bytes already accumulated when the stream broke; that
// partial text must never be forwarded to the caller. Retryable.
func NewStreamError(endpointName string, bytesReceived int, cause error) *Error {
	return &Error{
		Kind:          KindStreamError,
		Endpoint:      endpointName,
		BytesReceived: bytesReceived,
		Cause:         cause,
		Message:       fmt.Sprintf("stream from endpoint %q dropped after %d bytes", endpointName, bytesReceived),
	}
}

// NewEmptyResponse reports that an endpoint answered with nothing. Treated
// as systemic (misconfiguration or a safety filter), not retryable.
func NewEmptyResponse(endpointName string) *Error {
	return &Error{
		Kind:     KindEmptyResponse,
		Endpoint: endpointName,
		Message:  fmt.Sprintf("endpoint %q returned an empty response; check endpoint configuration", endpointName),
	}
}

// NewUnparseableResponse reports that a router-tier reply could not be
// turned into a tier: it was a refusal, or it matched none of the known
// tier keywords. text is truncated to a bounded preview so the operator
// sees the offending text without unbounded log growth.
func NewUnparseableResponse(endpointName, text string) *Error {
	preview, length := TruncatePreview(text, 500)
	return &Error{
		Kind:     KindUnparseableResponse,
		Endpoint: endpointName,
		Length:   length,
		Message:  fmt.Sprintf("endpoint %q reply is not a usable FAST, BALANCED or DEEP decision: %q", endpointName, preview),
	}
}

// NewAgentOptionsConfigError reports that the query client could not be
// constructed for an attempt (bad client options). Not retryable.
func NewAgentOptionsConfigError(cause error) *Error {
	return &Error{Kind: KindAgentOptionsConfigError, Message: "invalid model query client options", Cause: cause}
}

// NewResponseTooLarge reports that a router-tier reply exceeded the
// configured byte cap.
func NewResponseTooLarge(endpointName string, capBytes int) *Error {
	return &Error{
		Kind:     KindResponseTooLarge,
		Endpoint: endpointName,
		Length:   capBytes,
		Message:  fmt.Sprintf("endpoint %q router reply exceeded the %d byte cap", endpointName, capBytes),
	}
}

// NewUnknownEndpoint reports a health-tracking operation against a name
// that was never registered. Never fatal to a user request.
func NewUnknownEndpoint(name string) *Error {
	return &Error{Kind: KindUnknownEndpoint, Endpoint: name, Message: fmt.Sprintf("unknown endpoint %q", name)}
}

// NewHTTPClientCreationFailed reports that the health tracker could not
// build an HTTP client for a probe.
func NewHTTPClientCreationFailed(cause error) *Error {
	return &Error{Kind: KindHTTPClientCreationFailed, Message: "failed to construct probe HTTP client", Cause: cause}
}

// NewInvalidURL reports an unparseable base URL discovered while probing.
func NewInvalidURL(raw string, cause error) *Error {
	return &Error{Kind: KindInvalidURL, Message: fmt.Sprintf("invalid URL %q", raw), Cause: cause}
}

// TruncatePreview bounds s to at most max runes, appending an explicit
// truncation marker and returning the original rune length alongside.
func TruncatePreview(s string, max int) (preview string, length int) {
	length = utf8.RuneCountInString(s)
	if length <= max {
		return s, length
	}
	runes := []rune(s)
	return string(runes[:max]) + "... [truncated]", length
}
