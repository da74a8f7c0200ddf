package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableByKind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"timeout", NewTimeout("fast-1", 30, 1, 3), true},
		{"stream error", NewStreamError("fast-1", 12, errors.New("reset")), true},
		{"empty response", NewEmptyResponse("fast-1"), false},
		{"unparseable response", NewUnparseableResponse("router-1", "BREAKFAST"), false},
		{"config error", NewConfigError(errors.New("bad toml")), false},
		{"routing failed", NewRoutingFailed("fast", "all endpoints exhausted"), false},
		{"agent options config error", NewAgentOptionsConfigError(errors.New("bad opts")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryableUnwrapsWrappedErrors(t *testing.T) {
	base := NewTimeout("fast-1", 30, 1, 3)
	wrapped := fmt.Errorf("dispatch attempt 1 failed: %w", base)
	assert.True(t, IsRetryable(wrapped))
}

func TestHTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, NewValidationError("bad field").HTTPStatusCode())
	assert.Equal(t, http.StatusInternalServerError, NewRoutingFailed("fast", "exhausted").HTTPStatusCode())
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "invalid_request_error", NewValidationError("bad field").ErrorType())
	assert.Equal(t, "server_error", NewRoutingFailed("fast", "exhausted").ErrorType())
}

func TestUnparseableResponsePreviewTruncation(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	err := NewUnparseableResponse("router-1", string(long))
	require.Equal(t, 600, err.Length)
	assert.Contains(t, err.Message, "... [truncated]")
}

func TestTruncatePreviewShortStringUnchanged(t *testing.T) {
	preview, length := TruncatePreview("FAST", 500)
	assert.Equal(t, "FAST", preview)
	assert.Equal(t, 4, length)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewStreamError("fast-1", 0, cause)
	assert.ErrorIs(t, err, cause)
}
