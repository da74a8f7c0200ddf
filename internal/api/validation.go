package api

import (
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

const maxChatMessageRunes = 100_000

// validateChatRequest enforces the /chat request rules from spec §6.1:
// message must be non-empty after trimming and at most 100,000 Unicode
// characters. Unlike /v1/chat/completions, the native envelope's own
// validation failures are plain 400s (spec §8 scenario 2), not the 422
// octerrors.NewValidationError reserves for the OpenAI-compatible
// boundary checks below.
func validateChatRequest(req ChatRequest) error {
	trimmed := strings.TrimSpace(req.Message)
	if trimmed == "" {
		return &apiError{status: http.StatusBadRequest, kind: "invalid_request_error", message: "message must not be empty"}
	}
	if n := utf8.RuneCountInString(req.Message); n > maxChatMessageRunes {
		return &apiError{status: http.StatusBadRequest, kind: "invalid_request_error", message: "message exceeds the 100000 character limit"}
	}
	return nil
}

// validateCompletionRequest enforces the boundary rules for
// /v1/chat/completions from spec §6.1. NaN and ±Inf values — which the
// JSON decoder can only produce via goccy/go-json's permissive number
// handling — are rejected explicitly since encoding/json's float bounds
// checks don't apply uniformly across decoders.
func validateCompletionRequest(req CompletionRequest) error {
	if len(req.Messages) == 0 {
		return octerrors.NewValidationError("messages must not be empty")
	}
	if req.Temperature != nil {
		if err := checkRange("temperature", *req.Temperature, 0.0, 2.0, true, true); err != nil {
			return err
		}
	}
	if req.TopP != nil {
		if err := checkRange("top_p", *req.TopP, 0.0, 1.0, false, true); err != nil {
			return err
		}
	}
	if req.PresencePenalty != nil {
		if err := checkRange("presence_penalty", *req.PresencePenalty, -2.0, 2.0, true, true); err != nil {
			return err
		}
	}
	if req.FrequencyPenalty != nil {
		if err := checkRange("frequency_penalty", *req.FrequencyPenalty, -2.0, 2.0, true, true); err != nil {
			return err
		}
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return octerrors.NewValidationError("max_tokens must be > 0")
	}
	return nil
}

// checkRange validates v against [min, max] (or (min, max] when
// lowInclusive is false), rejecting NaN and infinities unconditionally.
func checkRange(field string, v, min, max float64, lowInclusive, highInclusive bool) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return octerrors.NewValidationError(field + " must be a finite number")
	}
	lowOK := v > min || (lowInclusive && v == min)
	highOK := v < max || (highInclusive && v == max)
	if !lowOK || !highOK {
		return octerrors.NewValidationError(field + " is out of range")
	}
	return nil
}
