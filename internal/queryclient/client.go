// Package queryclient implements the Model Query Client: it streams a
// chat completion from a chosen endpoint under a single wall-clock
// deadline, never retries internally, and never surfaces a partial
// response on stream error.
//
// Grounded on the teacher's stream.go (bufio.Scanner over an SSE body,
// enlarged scanner buffer for long lines) and client.go's single-deadline
// context pattern.
package queryclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/octoroute/octoroute/internal/endpoint"
	octerrors "github.com/octoroute/octoroute/pkg/errors"
)

// chatCompletionRequest is the minimal upstream wire body. The client
// speaks a single OpenAI-compatible streaming dialect to every endpoint;
// parsing the caller-facing wire formats is handled one layer up in the
// HTTP surface.
type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature float64                 `json:"temperature"`
	Stream      bool                    `json:"stream"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Client streams chat completions from upstream endpoints. One Client is
// shared across all tiers and both dispatch-loop and LLM-router callers.
type Client struct {
	httpClient *http.Client
}

// New builds a Client. httpClient's own Timeout should be left at zero —
// the single wall-clock deadline is enforced per-call via context, so it
// spans TCP handshake, TLS, headers and the entire stream uniformly.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// Complete streams a completion for prompt from ep, enforcing timeout as
// a single deadline and, when maxBytes > 0, stopping and returning
// ResponseTooLarge once more than maxBytes bytes have been accumulated. On any
// stream error the partially accumulated text is discarded — only "", err
// is returned, never the partial text.
func (c *Client) Complete(ctx context.Context, ep endpoint.Endpoint, prompt string, timeout time.Duration, maxBytes int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatCompletionRequest{
		Model:       ep.Name,
		Messages:    []chatCompletionMessage{{Role: "user", Content: prompt}},
		MaxTokens:   ep.MaxTokens,
		Temperature: ep.Temperature,
		Stream:      true,
	})
	if err != nil {
		return "", octerrors.NewAgentOptionsConfigError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.CompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return "", octerrors.NewAgentOptionsConfigError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", octerrors.NewTimeout(ep.Name, int(timeout.Seconds()), 0, 0)
		}
		return "", octerrors.NewStreamError(ep.Name, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", octerrors.NewStreamError(ep.Name, 0, fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var buf bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 4096), 256*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", octerrors.NewStreamError(ep.Name, buf.Len(), err)
		}
		for _, choice := range chunk.Choices {
			buf.WriteString(choice.Delta.Content)
		}

		if maxBytes > 0 && buf.Len() > maxBytes {
			return "", octerrors.NewResponseTooLarge(ep.Name, maxBytes)
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", octerrors.NewTimeout(ep.Name, int(timeout.Seconds()), 0, 0)
		}
		return "", octerrors.NewStreamError(ep.Name, buf.Len(), err)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return "", octerrors.NewTimeout(ep.Name, int(timeout.Seconds()), 0, 0)
	}

	return buf.String(), nil
}
