package routing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	octerrors "github.com/octoroute/octoroute/pkg/errors"
	"github.com/octoroute/octoroute/internal/endpoint"
	"github.com/octoroute/octoroute/internal/health"
)

// QueryClient is the subset of the Model Query Client contract the LLM
// router needs: issue a prompt against an endpoint under a bounded
// timeout and byte cap, with no internal retries.
type QueryClient interface {
	Complete(ctx context.Context, ep endpoint.Endpoint, prompt string, timeout time.Duration, maxBytes int) (string, error)
}

// EndpointSelector is the subset of the Endpoint Selector the LLM router
// needs to pick a router-tier endpoint.
type EndpointSelector interface {
	Select(tier endpoint.Tier, exclude map[string]struct{}) (endpoint.Endpoint, bool)
}

// LLMRouter classifies a prompt by asking a configured router-tier
// endpoint to reply with exactly one of FAST, BALANCED, DEEP.
type LLMRouter struct {
	Selector         EndpointSelector
	Health           *health.Tracker
	Client           QueryClient
	RouterTier       endpoint.Tier
	Timeout          time.Duration
	MaxResponseBytes int
}

const classificationPromptTemplate = "You are a routing classifier. Reply with exactly one word: FAST, BALANCED, or DEEP. " +
	"Do not explain your reasoning. Classify the following request:\n\n%s"

func buildClassificationPrompt(prompt string) string {
	return fmt.Sprintf(classificationPromptTemplate, prompt)
}

// Route implements Router.
func (r *LLMRouter) Route(ctx context.Context, prompt string, _ Metadata) (Decision, error) {
	ep, ok := r.Selector.Select(r.RouterTier, nil)
	if !ok {
		return Decision{}, octerrors.NewRoutingFailed(string(r.RouterTier), "all router-tier endpoints exhausted")
	}

	reply, err := r.Client.Complete(ctx, ep, buildClassificationPrompt(prompt), r.Timeout, r.MaxResponseBytes)
	if err != nil {
		_ = r.Health.MarkFailure(ep.Name)
		return Decision{}, err
	}

	// The stream itself succeeded, so the endpoint is healthy regardless
	// of whether its reply turns out to be parseable — content-quality
	// failures are distinct from connection-level failures.
	var warnings []string
	if merr := r.Health.MarkSuccess(ep.Name); merr != nil {
		warnings = append(warnings, fmt.Sprintf("Health tracking failed: %v (endpoint health state may be stale)", merr))
	}

	tier, perr := ParseRoutingDecision(reply, ep.Name)
	if perr != nil {
		return Decision{}, perr
	}

	return Decision{Target: tier, Strategy: StrategyLLM, Warnings: warnings}, nil
}

var (
	keywordPattern   = regexp.MustCompile(`(?i)FAST|BALANCED|DEEP`)
	refusalSubstrings = []string{"cannot", "unable", "sorry", "error:"}
)

// ParseRoutingDecision implements the §4.4 parsing rules: reject empty or
// refusal replies, then find whole-word (Unicode-aware) occurrences of
// FAST/BALANCED/DEEP and let the leftmost match win.
func ParseRoutingDecision(reply, endpointName string) (endpoint.Tier, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return "", octerrors.NewEmptyResponse(endpointName)
	}

	lower := strings.ToLower(trimmed)
	for _, refusal := range refusalSubstrings {
		if strings.Contains(lower, refusal) {
			return "", octerrors.NewUnparseableResponse(endpointName, reply)
		}
	}

	match, ok := firstWholeWordMatch(trimmed)
	if !ok {
		return "", octerrors.NewUnparseableResponse(endpointName, reply)
	}

	switch strings.ToUpper(match) {
	case "FAST":
		return endpoint.Fast, nil
	case "BALANCED":
		return endpoint.Balanced, nil
	case "DEEP":
		return endpoint.Deep, nil
	default:
		return "", octerrors.NewUnparseableResponse(endpointName, reply)
	}
}

// firstWholeWordMatch scans s for the leftmost occurrence of FAST,
// BALANCED, or DEEP that is not a substring of a larger word. Go's RE2
// \b is ASCII-only, so boundaries are checked manually against the
// decoded rune immediately before and after each regex match.
func firstWholeWordMatch(s string) (string, bool) {
	for _, loc := range keywordPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if isWordBoundary(s, start, end) {
			return s[start:end], true
		}
	}
	return "", false
}

func isWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
