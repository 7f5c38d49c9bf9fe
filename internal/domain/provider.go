package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is one step of a fallback chain: a single AI backend, or a whole nested chain.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReadinessChecker is implemented by providers that may be configured but not usable
// right now (e.g. a local model server that is not running). Unready providers are skipped
// without being counted as failures.
type ReadinessChecker interface {
	Ready(ctx context.Context) bool
}

// FailureKind classifies a failed provider call for the orchestrator's control flow.
type FailureKind string

const (
	FailureQuota   FailureKind = "quota"
	FailureAuth    FailureKind = "auth"
	FailureHTTP    FailureKind = "http"
	FailureNetwork FailureKind = "network"
	FailureEmpty   FailureKind = "empty"
	FailureParse   FailureKind = "parse"
)

// NextIdentity reports whether the failure is tied to the credential or model used,
// so the same provider should move on to its next key/model instead of giving up.
func (k FailureKind) NextIdentity() bool {
	switch k {
	case FailureQuota, FailureAuth, FailureEmpty:
		return true
	}
	return false
}

// ProviderError is returned by a single provider call.
type ProviderError struct {
	Provider   string
	Kind       FailureKind
	StatusCode int
	KeyIndex   int // 1-based, 0 when the provider has no key pool
	Model      string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.KeyIndex > 0 {
		fmt.Fprintf(&b, " key %d", e.KeyIndex)
	}
	if e.Model != "" {
		fmt.Fprintf(&b, " (%s)", e.Model)
	}
	b.WriteString(": ")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "%d ", e.StatusCode)
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProviderAttempt records one call against one identity.
type ProviderAttempt struct {
	Provider   string
	KeyIndex   int
	Model      string
	Outcome    string // "ok" or a FailureKind
	StatusCode int
	Elapsed    time.Duration
}

// ExhaustedError means every step of a chain failed. Its text is the "; "-joined list of
// per-provider failures.
type ExhaustedError struct {
	Failures  []string
	QuotaHits int
	Attempts  []ProviderAttempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "no provider configured"
	}
	return strings.Join(e.Failures, "; ")
}

// RateLimited reports whether any attempt in the chain hit a quota or credit limit.
func (e *ExhaustedError) RateLimited() bool {
	return e.QuotaHits > 0
}

// GenerationRequest is one unit of work for a fallback chain. When Parse is set a reply is
// only accepted if Parse returns nil; a parse failure moves the chain to its next provider.
type GenerationRequest struct {
	Prompt string
	Target string
	Parse  func(text string) error
}
