package provider

import (
	"context"
	"net/http"

	"ccee-sentinel/internal/domain"
)

// KindForStatus maps an HTTP status to a failure kind. 429 and 402 mean the credential
// ran out of quota or credit.
func KindForStatus(status int) domain.FailureKind {
	switch status {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return domain.FailureQuota
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.FailureAuth
	}
	return domain.FailureHTTP
}

// isContextErr reports whether a failed call should be blamed on the caller's context
// rather than the provider.
func isContextErr(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

func statusError(name string, status int, message string) *domain.ProviderError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &domain.ProviderError{
		Provider:   name,
		Kind:       KindForStatus(status),
		StatusCode: status,
		Message:    message,
	}
}

func networkError(name string, err error) *domain.ProviderError {
	return &domain.ProviderError{Provider: name, Kind: domain.FailureNetwork, Err: err}
}
