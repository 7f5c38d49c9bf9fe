package service

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"ccee-sentinel/internal/domain"
)

// HealthRegistry keeps the latest outcome per provider. It is advisory only: nothing in the
// chain reads it back to make decisions, and concurrent writers simply overwrite each other.
type HealthRegistry struct {
	mu      sync.RWMutex
	entries map[string]domain.ProviderHealth
	now     func() time.Time
}

func NewHealthRegistry(providers ...string) *HealthRegistry {
	h := &HealthRegistry{
		entries: make(map[string]domain.ProviderHealth, len(providers)),
		now:     time.Now,
	}
	for _, name := range providers {
		h.entries[name] = domain.ProviderHealth{Status: domain.StatusUnknown}
	}
	return h
}

func (h *HealthRegistry) Record(provider string, status domain.ProviderStatus, lastErr string) {
	h.mu.Lock()
	h.entries[provider] = domain.ProviderHealth{Status: status, LastError: lastErr, LastCheck: h.now()}
	h.mu.Unlock()
}

// Get returns StatusUnknown for providers that were never recorded.
func (h *HealthRegistry) Get(provider string) domain.ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if entry, ok := h.entries[provider]; ok {
		return entry
	}
	return domain.ProviderHealth{Status: domain.StatusUnknown}
}

func (h *HealthRegistry) Snapshot() map[string]domain.ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]domain.ProviderHealth, len(h.entries))
	for k, v := range h.entries {
		out[k] = v
	}
	return out
}

// StatusFor derives a health status from a failed provider call.
func StatusFor(err error) domain.ProviderStatus {
	var exhausted *domain.ExhaustedError
	if errors.As(err, &exhausted) {
		return statusForAttempts(exhausted.Attempts)
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return statusForAttempts([]domain.ProviderAttempt{{Outcome: string(perr.Kind), StatusCode: perr.StatusCode}})
	}
	return domain.StatusError
}

func statusForAttempts(attempts []domain.ProviderAttempt) domain.ProviderStatus {
	if len(attempts) == 0 {
		return domain.StatusError
	}
	allQuota, noCredits := true, false
	for _, a := range attempts {
		switch a.Outcome {
		case string(domain.FailureNetwork):
			return domain.StatusNetworkError
		case string(domain.FailureQuota):
			if a.StatusCode == http.StatusPaymentRequired || a.StatusCode == http.StatusForbidden {
				noCredits = true
			}
		default:
			allQuota = false
		}
	}
	switch {
	case allQuota && noCredits:
		return domain.StatusNoCredits
	case allQuota:
		return domain.StatusAllKeysFailed
	}
	return domain.StatusError
}
