package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ccee-sentinel/internal/domain"

	"go.uber.org/zap"
)

// Caller performs a single request against one backend with one identity. Failures should
// be *domain.ProviderError so the pool can decide whether to rotate.
type Caller interface {
	Call(ctx context.Context, key, model, prompt string) (string, error)
}

// Pool is a domain.Provider that rotates a Caller over a KeyRing and model list.
//
// Quota failures move to the next identity silently. Auth and empty-reply failures are
// recorded and also move on. Any other HTTP or network failure abandons the provider.
type Pool struct {
	name   string
	caller Caller
	keys   KeyRing
	models []string
	logger *zap.Logger
}

func NewPool(name string, caller Caller, keys KeyRing, models []string, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		name:   name,
		caller: caller,
		keys:   keys,
		models: models,
		logger: logger.With(zap.String("provider", name)),
	}
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Generate(ctx context.Context, prompt string) (string, error) {
	exhausted := &domain.ExhaustedError{}
	if p.keys.Len() == 0 {
		exhausted.Failures = append(exhausted.Failures, p.name+": no API keys configured")
		return "", exhausted
	}

	for id := range p.keys.Identities(p.models...) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := p.caller.Call(ctx, id.Key, id.Model, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = &domain.ProviderError{Kind: domain.FailureEmpty, Message: "empty response"}
		}

		attempt := domain.ProviderAttempt{
			Provider: p.name,
			KeyIndex: id.Index,
			Model:    id.Model,
			Elapsed:  time.Since(start),
		}

		if err == nil {
			attempt.Outcome = "ok"
			exhausted.Attempts = append(exhausted.Attempts, attempt)
			p.logger.Debug("provider call succeeded",
				zap.Int("key_index", id.Index), zap.String("model", id.Model), zap.Duration("elapsed", attempt.Elapsed))
			return text, nil
		}
		if isContextErr(ctx, err) {
			return "", err
		}

		perr := p.classify(err, id)
		attempt.Outcome = string(perr.Kind)
		attempt.StatusCode = perr.StatusCode
		exhausted.Attempts = append(exhausted.Attempts, attempt)

		if perr.Kind == domain.FailureQuota {
			exhausted.QuotaHits++
			p.logger.Debug("quota exhausted, rotating", zap.Int("key_index", id.Index), zap.String("model", id.Model))
			continue
		}

		exhausted.Failures = append(exhausted.Failures, perr.Error())
		p.logger.Warn("provider call failed",
			zap.Int("key_index", id.Index),
			zap.String("model", id.Model),
			zap.String("kind", string(perr.Kind)),
			zap.Error(err))

		if !perr.Kind.NextIdentity() {
			return "", exhausted
		}
	}

	if len(exhausted.Failures) == 0 {
		summary := fmt.Sprintf("%s: all %d keys quota exceeded", p.name, p.keys.Len())
		if len(p.models) > 1 {
			summary += fmt.Sprintf(" across %d models", len(p.models))
		}
		exhausted.Failures = append(exhausted.Failures, summary)
	}
	return "", exhausted
}

func (p *Pool) classify(err error, id Identity) *domain.ProviderError {
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		perr = networkError(p.name, err)
	}
	classified := *perr
	classified.Provider = p.name
	classified.KeyIndex = id.Index
	classified.Model = id.Model
	return &classified
}
