package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ccee-sentinel/internal/domain"

	"go.uber.org/zap"
)

// FallbackChain tries its steps strictly in order and returns the first reply that the
// request's parser accepts. Only a failure of every step is reported to the caller.
//
// A chain is itself a domain.Provider, so the server chain (gemini, aiml, openrouter) is a
// single step of the client chain (local, server, anthropic).
type FallbackChain struct {
	name   string
	steps  []domain.Provider
	health *HealthRegistry
	logger *zap.Logger
}

func NewFallbackChain(name string, steps []domain.Provider, health *HealthRegistry, logger *zap.Logger) *FallbackChain {
	if health == nil {
		health = NewHealthRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackChain{
		name:   name,
		steps:  steps,
		health: health,
		logger: logger.With(zap.String("chain", name)),
	}
}

func (c *FallbackChain) Name() string {
	return c.name
}

// Generate implements domain.Provider.
func (c *FallbackChain) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := c.Run(ctx, domain.GenerationRequest{Prompt: prompt})
	return res.Text, err
}

// Run implements domain.Generator.
func (c *FallbackChain) Run(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	exhausted := &domain.ExhaustedError{}

	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return domain.GenerationResult{}, err
		}
		if rc, ok := step.(domain.ReadinessChecker); ok && !rc.Ready(ctx) {
			c.logger.Debug("provider not ready, skipping", zap.String("provider", step.Name()))
			continue
		}

		// A nested chain records its own providers.
		_, nested := step.(*FallbackChain)

		start := time.Now()
		text, err := step.Generate(ctx, req.Prompt)
		if err == nil && req.Parse != nil {
			if perr := req.Parse(text); perr != nil {
				err = &domain.ProviderError{Provider: step.Name(), Kind: domain.FailureParse, Err: perr}
			}
		}
		elapsed := time.Since(start)

		if err == nil {
			if !nested {
				c.health.Record(step.Name(), domain.StatusWorking, "")
			}
			exhausted.Attempts = append(exhausted.Attempts, domain.ProviderAttempt{
				Provider: step.Name(), Outcome: "ok", Elapsed: elapsed,
			})
			c.logger.Info("generation succeeded",
				zap.String("provider", step.Name()),
				zap.String("target", req.Target),
				zap.Duration("elapsed", elapsed))
			return domain.GenerationResult{Text: text, Provider: step.Name(), Attempts: exhausted.Attempts}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.GenerationResult{}, ctxErr
		}

		absorb(exhausted, step.Name(), err, elapsed)
		if !nested {
			c.health.Record(step.Name(), StatusFor(err), err.Error())
		}
		c.logger.Warn("provider failed, falling back",
			zap.String("provider", step.Name()),
			zap.String("target", req.Target),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}

	c.logger.Error("all providers failed", zap.String("target", req.Target), zap.Strings("failures", exhausted.Failures))
	return domain.GenerationResult{Attempts: exhausted.Attempts}, domain.NewAIUnavailableError(exhausted)
}

// absorb folds one step's failure into the chain summary. Nested chains and key pools
// contribute their own per-identity entries.
func absorb(into *domain.ExhaustedError, provider string, err error, elapsed time.Duration) {
	var nested *domain.ExhaustedError
	if errors.As(err, &nested) {
		into.Failures = append(into.Failures, nested.Failures...)
		into.QuotaHits += nested.QuotaHits
		into.Attempts = append(into.Attempts, nested.Attempts...)
		return
	}

	attempt := domain.ProviderAttempt{Provider: provider, Elapsed: elapsed, Outcome: string(domain.FailureHTTP)}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		if perr.Provider == "" {
			labelled := *perr
			labelled.Provider = provider
			perr = &labelled
		}
		attempt.Outcome = string(perr.Kind)
		attempt.StatusCode = perr.StatusCode
		if perr.Kind == domain.FailureQuota {
			into.QuotaHits++
		}
		into.Failures = append(into.Failures, perr.Error())
	} else {
		into.Failures = append(into.Failures, fmt.Sprintf("%s: %v", provider, err))
	}
	into.Attempts = append(into.Attempts, attempt)
}
