package service

import (
	"context"
	"time"

	"ccee-sentinel/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// retryBatch runs fn up to retries+1 times, waiting interval, 2*interval, ... between
// attempts. A rate-limit failure or a cancelled ctx ends it at once.
func retryBatch[T any](ctx context.Context, retries int, interval time.Duration, log *zap.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	if retries <= 0 {
		return fn(ctx)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = interval
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxInterval = interval << retries
	expo.MaxElapsedTime = 0
	expo.Reset()

	var out T
	attempt := 0
	op := func() error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			out = v
			return nil
		}
		if domain.IsRateLimited(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Batch attempt failed, retrying",
			zap.Int("attempt", attempt), zap.Int("max_attempts", retries+1),
			zap.Duration("wait", wait), zap.Error(err))
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(retries)), ctx)
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
