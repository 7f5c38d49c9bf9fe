package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetryBatch(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failures  int
		failWith  error
		wantErr   bool
		wantCalls int
	}{
		{name: "first attempt succeeds", retries: 2, failures: 0, wantCalls: 1},
		{name: "succeeds on last retry", retries: 2, failures: 2, failWith: unavailableErr("gemini: 500"), wantCalls: 3},
		{name: "gives up after retries", retries: 2, failures: 5, failWith: unavailableErr("gemini: 500"), wantErr: true, wantCalls: 3},
		{name: "rate limit is not retried", retries: 2, failures: 5, failWith: rateLimitedErr(), wantErr: true, wantCalls: 1},
		{name: "no retries configured", retries: 0, failures: 1, failWith: errors.New("boom"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := retryBatch(context.Background(), tt.retries, time.Millisecond, zap.NewNop(), func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", tt.failWith
				}
				return "done", nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.failWith)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "done", got)
		})
	}
}

func TestRetryBatch_BacksOffBetweenAttempts(t *testing.T) {
	var stamps []time.Time
	_, err := retryBatch(context.Background(), 2, 20*time.Millisecond, zap.NewNop(), func(context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("transient")
	})
	require.Error(t, err)
	require.Len(t, stamps, 3)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
}

func TestRetryBatch_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retryBatch(ctx, 3, time.Hour, zap.NewNop(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
