package batch

import (
	"context"

	"ccee-sentinel/internal/topicplan"
)

// PromptBuilder renders the prompt for one batch, usually embedding b.Plan.
type PromptBuilder func(b Batch) string

// CallFunc sends one prompt through a provider chain and decodes the reply.
type CallFunc[T any] func(ctx context.Context, prompt string) ([]T, error)

// Generate splits total items into batches of size, runs them with RunParallel and
// concatenates the results in batch order. It can return fewer than total items when
// batches fail and the runner has no fallback.
func Generate[T any](
	ctx context.Context,
	r Runner[T],
	total, size int,
	plan topicplan.Plan,
	build PromptBuilder,
	call CallFunc[T],
) ([]T, Report) {
	batches := Split(total, size, plan)
	return r.RunParallel(ctx, batches, func(ctx context.Context, b Batch) ([]T, error) {
		items, err := call(ctx, build(b))
		if err != nil {
			return nil, err
		}
		if len(items) > b.Size {
			items = items[:b.Size]
		}
		return items, nil
	})
}
