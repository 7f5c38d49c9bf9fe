// Package batch splits large generation jobs into batches and runs them concurrently with
// staggered starts, falling back per batch so one failure never sinks the whole job.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/topicplan"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch is one slice of a job: items Offset+1..Offset+Size of the whole.
type Batch struct {
	Index  int
	Offset int
	Size   int
	Plan   topicplan.Plan
}

// Split cuts total items into ceil(total/size) batches. Each batch carries the matching
// window of plan, renumbered from 1.
func Split(total, size int, plan topicplan.Plan) []Batch {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		size = total
	}
	count := (total + size - 1) / size
	batches := make([]Batch, 0, count)
	for i := 0; i < count; i++ {
		offset := i * size
		n := min(size, total-offset)
		batches = append(batches, Batch{Index: i, Offset: offset, Size: n, Plan: plan.Slice(offset, n)})
	}
	return batches
}

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceEmpty    Source = "empty"
)

type BatchReport struct {
	Index  int    `json:"index"`
	Source Source `json:"source"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

type Report struct {
	Batches        []BatchReport `json:"batches"`
	ShortCircuited bool          `json:"shortCircuited"`
	Sequential     bool          `json:"sequential"`
}

// Count returns how many batches ended with the given source.
func (r Report) Count(src Source) int {
	n := 0
	for _, b := range r.Batches {
		if b.Source == src {
			n++
		}
	}
	return n
}

// GenerateFunc produces the items of one batch.
type GenerateFunc[T any] func(ctx context.Context, b Batch) ([]T, error)

// FallbackFunc supplies substitute items for a batch whose generation failed. It may
// return nothing.
type FallbackFunc[T any] func(b Batch) []T

type Runner[T any] struct {
	Stagger  time.Duration // delay between consecutive batch starts
	Cooldown time.Duration // pause between sequential retries in RunPhased
	Fallback FallbackFunc[T]
	Logger   *zap.Logger
}

func (r Runner[T]) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// RunParallel starts every batch concurrently, batch i after i*Stagger, and returns the
// items concatenated in batch order whatever order they finished in.
func (r Runner[T]) RunParallel(ctx context.Context, batches []Batch, gen GenerateFunc[T]) ([]T, Report) {
	results := make([][]T, len(batches))
	reports := make([]BatchReport, len(batches))

	var g errgroup.Group
	for i, b := range batches {
		g.Go(func() error {
			if err := sleep(ctx, time.Duration(i)*r.Stagger); err != nil {
				results[i], reports[i] = r.fallback(b, err)
				return nil
			}
			results[i], reports[i] = r.attempt(ctx, b, gen)
			return nil
		})
	}
	_ = g.Wait()

	return flatten(results), Report{Batches: reports}
}

// RunPhased is the mock-exam scheduler. Batch 0 runs alone first; if it fails on a quota
// limit every later batch goes straight to the fallback. Otherwise batches 1..N-1 run
// concurrently, and if any of them fails the group is cancelled and the unfinished batches
// are retried one at a time with Cooldown between attempts. A quota failure in either of
// those phases sends every unfinished batch to the fallback without another AI call.
func (r Runner[T]) RunPhased(ctx context.Context, batches []Batch, gen GenerateFunc[T]) ([]T, Report) {
	n := len(batches)
	results := make([][]T, n)
	report := Report{Batches: make([]BatchReport, n)}
	if n == 0 {
		return nil, report
	}
	log := r.logger()

	skipAI := false
	items, err := gen(ctx, batches[0])
	if err == nil && len(items) > 0 {
		results[0], report.Batches[0] = items, BatchReport{Index: 0, Source: SourceAI, Items: len(items)}
	} else {
		if domain.IsRateLimited(err) {
			skipAI = true
			log.Warn("Quota exhausted on first batch, using fallback content for the rest", zap.Error(err))
		}
		results[0], report.Batches[0] = r.fallback(batches[0], failure(err))
	}

	if n == 1 {
		return flatten(results), report
	}

	if skipAI {
		report.ShortCircuited = true
		for i := 1; i < n; i++ {
			results[i], report.Batches[i] = r.fallback(batches[i], nil)
		}
		return flatten(results), report
	}

	filled := make([]bool, n)
	var quotaHit atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i < n; i++ {
		b := batches[i]
		g.Go(func() error {
			if err := sleep(gctx, time.Duration(i-1)*r.Stagger); err != nil {
				return err
			}
			items, err := gen(gctx, b)
			if err != nil {
				if domain.IsRateLimited(err) {
					quotaHit.Store(true)
				}
				return fmt.Errorf("batch %d: %w", b.Index+1, err)
			}
			if len(items) == 0 {
				return fmt.Errorf("batch %d: no items generated", b.Index+1)
			}
			results[i] = items
			report.Batches[i] = BatchReport{Index: i, Source: SourceAI, Items: len(items)}
			filled[i] = true
			return nil
		})
	}
	groupErr := g.Wait()
	if groupErr == nil {
		return flatten(results), report
	}
	// groupErr may be a sibling's cancellation, so quota hits are tracked per batch.
	if quotaHit.Load() || domain.IsRateLimited(groupErr) {
		skipAI = true
		report.ShortCircuited = true
		log.Warn("Quota exhausted during parallel batches, using fallback content for the rest", zap.Error(groupErr))
	} else {
		log.Warn("Parallel batches failed, retrying sequentially", zap.Error(groupErr))
	}

	report.Sequential = true
	attempted := false
	for i := 1; i < n; i++ {
		if filled[i] {
			continue
		}
		if skipAI || ctx.Err() != nil {
			results[i], report.Batches[i] = r.fallback(batches[i], ctx.Err())
			continue
		}
		if attempted {
			if err := sleep(ctx, r.Cooldown); err != nil {
				results[i], report.Batches[i] = r.fallback(batches[i], err)
				continue
			}
		}
		attempted = true

		items, err := gen(ctx, batches[i])
		if err == nil && len(items) > 0 {
			results[i], report.Batches[i] = items, BatchReport{Index: i, Source: SourceAI, Items: len(items)}
			continue
		}
		if domain.IsRateLimited(err) {
			skipAI = true
			report.ShortCircuited = true
		}
		log.Warn("Sequential batch failed", zap.Int("batch", i+1), zap.Error(failure(err)))
		results[i], report.Batches[i] = r.fallback(batches[i], failure(err))
	}

	return flatten(results), report
}

func (r Runner[T]) attempt(ctx context.Context, b Batch, gen GenerateFunc[T]) ([]T, BatchReport) {
	items, err := gen(ctx, b)
	if err == nil && len(items) > 0 {
		return items, BatchReport{Index: b.Index, Source: SourceAI, Items: len(items)}
	}
	r.logger().Warn("Batch failed, using fallback", zap.Int("batch", b.Index+1), zap.Error(failure(err)))
	return r.fallback(b, failure(err))
}

func (r Runner[T]) fallback(b Batch, cause error) ([]T, BatchReport) {
	var items []T
	if r.Fallback != nil {
		items = r.Fallback(b)
	}
	rep := BatchReport{Index: b.Index, Source: SourceFallback, Items: len(items)}
	if len(items) == 0 {
		rep.Source = SourceEmpty
	}
	if cause != nil {
		rep.Error = cause.Error()
	}
	return items, rep
}

// failure turns an empty-but-successful batch into an error for reporting.
func failure(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("no items generated")
}

func flatten[T any](parts [][]T) []T {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
