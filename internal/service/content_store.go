package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotTTL bounds how long a persisted cache snapshot lives in Redis.
const SnapshotTTL = 7 * 24 * time.Hour

// ContentStore holds the per-module content caches shared by the generation services.
type ContentStore struct {
	Questions  *cache.ContentCache[[]domain.Question]
	Flashcards *cache.ContentCache[[]domain.Flashcard]
	Notes      *cache.ContentCache[domain.NoteBundle]

	questionSnap  *cache.SnapshotStore[[]domain.Question]
	flashcardSnap *cache.SnapshotStore[[]domain.Flashcard]
	notesSnap     *cache.SnapshotStore[domain.NoteBundle]

	group  singleflight.Group
	logger *zap.Logger
}

// NewContentStore creates empty caches. backend may be nil, in which case nothing is persisted.
func NewContentStore(capacity int, backend domain.Cache, logger *zap.Logger, opts ...cache.Option) *ContentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ContentStore{
		Questions:  cache.NewContentCache[[]domain.Question](capacity, opts...),
		Flashcards: cache.NewContentCache[[]domain.Flashcard](capacity, opts...),
		Notes:      cache.NewContentCache[domain.NoteBundle](capacity, opts...),
		logger:     logger,
	}
	if backend != nil {
		s.questionSnap = cache.NewSnapshotStore[[]domain.Question](backend, "questions", SnapshotTTL)
		s.flashcardSnap = cache.NewSnapshotStore[[]domain.Flashcard](backend, "flashcards", SnapshotTTL)
		s.notesSnap = cache.NewSnapshotStore[domain.NoteBundle](backend, "notes", SnapshotTTL)
	}
	return s
}

// Restore loads every persisted snapshot and returns the number of entries restored.
func (s *ContentStore) Restore(ctx context.Context) (int, error) {
	if s.questionSnap == nil {
		return 0, nil
	}
	var errs []error
	total := 0
	if n, err := s.questionSnap.Load(ctx, s.Questions); err != nil {
		errs = append(errs, err)
	} else {
		total += n
	}
	if n, err := s.flashcardSnap.Load(ctx, s.Flashcards); err != nil {
		errs = append(errs, err)
	} else {
		total += n
	}
	if n, err := s.notesSnap.Load(ctx, s.Notes); err != nil {
		errs = append(errs, err)
	} else {
		total += n
	}
	return total, errors.Join(errs...)
}

// Persist writes every cache to its snapshot key.
func (s *ContentStore) Persist(ctx context.Context) error {
	if s.questionSnap == nil {
		return nil
	}
	return errors.Join(
		s.questionSnap.Save(ctx, s.Questions),
		s.flashcardSnap.Save(ctx, s.Flashcards),
		s.notesSnap.Save(ctx, s.Notes),
	)
}

// ClearModule drops every cached entry of moduleID and returns how many were removed.
func (s *ContentStore) ClearModule(moduleID string) int {
	n := s.Questions.ClearPrefix(moduleID) + s.Flashcards.ClearPrefix(moduleID) + s.Notes.ClearPrefix(moduleID)
	s.logger.Info("Cleared module cache", zap.String("module_id", moduleID), zap.Int("entries", n))
	return n
}

// Stats reports the number of entries per cache for moduleID ("" for all modules).
func (s *ContentStore) Stats(moduleID string) map[string]int {
	return map[string]int{
		"questions":  s.Questions.Len(moduleID),
		"flashcards": s.Flashcards.Len(moduleID),
		"notes":      s.Notes.Len(moduleID),
	}
}

// flightTimeout bounds a shared generation once it no longer follows any caller's context.
const flightTimeout = 5 * time.Minute

// cached returns the entry for key, generating it with fetch on a miss. A hit refreshes the
// entry's timestamp. Concurrent misses on the same key share one fetch, which runs detached
// from the callers' cancellation; each caller stops waiting when its own ctx ends.
func cached[T any](ctx context.Context, s *ContentStore, c *cache.ContentCache[T], name, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.Get(key); ok {
		c.Touch(key)
		s.logger.Debug("Content cache hit", zap.String("cache", name), zap.String("key", key))
		return v, nil
	}

	ch := s.group.DoChan(name+"|"+key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if evicted, ok := c.Put(key, v); ok {
			s.logger.Info("Evicted oldest cache entry", zap.String("cache", name), zap.String("evicted", evicted), zap.String("key", key))
		}
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	if res.Shared {
		s.logger.Debug("Shared in-flight generation", zap.String("cache", name), zap.String("key", key))
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type from singleflight for %s: %T", key, res.Val)
	}
	return v, nil
}
