package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ccee-sentinel/internal/domain"
)

// SnapshotStore persists a whole ContentCache as one JSON value in the external cache so
// generated content survives restarts.
type SnapshotStore[T any] struct {
	backend domain.Cache
	key     string
	ttl     time.Duration
}

func NewSnapshotStore[T any](backend domain.Cache, name string, ttl time.Duration) *SnapshotStore[T] {
	return &SnapshotStore[T]{
		backend: backend,
		key:     GenerateCacheKey("content", "snapshot", name),
		ttl:     ttl,
	}
}

func (s *SnapshotStore[T]) Key() string {
	return s.key
}

func (s *SnapshotStore[T]) Save(ctx context.Context, c *ContentCache[T]) error {
	payload, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.key, err)
	}
	return s.backend.Set(ctx, s.key, string(payload), s.ttl)
}

// Load restores c from the stored snapshot. A missing snapshot is not an error.
func (s *SnapshotStore[T]) Load(ctx context.Context, c *ContentCache[T]) (int, error) {
	payload, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var entries []Entry[T]
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return 0, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	c.Restore(entries)
	return c.Len(""), nil
}
