package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ccee-sentinel/internal/adapter"
	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestContentStore_ClearModule(t *testing.T) {
	store := NewContentStore(5, nil, zap.NewNop())
	store.Questions.Put("java:Strings", []domain.Question{{Question: "q"}})
	store.Flashcards.Put("java:Strings", []domain.Flashcard{{Front: "f", Back: "b"}})
	store.Notes.Put("java:Strings", domain.NoteBundle{Topic: "Strings"})
	store.Notes.Put("ads:Trees", domain.NoteBundle{Topic: "Trees"})

	assert.Equal(t, map[string]int{"questions": 1, "flashcards": 1, "notes": 1}, store.Stats("java"))
	assert.Equal(t, 3, store.ClearModule("java"))
	assert.Equal(t, map[string]int{"questions": 0, "flashcards": 0, "notes": 0}, store.Stats("java"))
	assert.Equal(t, 1, store.Stats("")["notes"])
}

func TestContentStore_WithoutBackend(t *testing.T) {
	store := NewContentStore(5, nil, nil)
	n, err := store.Restore(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, store.Persist(context.Background()))
}

func TestContentStore_PersistAndRestore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	backend := adapter.NewRedisCacheAdapter(db)

	src := NewContentStore(5, backend, zap.NewNop(), cache.WithClock(fixedClock))
	src.Questions.Put("java:Strings", []domain.Question{{Question: "q", Options: []string{"a", "b"}}})
	src.Flashcards.Put("java:Strings", []domain.Flashcard{{Front: "f", Back: "b"}})

	questions, err := json.Marshal(src.Questions.Snapshot())
	require.NoError(t, err)
	flashcards, err := json.Marshal(src.Flashcards.Snapshot())
	require.NoError(t, err)
	notes, err := json.Marshal(src.Notes.Snapshot())
	require.NoError(t, err)

	mock.ExpectSet(cache.GenerateCacheKey("content", "snapshot", "questions"), string(questions), SnapshotTTL).SetVal("OK")
	mock.ExpectSet(cache.GenerateCacheKey("content", "snapshot", "flashcards"), string(flashcards), SnapshotTTL).SetVal("OK")
	mock.ExpectSet(cache.GenerateCacheKey("content", "snapshot", "notes"), string(notes), SnapshotTTL).SetVal("OK")
	require.NoError(t, src.Persist(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "questions")).SetVal(string(questions))
	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "flashcards")).SetVal(string(flashcards))
	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "notes")).SetErr(redis.Nil)

	dst := NewContentStore(5, backend, zap.NewNop())
	n, err := dst.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, ok := dst.Questions.Get("java:Strings")
	require.True(t, ok)
	assert.Equal(t, "q", got[0].Question)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentStore_RestoreReportsErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewContentStore(5, adapter.NewRedisCacheAdapter(db), zap.NewNop())

	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "questions")).SetVal("{broken")
	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "flashcards")).SetErr(redis.Nil)
	mock.ExpectGet(cache.GenerateCacheKey("content", "snapshot", "notes")).SetErr(redis.Nil)

	_, err := store.Restore(context.Background())
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCached_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	store := NewContentStore(5, nil, zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	var fetches atomic.Int32
	var fetchErr atomic.Value

	fetch := func(ctx context.Context) ([]domain.Flashcard, error) {
		if fetches.Add(1) == 1 {
			close(started)
		}
		<-release
		fetchErr.Store(fmt.Sprint(ctx.Err()))
		return []domain.Flashcard{{Front: "Collections", Back: "b"}}, nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached(first, store, store.Flashcards, "flashcards", "java:Collections", fetch)
		firstErr <- err
	}()
	<-started

	type result struct {
		cards []domain.Flashcard
		err   error
	}
	second := make(chan result, 1)
	go func() {
		cards, err := cached(context.Background(), store, store.Flashcards, "flashcards", "java:Collections", fetch)
		second <- result{cards, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "Collections", got.cards[0].Front)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Equal(t, "<nil>", fetchErr.Load())

	_, ok := store.Flashcards.Get("java:Collections")
	assert.True(t, ok)
}
