package service

import (
	"context"
	"fmt"
	"strings"

	"ccee-sentinel/internal/batch"
	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/topicplan"

	"go.uber.org/zap"
)

type flashcardService struct {
	gen     domain.Generator
	catalog domain.ModuleCatalog
	store   *ContentStore
	cfg     config.GenerationConfig
	logger  *zap.Logger
}

func NewFlashcardService(gen domain.Generator, catalog domain.ModuleCatalog, store *ContentStore, cfg config.GenerationConfig, logger *zap.Logger) domain.FlashcardService {
	return &flashcardService{gen: gen, catalog: catalog, store: store, cfg: cfg, logger: logger}
}

func (s *flashcardService) Generate(ctx context.Context, moduleID, topic string) ([]domain.Flashcard, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewInvalidInputError("topic is required")
	}
	m, err := resolveModule(s.catalog, moduleID, []string{topic})
	if err != nil {
		return nil, err
	}

	cards, err := cached(ctx, s.store, s.store.Flashcards, "flashcards", cache.ContentKey(m.ID, topic), func(ctx context.Context) ([]domain.Flashcard, error) {
		cards, provider, err := generateList[domain.Flashcard](ctx, s.gen, s.logger, "flashcards:"+m.ID,
			flashcardPrompt(m.ID, topic, s.cfg.FlashcardsPerBatch), "flashcards")
		if err != nil {
			return nil, err
		}
		s.logger.Info("Generated flashcards", zap.String("module_id", m.ID), zap.String("topic", topic),
			zap.Int("cards", len(cards)), zap.String("provider", provider))
		return truncate(cards, s.cfg.FlashcardsPerBatch), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Flashcard(nil), cards...), nil
}

// GenerateFullModule generates FlashcardBatches batches of FlashcardsPerBatch cards in
// parallel, each over its own slice of the topic list. A failed batch contributes nothing.
func (s *flashcardService) GenerateFullModule(ctx context.Context, moduleID string, topics []string) ([]domain.Flashcard, error) {
	m, err := resolveModule(s.catalog, moduleID, topics)
	if err != nil {
		return nil, err
	}
	all := m.Topics
	if len(all) == 0 {
		all = []string{topicplan.GeneralTopic}
	}

	n, per := max(s.cfg.FlashcardBatches, 1), max(s.cfg.FlashcardsPerBatch, 1)
	runner := batch.Runner[domain.Flashcard]{Stagger: s.cfg.FlashcardStagger, Logger: s.logger}
	cards, report := batch.Generate(ctx, runner, n*per, per, topicplan.Plan{},
		func(b batch.Batch) string {
			return flashcardBatchPrompt(m.ID, TopicSlice(all, b.Index, n), b.Index+1, n, b.Size)
		},
		func(ctx context.Context, prompt string) ([]domain.Flashcard, error) {
			cards, _, err := generateList[domain.Flashcard](ctx, s.gen, s.logger, "flashcards:"+m.ID, prompt, "flashcards")
			return cards, err
		})

	s.logger.Info("Full module flashcards complete",
		zap.String("module_id", m.ID),
		zap.Int("cards", len(cards)),
		zap.Int("ok_batches", report.Count(batch.SourceAI)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, domain.NewNothingGeneratedError(fmt.Sprintf("no flashcards could be generated for %s", m.ID))
	}
	return cards, nil
}

// TopicSlice returns topics[floor(b*n/batches) : floor((b+1)*n/batches)]. When there are fewer
// topics than batches the slice can be empty, in which case the whole list is used.
func TopicSlice(topics []string, b, batches int) []string {
	n := len(topics)
	lo, hi := b*n/batches, (b+1)*n/batches
	if lo >= hi {
		return topics
	}
	return topics[lo:hi]
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
