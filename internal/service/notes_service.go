package service

import (
	"context"
	"strings"

	"ccee-sentinel/internal/batch"
	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"

	"go.uber.org/zap"
)

type notesService struct {
	gen     domain.Generator
	catalog domain.ModuleCatalog
	store   *ContentStore
	cfg     config.GenerationConfig
	logger  *zap.Logger
}

func NewNotesService(gen domain.Generator, catalog domain.ModuleCatalog, store *ContentStore, cfg config.GenerationConfig, logger *zap.Logger) domain.NotesService {
	return &notesService{gen: gen, catalog: catalog, store: store, cfg: cfg, logger: logger}
}

func (s *notesService) Generate(ctx context.Context, moduleID, topic string) (*domain.NoteBundle, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewInvalidInputError("topic is required")
	}
	m, err := resolveModule(s.catalog, moduleID, []string{topic})
	if err != nil {
		return nil, err
	}

	notes, err := cached(ctx, s.store, s.store.Notes, "notes", cache.ContentKey(m.ID, topic), func(ctx context.Context) (domain.NoteBundle, error) {
		notes, provider, err := generateOne[domain.NoteBundle](ctx, s.gen, "notes:"+m.ID, notesPrompt(m.ID, topic))
		if err != nil {
			return domain.NoteBundle{}, err
		}
		if notes.Topic == "" {
			notes.Topic = topic
		}
		s.logger.Info("Generated notes", zap.String("module_id", m.ID), zap.String("topic", topic), zap.String("provider", provider))
		return *notes, nil
	})
	if err != nil {
		return nil, err
	}
	return &notes, nil
}

// GenerateBulk generates notes for every topic concurrently, topic i starting after
// i*NotesStagger. Each entry reports its own success; the call itself only fails on bad input.
func (s *notesService) GenerateBulk(ctx context.Context, moduleID string, topics []string) ([]domain.TopicNotes, error) {
	m, err := resolveModule(s.catalog, moduleID, topics)
	if err != nil {
		return nil, err
	}
	if len(m.Topics) == 0 {
		return nil, domain.NewInvalidInputError("at least one topic is required")
	}

	batches := make([]batch.Batch, len(m.Topics))
	for i := range batches {
		batches[i] = batch.Batch{Index: i, Offset: i, Size: 1}
	}
	runner := batch.Runner[domain.TopicNotes]{
		Stagger: s.cfg.NotesStagger,
		Logger:  s.logger,
		Fallback: func(b batch.Batch) []domain.TopicNotes {
			return []domain.TopicNotes{{Topic: m.Topics[b.Index]}}
		},
	}
	results, report := runner.RunParallel(ctx, batches, func(ctx context.Context, b batch.Batch) ([]domain.TopicNotes, error) {
		topic := m.Topics[b.Index]
		notes, err := s.Generate(ctx, m.ID, topic)
		if err != nil {
			return nil, err
		}
		return []domain.TopicNotes{{Topic: topic, Notes: notes, Success: true}}, nil
	})

	s.logger.Info("Bulk notes complete",
		zap.String("module_id", m.ID),
		zap.Int("topics", len(m.Topics)),
		zap.Int("succeeded", report.Count(batch.SourceAI)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
