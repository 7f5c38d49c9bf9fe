package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ccee-sentinel/internal/batch"
	"ccee-sentinel/internal/cache"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/fallback"
	"ccee-sentinel/internal/topicplan"
	"ccee-sentinel/internal/util"

	"go.uber.org/zap"
)

// MaxTopicQuestions bounds a single-topic request.
const MaxTopicQuestions = 50

var (
	blockLine    = regexp.MustCompile(`(?m)^[ \t]*/\*(?:[^*]|\*+[^*/])*\*+/[ \t]*(?:\n|\z)`)
	blockComment = regexp.MustCompile(`/\*(?:[^*]|\*+[^*/])*\*+/`)
	lineComment  = regexp.MustCompile(`//.*$`)
)

type mockService struct {
	gen     domain.Generator
	catalog domain.ModuleCatalog
	planner *topicplan.Planner
	bank    *fallback.Bank
	store   *ContentStore
	cfg     config.GenerationConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewMockService(
	gen domain.Generator,
	catalog domain.ModuleCatalog,
	planner *topicplan.Planner,
	bank *fallback.Bank,
	store *ContentStore,
	cfg config.GenerationConfig,
	logger *zap.Logger,
) domain.MockService {
	return &mockService{
		gen:     gen,
		catalog: catalog,
		planner: planner,
		bank:    bank,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *mockService) examSize(mode domain.ExamMode) (int, error) {
	switch mode {
	case domain.ModeCCEE:
		return s.cfg.CCEEQuestions, nil
	case domain.ModePractice:
		return s.cfg.PracticeQuestions, nil
	}
	return 0, domain.NewInvalidInputError(fmt.Sprintf("unknown exam mode %q", mode))
}

// GenerateExam builds a full mock exam. Batches that fail are filled from the static bank, so
// the exam only fails when neither source produced a single question.
func (s *mockService) GenerateExam(ctx context.Context, moduleID string, mode domain.ExamMode) (*domain.MockExam, error) {
	total, err := s.examSize(mode)
	if err != nil {
		return nil, err
	}
	m, err := s.catalog.Module(moduleID)
	if err != nil {
		return nil, err
	}

	examID := util.NewULID()
	log := s.logger.With(zap.String("exam_id", examID), zap.String("module_id", m.ID), zap.String("mode", string(mode)))

	plan := s.planner.Build(m.ID, total, topicplan.BoostGraphTopics(m.ID, m.Topics))
	batches := batch.Split(total, s.cfg.BatchSize, plan)
	log.Info("Generating mock exam", zap.Int("questions", total), zap.Int("batches", len(batches)))

	runner := batch.Runner[domain.Question]{
		Stagger:  s.cfg.Stagger,
		Cooldown: s.cfg.Cooldown,
		Logger:   log,
		Fallback: func(b batch.Batch) []domain.Question {
			return s.bank.Sample(m.ID, b.Plan.Topics(), b.Size)
		},
	}
	questions, report := runner.RunPhased(ctx, batches, func(ctx context.Context, b batch.Batch) ([]domain.Question, error) {
		prompt := mockBatchPrompt(m, mode, b.Size, b.Plan)
		type generated struct {
			qs       []domain.Question
			provider string
		}
		res, err := retryBatch(ctx, s.cfg.BatchRetries, s.cfg.RetryBackoff, log.With(zap.Int("batch", b.Index+1)),
			func(ctx context.Context) (generated, error) {
				qs, provider, err := generateList[domain.Question](ctx, s.gen, log, "mock:"+m.ID, prompt, "questions")
				return generated{qs, provider}, err
			})
		if err != nil {
			return nil, err
		}
		qs, provider := res.qs, res.provider
		if len(qs) > b.Size {
			qs = qs[:b.Size]
		}
		log.Info("Batch generated", zap.Int("batch", b.Index+1), zap.Int("questions", len(qs)), zap.String("provider", provider))
		return tagAI(qs), nil
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.NewNothingGeneratedError(fmt.Sprintf("no questions could be generated for %s", m.ID))
	}

	exam := &domain.MockExam{
		ID:          examID,
		ModuleID:    m.ID,
		Mode:        mode,
		TopicPlan:   plan.String(),
		Questions:   renumber(questions),
		AIBatches:   report.Count(batch.SourceAI),
		Fallbacks:   report.Count(batch.SourceFallback),
		GeneratedAt: s.now(),
	}
	log.Info("Mock exam ready",
		zap.Int("questions", len(exam.Questions)),
		zap.Int("ai_batches", exam.AIBatches),
		zap.Int("fallback_batches", exam.Fallbacks),
		zap.Bool("short_circuited", report.ShortCircuited),
		zap.Bool("sequential", report.Sequential))
	return exam, nil
}

// GenerateForTopic returns count questions on a single topic. Results are cached per
// module and topic; a hit returns the cached set cut to count.
func (s *mockService) GenerateForTopic(ctx context.Context, moduleID, topic string, count int) ([]domain.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewInvalidInputError("topic is required")
	}
	if count < 1 || count > MaxTopicQuestions {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("count must be between 1 and %d", MaxTopicQuestions))
	}
	m, err := resolveModule(s.catalog, moduleID, []string{topic})
	if err != nil {
		return nil, err
	}

	qs, err := cached(ctx, s.store, s.store.Questions, "questions", cache.ContentKey(m.ID, topic), func(ctx context.Context) ([]domain.Question, error) {
		qs, provider, err := generateList[domain.Question](ctx, s.gen, s.logger, "topic:"+m.ID,
			topicQuestionsPrompt(m, topic, count), "questions")
		if err != nil {
			return nil, err
		}
		s.logger.Info("Generated topic questions",
			zap.String("module_id", m.ID), zap.String("topic", topic),
			zap.Int("questions", len(qs)), zap.String("provider", provider))
		for i := range qs {
			qs[i].Topic = topic
		}
		return renumber(tagAI(qs)), nil
	})
	if err != nil {
		return nil, err
	}
	if len(qs) > count {
		qs = qs[:count]
	}
	return append([]domain.Question(nil), qs...), nil
}

func tagAI(qs []domain.Question) []domain.Question {
	for i := range qs {
		qs[i].Source = domain.SourceAI
		qs[i].Snippet = StripComments(qs[i].Snippet)
	}
	return qs
}

func renumber(qs []domain.Question) []domain.Question {
	for i := range qs {
		qs[i].ID = strconv.Itoa(i + 1)
	}
	return qs
}

// StripComments removes // and /* */ comments from a code snippet. Lines that held only a
// comment are dropped.
func StripComments(snippet string) string {
	if snippet == "" {
		return ""
	}
	snippet = blockLine.ReplaceAllString(snippet, "")
	snippet = blockComment.ReplaceAllString(snippet, "")
	lines := strings.Split(snippet, "\n")
	out := lines[:0]
	for _, line := range lines {
		stripped := strings.TrimRight(lineComment.ReplaceAllString(line, ""), " \t\r")
		if stripped == "" && strings.TrimSpace(line) != "" {
			continue
		}
		out = append(out, stripped)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
