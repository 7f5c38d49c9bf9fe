package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockProvider ---
type MockProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// --- unreadyProvider ---
type unreadyProvider struct {
	*MockProvider
}

func (unreadyProvider) Ready(context.Context) bool {
	return false
}

// --- fakeGenerator ---
// fakeGenerator answers every request through respond and records the prompts it saw.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (f *fakeGenerator) Run(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	text, err := f.respond(req.Prompt)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if req.Parse != nil {
		if err := req.Parse(text); err != nil {
			return domain.GenerationResult{}, domain.NewAIUnavailableError(&domain.ExhaustedError{
				Failures: []string{"fake: " + err.Error()},
			})
		}
	}
	return domain.GenerationResult{Text: text, Provider: "fake"}, nil
}

func (f *fakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeGenerator) CountContaining(substr string) int {
	n := 0
	for _, p := range f.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func rateLimitedErr() error {
	return domain.NewAIUnavailableError(&domain.ExhaustedError{
		Failures:  []string{"gemini: all 13 keys quota exceeded"},
		QuotaHits: 13,
	})
}

func unavailableErr(msg string) error {
	return domain.NewAIUnavailableError(&domain.ExhaustedError{Failures: []string{msg}})
}

// --- content fixtures ---
var countPattern = regexp.MustCompile(`Generate (\d+) (?:questions|MCQs|flashcards)`)

// requestedCount reads the item count a prompt asks for.
func requestedCount(prompt string) int {
	m := countPattern.FindStringSubmatch(prompt)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func questionsJSON(n int, topic string) string {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:            strconv.Itoa(i + 1),
			Topic:         topic,
			Question:      fmt.Sprintf("Question %d about %s?", i+1, topic),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: i % 4,
			Type:          "CONCEPTUAL",
		}
	}
	b, _ := json.Marshal(qs)
	return string(b)
}

func flashcardsJSON(n int) string {
	cards := make([]domain.Flashcard, n)
	for i := range cards {
		cards[i] = domain.Flashcard{Type: "concept", Front: fmt.Sprintf("front %d", i+1), Back: fmt.Sprintf("back %d", i+1)}
	}
	b, _ := json.Marshal(map[string]any{"flashcards": cards})
	return string(b)
}

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		BatchSize:          10,
		CacheCapacity:      5,
		CCEEQuestions:      40,
		PracticeQuestions:  10,
		FlashcardsPerBatch: 5,
		FlashcardBatches:   3,
	}
}

func testCatalog() domain.ModuleCatalog {
	return NewModuleCatalog([]config.ModuleConfig{
		{ID: "cos_sdm", Name: "Operating Systems & SDM", Topics: []string{
			"Process Scheduling", "Deadlocks", "Memory Management",
			"Software Development Life Cycle", "Agile", "Git", "Docker",
		}},
		{ID: "java", Name: "OOP with Java", Topics: []string{"Strings", "Collections", "Exception Handling"}},
		{ID: "aptitude", Name: "Aptitude", Topics: nil},
	})
}
