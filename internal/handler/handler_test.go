package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/dto"
	"ccee-sentinel/internal/handler"
	"ccee-sentinel/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

type MockChatService struct {
	RespondFunc func(ctx context.Context, message string) (string, error)
}

func (m *MockChatService) Respond(ctx context.Context, message string) (string, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, message)
	}
	panic("MockChatService.RespondFunc not implemented")
}

type MockMockService struct {
	GenerateExamFunc     func(ctx context.Context, moduleID string, mode domain.ExamMode) (*domain.MockExam, error)
	GenerateForTopicFunc func(ctx context.Context, moduleID, topic string, count int) ([]domain.Question, error)
}

func (m *MockMockService) GenerateExam(ctx context.Context, moduleID string, mode domain.ExamMode) (*domain.MockExam, error) {
	if m.GenerateExamFunc != nil {
		return m.GenerateExamFunc(ctx, moduleID, mode)
	}
	panic("MockMockService.GenerateExamFunc not implemented")
}

func (m *MockMockService) GenerateForTopic(ctx context.Context, moduleID, topic string, count int) ([]domain.Question, error) {
	if m.GenerateForTopicFunc != nil {
		return m.GenerateForTopicFunc(ctx, moduleID, topic, count)
	}
	panic("MockMockService.GenerateForTopicFunc not implemented")
}

type MockFlashcardService struct {
	GenerateFunc           func(ctx context.Context, moduleID, topic string) ([]domain.Flashcard, error)
	GenerateFullModuleFunc func(ctx context.Context, moduleID string, topics []string) ([]domain.Flashcard, error)
}

func (m *MockFlashcardService) Generate(ctx context.Context, moduleID, topic string) ([]domain.Flashcard, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, moduleID, topic)
	}
	panic("MockFlashcardService.GenerateFunc not implemented")
}

func (m *MockFlashcardService) GenerateFullModule(ctx context.Context, moduleID string, topics []string) ([]domain.Flashcard, error) {
	if m.GenerateFullModuleFunc != nil {
		return m.GenerateFullModuleFunc(ctx, moduleID, topics)
	}
	panic("MockFlashcardService.GenerateFullModuleFunc not implemented")
}

type MockNotesService struct {
	GenerateFunc     func(ctx context.Context, moduleID, topic string) (*domain.NoteBundle, error)
	GenerateBulkFunc func(ctx context.Context, moduleID string, topics []string) ([]domain.TopicNotes, error)
}

func (m *MockNotesService) Generate(ctx context.Context, moduleID, topic string) (*domain.NoteBundle, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, moduleID, topic)
	}
	panic("MockNotesService.GenerateFunc not implemented")
}

func (m *MockNotesService) GenerateBulk(ctx context.Context, moduleID string, topics []string) ([]domain.TopicNotes, error) {
	if m.GenerateBulkFunc != nil {
		return m.GenerateBulkFunc(ctx, moduleID, topics)
	}
	panic("MockNotesService.GenerateBulkFunc not implemented")
}

type fakeHealth map[string]domain.ProviderHealth

func (f fakeHealth) Snapshot() map[string]domain.ProviderHealth { return f }

type fakeStore struct {
	cleared   map[string]int
	persisted int
}

func (f *fakeStore) Stats(string) map[string]int {
	return map[string]int{"questions": 2, "flashcards": 1, "notes": 0}
}

func (f *fakeStore) ClearModule(moduleID string) int {
	return f.cleared[moduleID]
}

func (f *fakeStore) Persist(context.Context) error {
	f.persisted++
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) Module(id string) (domain.Module, error) {
	return domain.Module{}, domain.NewModuleNotFoundError(id)
}

func (fakeCatalog) Modules() []domain.Module {
	return []domain.Module{{ID: "java", Name: "Java", Topics: []string{"Strings"}}}
}

type testDeps struct {
	chat       *MockChatService
	mock       *MockMockService
	flashcards *MockFlashcardService
	notes      *MockNotesService
	health     fakeHealth
	store      *fakeStore
}

func setupApp(d *testDeps) *fiber.App {
	if d.health == nil {
		d.health = fakeHealth{}
	}
	if d.store == nil {
		d.store = &fakeStore{}
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	handler.Register(app, handler.Handlers{
		Chat:       handler.NewChatHandler(d.chat),
		Status:     handler.NewStatusHandler(d.health, d.store, fakeCatalog{}),
		Mock:       handler.NewMockHandler(d.mock),
		Flashcards: handler.NewFlashcardHandler(d.flashcards),
		Notes:      handler.NewNotesHandler(d.notes),
		Cache:      handler.NewCacheHandler(d.store),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChatHandler(t *testing.T) {
	chat := &MockChatService{RespondFunc: func(_ context.Context, message string) (string, error) {
		return "reply to " + message, nil
	}}
	app := setupApp(&testDeps{chat: chat})

	resp := doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reply to hello", decode[dto.ChatResponse](t, resp).Response)

	resp = doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatHandler_AIUnavailable(t *testing.T) {
	chat := &MockChatService{RespondFunc: func(context.Context, string) (string, error) {
		return "", domain.NewAIUnavailableError(&domain.ExhaustedError{Failures: []string{"gemini: all 2 keys quota exceeded", "aiml: 503 down"}})
	}}
	app := setupApp(&testDeps{chat: chat})

	resp := doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[middleware.ErrorResponse](t, resp)
	assert.Equal(t, "AI Unavailable: gemini: all 2 keys quota exceeded; aiml: 503 down", body.Message)
}

func TestChatHandler_InvalidBody(t *testing.T) {
	app := setupApp(&testDeps{chat: &MockChatService{}})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusHandler(t *testing.T) {
	now := time.Now()
	app := setupApp(&testDeps{health: fakeHealth{
		"gemini": {Status: domain.StatusAllKeysFailed, LastCheck: now},
		"aiml":   {Status: domain.StatusWorking, LastCheck: now},
	}})

	resp := doJSON(t, app, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.StatusResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, domain.StatusAllKeysFailed, body.Providers["gemini"].Status)
	assert.Equal(t, 2, body.Cache["questions"])
	require.Len(t, body.Modules, 1)

	app = setupApp(&testDeps{health: fakeHealth{"gemini": {Status: domain.StatusNoCredits}}})
	body = decode[dto.StatusResponse](t, doJSON(t, app, http.MethodGet, "/api/status", nil))
	assert.Equal(t, "degraded", body.Status)
}

func TestMockHandler_GenerateExam(t *testing.T) {
	var gotMode domain.ExamMode
	mock := &MockMockService{GenerateExamFunc: func(_ context.Context, moduleID string, mode domain.ExamMode) (*domain.MockExam, error) {
		gotMode = mode
		return &domain.MockExam{
			ID: "01HX", ModuleID: moduleID, Mode: mode,
			Questions: []domain.Question{{ID: "1", Question: "q", Options: []string{"a", "b"}}},
			AIBatches: 1, Fallbacks: 3,
		}, nil
	}}
	app := setupApp(&testDeps{mock: mock})

	resp := doJSON(t, app, http.MethodPost, "/api/mock/generate", dto.MockExamRequest{ModuleID: "java", Mode: "ccee"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.MockExamResponse](t, resp)
	assert.Equal(t, domain.ModeCCEE, gotMode)
	assert.Equal(t, 3, body.FallbackBatches)
	assert.Len(t, body.Questions, 1)

	resp = doJSON(t, app, http.MethodPost, "/api/mock/generate", dto.MockExamRequest{ModuleID: "java"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.ModePractice, gotMode)

	resp = doJSON(t, app, http.MethodPost, "/api/mock/generate", dto.MockExamRequest{ModuleID: "java", Mode: "final"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMockHandler_GenerateExam_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"module not found", domain.NewModuleNotFoundError("nope"), http.StatusNotFound},
		{"nothing generated", domain.NewNothingGeneratedError("empty"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockMockService{GenerateExamFunc: func(context.Context, string, domain.ExamMode) (*domain.MockExam, error) {
				return nil, tt.err
			}}
			resp := doJSON(t, setupApp(&testDeps{mock: mock}), http.MethodPost, "/api/mock/generate", dto.MockExamRequest{ModuleID: "nope", Mode: "CCEE"})
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMockHandler_GenerateForTopic(t *testing.T) {
	var gotCount int
	mock := &MockMockService{GenerateForTopicFunc: func(_ context.Context, _, topic string, count int) ([]domain.Question, error) {
		gotCount = count
		return []domain.Question{{ID: "1", Topic: topic, Question: "q", Options: []string{"a", "b"}}}, nil
	}}
	app := setupApp(&testDeps{mock: mock})

	resp := doJSON(t, app, http.MethodPost, "/api/mock/topic", dto.TopicQuestionsRequest{ModuleID: "java", Topic: "Strings"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, gotCount)
	body := decode[dto.QuestionsResponse](t, resp)
	assert.Equal(t, "Strings", body.Questions[0].Topic)

	resp = doJSON(t, app, http.MethodPost, "/api/mock/topic", dto.TopicQuestionsRequest{ModuleID: "java", Topic: "Strings", Count: 51})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := decode[middleware.ValidationErrorResponse](t, resp)
	require.Len(t, errs.Errors, 1)
	assert.Equal(t, "count", errs.Errors[0].Field)
}

func TestFlashcardHandlers(t *testing.T) {
	var gotTopics []string
	svc := &MockFlashcardService{
		GenerateFunc: func(_ context.Context, _, _ string) ([]domain.Flashcard, error) {
			return []domain.Flashcard{{Front: "f", Back: "b"}}, nil
		},
		GenerateFullModuleFunc: func(_ context.Context, _ string, topics []string) ([]domain.Flashcard, error) {
			gotTopics = topics
			return make([]domain.Flashcard, 15), nil
		},
	}
	app := setupApp(&testDeps{flashcards: svc})

	resp := doJSON(t, app, http.MethodPost, "/api/flashcards", dto.TopicRequest{ModuleID: "java", Topic: "Strings"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.FlashcardsResponse](t, resp).Flashcards, 1)

	resp = doJSON(t, app, http.MethodPost, "/api/flashcards", dto.TopicRequest{ModuleID: "java"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/flashcards/module", dto.ModuleTopicsRequest{ModuleID: "java", Topics: []string{"a", "b"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.FlashcardsResponse](t, resp).Flashcards, 15)
	assert.Equal(t, []string{"a", "b"}, gotTopics)
}

func TestNotesHandlers(t *testing.T) {
	svc := &MockNotesService{
		GenerateFunc: func(_ context.Context, _, topic string) (*domain.NoteBundle, error) {
			return &domain.NoteBundle{Topic: topic, KillShots: []string{"k"}}, nil
		},
		GenerateBulkFunc: func(_ context.Context, _ string, topics []string) ([]domain.TopicNotes, error) {
			out := make([]domain.TopicNotes, len(topics))
			for i, topic := range topics {
				out[i] = domain.TopicNotes{Topic: topic, Success: i%2 == 0}
			}
			return out, nil
		},
	}
	app := setupApp(&testDeps{notes: svc})

	resp := doJSON(t, app, http.MethodPost, "/api/notes", dto.TopicRequest{ModuleID: "dbt", Topic: "Joins"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Joins", decode[dto.NotesResponse](t, resp).Data.Topic)

	resp = doJSON(t, app, http.MethodPost, "/api/notes/bulk", dto.ModuleTopicsRequest{ModuleID: "dbt", Topics: []string{"a", "b", "c"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.BulkNotesResponse](t, resp)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Succeeded)
}

func TestCacheHandler_Clear(t *testing.T) {
	store := &fakeStore{cleared: map[string]int{"java": 4}}
	app := setupApp(&testDeps{store: store})

	resp := doJSON(t, app, http.MethodDelete, "/api/cache/java", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[dto.CacheClearResponse](t, resp)
	assert.Equal(t, "java", body.ModuleID)
	assert.Equal(t, 4, body.Cleared)
	assert.Equal(t, 1, store.persisted)
}
