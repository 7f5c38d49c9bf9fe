package dto

import (
	"time"

	"ccee-sentinel/internal/domain"
)

// ChatRequest is a raw prompt forwarded to the provider chain.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the provider's reply text.
// The field name matches what remote backends are expected to return.
type ChatResponse struct {
	Response string `json:"response"`
}

// MockExamRequest represents a full mock exam request
type MockExamRequest struct {
	ModuleID string `json:"moduleId"`
	Mode     string `json:"mode"`
}

type MockExamResponse struct {
	ID              string            `json:"id"`
	ModuleID        string            `json:"moduleId"`
	Mode            string            `json:"mode"`
	TopicPlan       string            `json:"topicPlan"`
	Questions       []domain.Question `json:"questions"`
	AIBatches       int               `json:"aiBatches"`
	FallbackBatches int               `json:"fallbackBatches"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

func NewMockExamResponse(exam *domain.MockExam) MockExamResponse {
	return MockExamResponse{
		ID:              exam.ID,
		ModuleID:        exam.ModuleID,
		Mode:            string(exam.Mode),
		TopicPlan:       exam.TopicPlan,
		Questions:       exam.Questions,
		AIBatches:       exam.AIBatches,
		FallbackBatches: exam.Fallbacks,
		GeneratedAt:     exam.GeneratedAt,
	}
}

// TopicQuestionsRequest asks for count MCQs on a single topic.
type TopicQuestionsRequest struct {
	ModuleID string `json:"moduleId"`
	Topic    string `json:"topic"`
	Count    int    `json:"count"`
}

type QuestionsResponse struct {
	Questions []domain.Question `json:"questions"`
}

// TopicRequest selects one topic of a module (flashcards, notes).
type TopicRequest struct {
	ModuleID string `json:"moduleId"`
	Topic    string `json:"topic"`
}

// ModuleTopicsRequest selects a module and optionally overrides its topic list.
type ModuleTopicsRequest struct {
	ModuleID string   `json:"moduleId"`
	Topics   []string `json:"topics"`
}

type FlashcardsResponse struct {
	Flashcards []domain.Flashcard `json:"flashcards"`
}

type NotesResponse struct {
	Data *domain.NoteBundle `json:"data"`
}

type BulkNotesResponse struct {
	Results   []domain.TopicNotes `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Total     int                 `json:"total"`
}

// StatusResponse reports advisory provider health and cache occupancy.
type StatusResponse struct {
	Status    string                           `json:"status"`
	Providers map[string]domain.ProviderHealth `json:"providers"`
	Cache     map[string]int                   `json:"cache"`
	Modules   []domain.Module                  `json:"modules"`
}

type CacheClearResponse struct {
	ModuleID string `json:"moduleId"`
	Cleared  int    `json:"cleared"`
}
