package domain

import (
	"context"
	"time"
)

// Generator runs one request through a fallback chain.
type Generator interface {
	Run(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GenerationResult is the accepted reply and the provider that produced it.
type GenerationResult struct {
	Text     string
	Provider string
	Attempts []ProviderAttempt
}

// ProviderStatus is the advisory health of one provider, last write wins.
type ProviderStatus string

const (
	StatusUnknown       ProviderStatus = "unknown"
	StatusWorking       ProviderStatus = "working"
	StatusAllKeysFailed ProviderStatus = "all_keys_failed"
	StatusNoCredits     ProviderStatus = "no_credits"
	StatusError         ProviderStatus = "error"
	StatusNetworkError  ProviderStatus = "network_error"
)

type ProviderHealth struct {
	Status    ProviderStatus `json:"status"`
	LastError string         `json:"lastError,omitempty"`
	LastCheck time.Time      `json:"lastCheck"`
}

// MockExam is a generated exam plus how it was assembled.
type MockExam struct {
	ID          string     `json:"id"`
	ModuleID    string     `json:"moduleId"`
	Mode        ExamMode   `json:"mode"`
	TopicPlan   string     `json:"topicPlan"`
	Questions   []Question `json:"questions"`
	AIBatches   int        `json:"aiBatches"`
	Fallbacks   int        `json:"fallbackBatches"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// ChatService answers a raw prompt through the server provider chain.
type ChatService interface {
	Respond(ctx context.Context, message string) (string, error)
}

type MockService interface {
	GenerateExam(ctx context.Context, moduleID string, mode ExamMode) (*MockExam, error)
	GenerateForTopic(ctx context.Context, moduleID, topic string, count int) ([]Question, error)
}

type FlashcardService interface {
	Generate(ctx context.Context, moduleID, topic string) ([]Flashcard, error)
	GenerateFullModule(ctx context.Context, moduleID string, topics []string) ([]Flashcard, error)
}

type NotesService interface {
	Generate(ctx context.Context, moduleID, topic string) (*NoteBundle, error)
	GenerateBulk(ctx context.Context, moduleID string, topics []string) ([]TopicNotes, error)
}

// ModuleCatalog resolves module ids to their names and topic lists.
type ModuleCatalog interface {
	Module(id string) (Module, error)
	Modules() []Module
}
