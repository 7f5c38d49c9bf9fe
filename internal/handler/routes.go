package handler

import (
	"ccee-sentinel/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Chat       *ChatHandler
	Status     *StatusHandler
	Mock       *MockHandler
	Flashcards *FlashcardHandler
	Notes      *NotesHandler
	Cache      *CacheHandler
}

// Register mounts the API under /api.
func Register(app fiber.Router, h Handlers) {
	vm := middleware.NewValidationMiddleware()
	api := app.Group("/api")

	api.Post("/chat", h.Chat.Chat)
	api.Get("/status", h.Status.Status)

	api.Post("/mock/generate", h.Mock.GenerateExam)
	api.Post("/mock/topic", h.Mock.GenerateForTopic)

	api.Post("/flashcards", h.Flashcards.Generate)
	api.Post("/flashcards/module", h.Flashcards.GenerateModule)

	api.Post("/notes", h.Notes.Generate)
	api.Post("/notes/bulk", h.Notes.GenerateBulk)

	api.Delete("/cache/:moduleId", vm.ValidateModuleParam(), h.Cache.Clear)
}
