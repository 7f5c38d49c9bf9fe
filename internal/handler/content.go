package handler

import (
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/dto"
	"ccee-sentinel/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// FlashcardHandler handles flashcard generation requests
type FlashcardHandler struct {
	service   domain.FlashcardService
	validator *validation.Validator
}

func NewFlashcardHandler(service domain.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{service: service, validator: validation.NewValidator()}
}

// Generate godoc
// @Summary Generate flashcards for a topic
// @Tags flashcards
// @Accept json
// @Produce json
// @Param request body dto.TopicRequest true "Module and topic"
// @Success 200 {object} dto.FlashcardsResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /flashcards [post]
func (h *FlashcardHandler) Generate(c *fiber.Ctx) error {
	var req dto.TopicRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateTopicRequest(req.ModuleID, req.Topic); len(errs) > 0 {
		return errs
	}

	cards, err := h.service.Generate(c.UserContext(), req.ModuleID, req.Topic)
	if err != nil {
		return err
	}
	return c.JSON(dto.FlashcardsResponse{Flashcards: cards})
}

// GenerateModule godoc
// @Summary Generate flashcards across a module
// @Tags flashcards
// @Accept json
// @Produce json
// @Param request body dto.ModuleTopicsRequest true "Module and optional topics"
// @Success 200 {object} dto.FlashcardsResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /flashcards/module [post]
func (h *FlashcardHandler) GenerateModule(c *fiber.Ctx) error {
	var req dto.ModuleTopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateModuleTopicsRequest(req.ModuleID, req.Topics); len(errs) > 0 {
		return errs
	}

	cards, err := h.service.GenerateFullModule(c.UserContext(), req.ModuleID, req.Topics)
	if err != nil {
		return err
	}
	return c.JSON(dto.FlashcardsResponse{Flashcards: cards})
}

// NotesHandler handles study notes requests
type NotesHandler struct {
	service   domain.NotesService
	validator *validation.Validator
}

func NewNotesHandler(service domain.NotesService) *NotesHandler {
	return &NotesHandler{service: service, validator: validation.NewValidator()}
}

// Generate godoc
// @Summary Generate study notes for a topic
// @Tags notes
// @Accept json
// @Produce json
// @Param request body dto.TopicRequest true "Module and topic"
// @Success 200 {object} dto.NotesResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /notes [post]
func (h *NotesHandler) Generate(c *fiber.Ctx) error {
	var req dto.TopicRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateTopicRequest(req.ModuleID, req.Topic); len(errs) > 0 {
		return errs
	}

	notes, err := h.service.Generate(c.UserContext(), req.ModuleID, req.Topic)
	if err != nil {
		return err
	}
	return c.JSON(dto.NotesResponse{Data: notes})
}

// GenerateBulk godoc
// @Summary Generate study notes for many topics
// @Tags notes
// @Accept json
// @Produce json
// @Param request body dto.ModuleTopicsRequest true "Module and optional topics"
// @Success 200 {object} dto.BulkNotesResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Router /notes/bulk [post]
func (h *NotesHandler) GenerateBulk(c *fiber.Ctx) error {
	var req dto.ModuleTopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateModuleTopicsRequest(req.ModuleID, req.Topics); len(errs) > 0 {
		return errs
	}

	results, err := h.service.GenerateBulk(c.UserContext(), req.ModuleID, req.Topics)
	if err != nil {
		return err
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	return c.JSON(dto.BulkNotesResponse{Results: results, Succeeded: succeeded, Total: len(results)})
}
