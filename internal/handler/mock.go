package handler

import (
	"strings"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/dto"
	"ccee-sentinel/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// MockHandler handles mock exam HTTP requests
type MockHandler struct {
	service   domain.MockService
	validator *validation.Validator
}

func NewMockHandler(service domain.MockService) *MockHandler {
	return &MockHandler{service: service, validator: validation.NewValidator()}
}

// GenerateExam godoc
// @Summary Generate a mock exam
// @Description Builds a CCEE (40 questions) or PRACTICE (10 questions) exam in batches, falling back to the question bank per batch
// @Tags mock
// @Accept json
// @Produce json
// @Param request body dto.MockExamRequest true "Module and mode"
// @Success 200 {object} dto.MockExamResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /mock/generate [post]
func (h *MockHandler) GenerateExam(c *fiber.Ctx) error {
	var req dto.MockExamRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if req.Mode == "" {
		req.Mode = string(domain.ModePractice)
	}
	if errs := h.validator.ValidateMockExamRequest(req.ModuleID, req.Mode); len(errs) > 0 {
		return errs
	}

	exam, err := h.service.GenerateExam(c.UserContext(), req.ModuleID, domain.ExamMode(strings.ToUpper(req.Mode)))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMockExamResponse(exam))
}

// GenerateForTopic godoc
// @Summary Generate questions for one topic
// @Tags mock
// @Accept json
// @Produce json
// @Param request body dto.TopicQuestionsRequest true "Module, topic and count"
// @Success 200 {object} dto.QuestionsResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /mock/topic [post]
func (h *MockHandler) GenerateForTopic(c *fiber.Ctx) error {
	var req dto.TopicQuestionsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if req.Count == 0 {
		req.Count = 10
	}
	if errs := h.validator.ValidateTopicQuestionsRequest(req.ModuleID, req.Topic, req.Count); len(errs) > 0 {
		return errs
	}

	questions, err := h.service.GenerateForTopic(c.UserContext(), req.ModuleID, req.Topic, req.Count)
	if err != nil {
		return err
	}
	return c.JSON(dto.QuestionsResponse{Questions: questions})
}
