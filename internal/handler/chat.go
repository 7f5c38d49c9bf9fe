package handler

import (
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/dto"
	"ccee-sentinel/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler proxies raw prompts to the server provider chain.
type ChatHandler struct {
	service   domain.ChatService
	validator *validation.Validator
}

func NewChatHandler(service domain.ChatService) *ChatHandler {
	return &ChatHandler{service: service, validator: validation.NewValidator()}
}

// Chat godoc
// @Summary Send a raw prompt
// @Description Forwards the message to the provider chain and returns the reply text
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Prompt"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if errs := h.validator.ValidateChatRequest(req.Message); len(errs) > 0 {
		return errs
	}

	reply, err := h.service.Respond(c.UserContext(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(dto.ChatResponse{Response: reply})
}
