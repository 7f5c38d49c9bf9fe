package service

import (
	"context"
	"strings"

	"ccee-sentinel/internal/domain"
)

// chatService proxies free-form prompts to the server chain and returns the raw reply.
type chatService struct {
	gen domain.Generator
}

func NewChatService(gen domain.Generator) domain.ChatService {
	return &chatService{gen: gen}
}

func (s *chatService) Respond(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.NewInvalidInputError("message is required")
	}
	res, err := s.gen.Run(ctx, domain.GenerationRequest{Prompt: message, Target: "chat"})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
