package service

import (
	"context"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/llmjson"

	"go.uber.org/zap"
)

// generateList runs prompt through gen and accepts the first reply that decodes into at least
// one valid T. Invalid entries of an accepted reply are dropped and logged.
func generateList[T any, PT llmjson.Validatable[T]](
	ctx context.Context,
	gen domain.Generator,
	logger *zap.Logger,
	target, prompt string,
	keys ...string,
) ([]T, string, error) {
	var items []T
	res, err := gen.Run(ctx, domain.GenerationRequest{
		Prompt: prompt,
		Target: target,
		Parse: func(text string) error {
			valid, rejected, err := llmjson.DecodeValid[T, PT](text, keys...)
			if err != nil {
				return err
			}
			if len(rejected) > 0 {
				logger.Warn("Dropped invalid items from AI response",
					zap.String("target", target),
					zap.Int("dropped", len(rejected)),
					zap.Errors("reasons", rejected))
			}
			items = valid
			return nil
		},
	})
	if err != nil {
		return nil, "", err
	}
	return items, res.Provider, nil
}

// generateOne is generateList for replies holding a single JSON object.
func generateOne[T any, PT llmjson.Validatable[T]](
	ctx context.Context,
	gen domain.Generator,
	target, prompt string,
) (*T, string, error) {
	var out T
	res, err := gen.Run(ctx, domain.GenerationRequest{
		Prompt: prompt,
		Target: target,
		Parse: func(text string) error {
			var decoded T
			if err := llmjson.Decode(text, &decoded); err != nil {
				return err
			}
			if err := PT(&decoded).Validate(); err != nil {
				return domain.NewMalformedContentError(err.Error())
			}
			out = decoded
			return nil
		},
	})
	if err != nil {
		return nil, "", err
	}
	return &out, res.Provider, nil
}
