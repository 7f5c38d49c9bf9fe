package middleware

import (
	"context"
	"errors"
	"net/http"

	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse represents validation error response
type ValidationErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Status  int                 `json:"status"`
	Errors  []domain.FieldError `json:"errors"`
}

// ErrorHandler is a centralized error handling middleware
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log := logger.Get().With(zap.String("path", c.Path()), zap.Any("request_id", c.Locals(RequestIDKey)))

		var validationErrs domain.ValidationErrors
		if errors.As(err, &validationErrs) {
			log.Warn("Validation errors occurred", zap.Int("error_count", len(validationErrs)))
			return c.Status(http.StatusBadRequest).JSON(ValidationErrorResponse{
				Code:    string(domain.ErrValidationFailure),
				Message: "Request validation failed",
				Status:  http.StatusBadRequest,
				Errors:  validationErrs,
			})
		}

		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			statusCode := mapDomainErrorToHTTPStatus(domainErr)
			response := ErrorResponse{
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Status:  statusCode,
			}

			var exhausted *domain.ExhaustedError
			if errors.As(domainErr, &exhausted) {
				// The UI shows the full "AI Unavailable: ..." text.
				response.Message = domainErr.Error()
				response.Details = map[string]interface{}{
					"failures":    exhausted.Failures,
					"rateLimited": exhausted.RateLimited(),
				}
			}

			fields := []zap.Field{
				zap.String("code", string(domainErr.Code)),
				zap.Int("status", statusCode),
				zap.Error(err),
			}
			if statusCode >= http.StatusInternalServerError {
				log.Error("Domain error occurred", fields...)
			} else {
				log.Warn("Domain error occurred", fields...)
			}
			return c.Status(statusCode).JSON(response)
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn("Request aborted", zap.Error(err))
			return c.Status(http.StatusGatewayTimeout).JSON(ErrorResponse{
				Code:    "TIMEOUT",
				Message: "Generation did not finish in time",
				Status:  http.StatusGatewayTimeout,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			log.Warn("Fiber error occurred",
				zap.Int("code", fiberErr.Code),
				zap.String("message", fiberErr.Message),
			)
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
				Status:  fiberErr.Code,
			})
		}

		log.Error("Unknown error occurred", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    string(domain.ErrInternal),
			Message: "Internal server error",
			Status:  http.StatusInternalServerError,
		})
	}
}

// mapDomainErrorToHTTPStatus maps domain errors to HTTP status codes
func mapDomainErrorToHTTPStatus(err *domain.DomainError) int {
	switch err.Code {
	case domain.ErrNotFound, domain.ErrModuleNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidInput, domain.ErrValidationFailure:
		return http.StatusBadRequest
	case domain.ErrAIUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrParse, domain.ErrMalformedContent, domain.ErrNothingGenerated:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
