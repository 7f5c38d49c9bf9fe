package middleware

import (
	"ccee-sentinel/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidatedModuleIDKey is the fiber.Ctx local set by ValidateModuleParam.
const ValidatedModuleIDKey = "validated_module_id"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateModuleParam validates the :moduleId path parameter.
func (vm *ValidationMiddleware) ValidateModuleParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		moduleID := c.Params("moduleId")
		if errors := vm.validator.ValidateModuleID(moduleID); len(errors) > 0 {
			return errors
		}
		c.Locals(ValidatedModuleIDKey, moduleID)
		return c.Next()
	}
}
