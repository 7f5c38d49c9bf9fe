package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Generation specific errors
	ErrModuleNotFound    ErrorCode = "MODULE_NOT_FOUND"
	ErrAIUnavailable     ErrorCode = "AI_UNAVAILABLE"
	ErrParse             ErrorCode = "PARSE_ERROR"
	ErrMalformedContent  ErrorCode = "MALFORMED_CONTENT"
	ErrNothingGenerated  ErrorCode = "NOTHING_GENERATED"
	ErrValidationFailure ErrorCode = "VALIDATION_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewModuleNotFoundError(moduleID string) *DomainError {
	return NewError(ErrModuleNotFound, fmt.Sprintf("Module not found: %s", moduleID), nil)
}

// NewAIUnavailableError renders as "AI Unavailable: <failure>; <failure>; ...".
func NewAIUnavailableError(exhausted *ExhaustedError) *DomainError {
	return NewError(ErrAIUnavailable, "AI Unavailable", exhausted)
}

func NewParseError(err error) *DomainError {
	return NewError(ErrParse, "Failed to parse AI response", err)
}

func NewMalformedContentError(message string) *DomainError {
	return NewError(ErrMalformedContent, message, nil)
}

func NewNothingGeneratedError(message string) *DomainError {
	return NewError(ErrNothingGenerated, message, nil)
}

// CodeOf returns the ErrorCode of the first DomainError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsParseFailure reports whether err means the AI replied but its content was unusable.
func IsParseFailure(err error) bool {
	code := CodeOf(err)
	return code == ErrParse || code == ErrMalformedContent
}

// IsRateLimited reports whether err is a chain exhaustion in which some provider hit its quota.
func IsRateLimited(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex) && ex.RateLimited()
}
