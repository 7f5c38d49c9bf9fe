package validation

import (
	"regexp"
	"strings"

	"ccee-sentinel/internal/domain"
)

const (
	MaxCount         = 50
	MaxTopics        = 30
	MaxTopicLength   = 200
	MaxMessageLength = 32 * 1024
)

var moduleIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// Validator provides request validation functionality
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateModuleID(moduleID string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(moduleID) == "" {
		return append(errors, domain.NewMissingFieldError("moduleId"))
	}
	if !moduleIDPattern.MatchString(moduleID) {
		errors = append(errors, domain.NewInvalidFormatError("moduleId", moduleID))
	}
	return errors
}

func (v *Validator) ValidateMockExamRequest(moduleID, mode string) domain.ValidationErrors {
	errors := v.ValidateModuleID(moduleID)
	switch domain.ExamMode(strings.ToUpper(mode)) {
	case domain.ModeCCEE, domain.ModePractice:
	default:
		errors = append(errors, domain.NewInvalidFormatError("mode", mode))
	}
	return errors
}

func (v *Validator) ValidateTopicRequest(moduleID, topic string) domain.ValidationErrors {
	errors := v.ValidateModuleID(moduleID)
	return append(errors, validateTopic("topic", topic)...)
}

func (v *Validator) ValidateTopicQuestionsRequest(moduleID, topic string, count int) domain.ValidationErrors {
	errors := v.ValidateTopicRequest(moduleID, topic)
	if count < 1 || count > MaxCount {
		errors = append(errors, domain.NewOutOfRangeError("count", count, 1, MaxCount))
	}
	return errors
}

// ValidateModuleTopicsRequest accepts an empty topic list; the module's configured topics apply.
func (v *Validator) ValidateModuleTopicsRequest(moduleID string, topics []string) domain.ValidationErrors {
	errors := v.ValidateModuleID(moduleID)
	if len(topics) > MaxTopics {
		errors = append(errors, domain.NewOutOfRangeError("topics", len(topics), 0, MaxTopics))
	}
	for _, t := range topics {
		errors = append(errors, validateTopic("topics", t)...)
	}
	return errors
}

func (v *Validator) ValidateChatRequest(message string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(message) == "" {
		errors = append(errors, domain.NewMissingFieldError("message"))
	} else if len(message) > MaxMessageLength {
		errors = append(errors, domain.NewOutOfRangeError("message", len(message), 1, MaxMessageLength))
	}
	return errors
}

func validateTopic(field, topic string) domain.ValidationErrors {
	switch {
	case strings.TrimSpace(topic) == "":
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	case len(topic) > MaxTopicLength:
		return domain.ValidationErrors{domain.NewOutOfRangeError(field, len(topic), 1, MaxTopicLength)}
	}
	return nil
}
