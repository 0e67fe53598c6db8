// Package validation checks user input before it reaches storage.
//
// The only rule the vault enforces is presence: a prompt needs a title, a
// category and (after formatting) a positive text. Settings with a closed
// set of values are checked against that set.
package validation

import (
	"fmt"
	"strings"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requiredPromptFields lists the fields a prompt cannot be saved without
var requiredPromptFields = []struct {
	name  string
	value func(*models.Prompt) string
}{
	{"title", func(p *models.Prompt) string { return p.Name }},
	{"category", func(p *models.Prompt) string { return p.Category }},
	{"positive", func(p *models.Prompt) string { return p.Positive }},
}

// CheckPrompt reports every missing required field of p
func CheckPrompt(p *models.Prompt) *ValidationResult {
	result := &ValidationResult{Valid: true}
	for _, field := range requiredPromptFields {
		if strings.TrimSpace(field.value(p)) == "" {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   field.name,
				Code:    "REQUIRED_FIELD_MISSING",
				Message: fmt.Sprintf("Field '%s' is required", field.name),
			})
		}
	}
	return result
}

// ValidatePrompt returns a MissingField AppError when p lacks a required field
func ValidatePrompt(p *models.Prompt) error {
	result := CheckPrompt(p)
	if result.Valid {
		return nil
	}
	return result.ToAppError()
}

// ValidateSetting rejects an empty key as invalid input and a value the key
// does not accept as a validation error
func ValidateSetting(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.InvalidInputError("setting key is required")
	}
	if err := models.ValidateSetting(key, value); err != nil {
		return errors.ValidationError(err.Error()).WithContext("key", key)
	}
	return nil
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}

	var fields, details []string
	for _, validationErr := range result.Errors {
		fields = append(fields, validationErr.Field)
		details = append(details, validationErr.Message)
	}

	return errors.MissingFieldError(fields...).
		WithDetails(strings.Join(details, "; ")).
		WithContext("validation_errors", result.Errors)
}
