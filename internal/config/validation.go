package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "permitpulse/internal/errors"
)

var (
	validatorOnce   sync.Once
	structValidator *validator.Validate
)

// configValidator returns the shared validator instance with custom
// validators registered.
func configValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		// Register custom validators
		v.RegisterValidation("datelayout", isDateLayout)

		// Use YAML tag names in error messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		structValidator = v
	})
	return structValidator
}

// ValidateStruct validates a struct against its `validate` tags and returns
// a CONFIG error naming every failing field.
func ValidateStruct(v interface{}) error {
	err := configValidator().Struct(v)
	if err == nil {
		return nil
	}

	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			messages = append(messages, formatValidationError(fe))
		}
		return apperrors.NewConfigError(strings.Join(messages, "; "), nil)
	}

	return apperrors.NewConfigError("configuration validation failed", err)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(param, " ", ", ", -1))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "datelayout":
		return fmt.Sprintf("%s must be a valid date layout", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// Custom validators

// isDateLayout reports whether a string is a usable Go reference-date
// layout. A layout qualifies when it round-trips the reference date with
// the year intact, which rules out layouts with no date component.
func isDateLayout(fl validator.FieldLevel) bool {
	layout := fl.Field().String()
	if strings.TrimSpace(layout) == "" {
		return false
	}

	ref := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
	parsed, err := time.Parse(layout, ref.Format(layout))
	if err != nil {
		return false
	}
	return parsed.Year() == ref.Year()
}
