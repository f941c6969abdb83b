package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an application error. Every fatal condition in the
// pipeline maps to exactly one type so callers can branch on the class of
// failure without string matching.
type ErrorType string

const (
	// ErrTypeInputMissing marks a dataset file that is absent or unreadable.
	ErrTypeInputMissing ErrorType = "INPUT_MISSING"
	// ErrTypeSchema marks an input file that lacks a required column.
	ErrTypeSchema ErrorType = "SCHEMA"
	// ErrTypeParsing marks input that is structurally unreadable. Individual
	// cell failures are not errors; they degrade to missing values.
	ErrTypeParsing ErrorType = "PARSING"
	// ErrTypeEmptyDataset marks a computation that is undefined on an empty
	// set (mean, median or mode of zero elements). Distinct from
	// ErrTypeInputMissing: the input existed but nothing survived to compute
	// over.
	ErrTypeEmptyDataset ErrorType = "EMPTY_DATASET"
	// ErrTypeStorage marks a failed artifact or report write.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeValidation marks an invalid argument or state.
	ErrTypeValidation ErrorType = "VALIDATION"
	// ErrTypeConfig marks invalid configuration.
	ErrTypeConfig ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Is reports whether err is (or wraps) an AppError of the given type.
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// TypeOf returns the ErrorType of err when it is (or wraps) an AppError.
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return "", false
	}
	return appErr.Type, true
}

// StageOf returns the pipeline stage recorded on err via
// WithContext("stage", ...), or "" when none was recorded.
func StageOf(err error) string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ""
	}
	if stage, ok := appErr.Context["stage"].(string); ok {
		return stage
	}
	return ""
}

// Helper functions for common error types

// NewInputMissingError creates an error for an absent or unreadable input file
func NewInputMissingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInputMissing, message, cause)
}

// NewSchemaError creates an error for an input file missing a required column
func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewEmptyDatasetError creates an error for a computation over zero elements
func NewEmptyDatasetError(message string) *AppError {
	return NewAppError(ErrTypeEmptyDataset, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
