package errors

import (
	"fmt"
)

// GraphError is the structured error type for repograph.
// It provides rich context for error handling, logging, and API responses.
type GraphError struct {
	// Code is the unique error code (e.g., "ERR_401_INPUT_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with GraphError.
func (e *GraphError) Is(target error) bool {
	if t, ok := target.(*GraphError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *GraphError) WithDetail(key, value string) *GraphError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *GraphError) WithSuggestion(suggestion string) *GraphError {
	e.Suggestion = suggestion
	return e
}

// New creates a new GraphError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *GraphError {
	return &GraphError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a GraphError from an existing error.
// The error's message becomes the GraphError message.
func Wrap(code string, err error) *GraphError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GraphError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InputError creates a request validation error.
func InputError(message string) *GraphError {
	return New(ErrCodeInputInvalid, message, nil)
}

// EmbedError creates an embedding-service error.
// Embedding errors are retryable.
func EmbedError(message string, cause error) *GraphError {
	return New(ErrCodeEmbedFailure, message, cause)
}

// StoreError creates a persistence-layer error.
func StoreError(message string, cause error) *GraphError {
	return New(ErrCodeStoreFailure, message, cause)
}

// MigrationError creates a fatal schema migration error.
func MigrationError(message string, cause error) *GraphError {
	return New(ErrCodeMigrationFailure, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *GraphError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a GraphError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*GraphError); ok {
		return ge.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*GraphError); ok {
		return ge.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a GraphError.
// Returns empty string if not a GraphError.
func GetCode(err error) string {
	if ge, ok := err.(*GraphError); ok {
		return ge.Code
	}
	return ""
}

// GetCategory extracts the category from a GraphError.
// Returns empty string if not a GraphError.
func GetCategory(err error) Category {
	if ge, ok := err.(*GraphError); ok {
		return ge.Category
	}
	return ""
}
