package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrAuthenticationRequired indicates no sender identity was present at write time
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrValidation indicates rejected input (attachment type/size, missing form field)
	ErrValidation = errors.New("validation failed")

	// ErrBackendUnavailable indicates a failure surfaced from the storage collaborator
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrForbidden indicates the caller may not act on the resource
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition indicates a status change that the message lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeValidation             = "VALIDATION_ERROR"
	CodeBackendUnavailable     = "BACKEND_UNAVAILABLE"
	CodeForbidden              = "FORBIDDEN"
	CodeInternalError          = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// ValidationError names the field and the exact constraint that was violated.
// It matches ErrValidation through errors.Is.
type ValidationError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap returns ErrValidation so callers can test with errors.Is
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field violating constraint
func NewValidationError(field, constraint, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:      field,
		Constraint: constraint,
		Message:    fmt.Sprintf(format, args...),
	}
}

// Backend wraps a storage error so it matches ErrBackendUnavailable while keeping the cause.
// Not-found errors pass through untouched.
func Backend(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMessageNotFound)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidTransition)
}

// IsAuthenticationRequired checks if the error is caused by a missing identity
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// IsBackendUnavailable checks if the error came from the storage collaborator
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsAuthenticationRequired(err):
		return CodeAuthenticationRequired
	case IsValidation(err):
		return CodeValidation
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case IsBackendUnavailable(err):
		return CodeBackendUnavailable
	default:
		return CodeInternalError
	}
}

// GetValidationError extracts a ValidationError from an error chain if present
func GetValidationError(err error) *ValidationError {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}
