// Package errors defines the application error kinds shared by every domain
// and the mapping from those kinds to HTTP responses.
package errors

import (
	"errors"
	"fmt"
)

// Kinds reported to clients in the "kind" field of an error payload.
const (
	ErrorTypeStorageError        = "STORAGE_ERROR"
	ErrorTypeNotFound            = "NOT_FOUND"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeValidation          = "VALIDATION_ERROR"
	ErrorTypeWaitlistClosed      = "WAITLIST_CLOSED"
	ErrorTypeUnauthorized        = "UNAUTHORIZED"
	ErrorTypeForbidden           = "FORBIDDEN"
	ErrorTypeConflict            = "CONFLICT"
	ErrorTypeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrorTypeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrorTypeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
)

// AppError carries a kind, a client-safe message and the underlying cause.
// Err is logged but never rendered.
type AppError struct {
	Type    string
	Message string
	Err     error
	// Details is rendered to clients, e.g. per-field validation messages.
	Details any
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Type + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, err)
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewValidationError attaches fields as client-visible details when present.
func NewValidationError(message string, fields []ValidationErrorResponse) *AppError {
	e := NewAppError(ErrorTypeValidation, message, nil)
	if len(fields) > 0 {
		e.Details = fields
	}
	return e
}

func NewWaitlistClosedError(message string) *AppError {
	return NewAppError(ErrorTypeWaitlistClosed, message, nil)
}

func NewStorageError(message string, err error) *AppError {
	return NewAppError(ErrorTypeStorageError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, err)
}

func NewForbiddenError(message string, err error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

// GetErrorType returns the kind of the first AppError in err's chain.
func GetErrorType(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func IsType(err error, errType string) bool {
	return err != nil && GetErrorType(err) == errType
}
