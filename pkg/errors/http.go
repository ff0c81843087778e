package errors

import (
	"errors"
	"net/http"
)

const genericMessage = "An unexpected error occurred"

var statusByKind = map[string]int{
	ErrorTypeNotFound:          http.StatusNotFound,
	ErrorTypeInvalidRequest:    http.StatusBadRequest,
	ErrorTypeValidation:        http.StatusBadRequest,
	ErrorTypeWaitlistClosed:    http.StatusBadRequest,
	ErrorTypeConflict:          http.StatusConflict,
	ErrorTypeUnauthorized:      http.StatusUnauthorized,
	ErrorTypeForbidden:         http.StatusForbidden,
	ErrorTypeRateLimitExceeded: http.StatusTooManyRequests,
	ErrorTypeRequestTimeout:    http.StatusRequestTimeout,
}

// HTTPStatusCode maps err's kind to a response status. Storage, internal and
// unclassified errors all become 500.
func HTTPStatusCode(err error) int {
	if code, ok := statusByKind[GetErrorType(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message, or a generic text for
// anything else so driver errors never reach clients.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return genericMessage
}

// ErrorPayload is the machine-readable part of an error response.
type ErrorPayload struct {
	Kind   string `json:"kind"`
	Fields any    `json:"fields,omitempty"`
}

func GetErrorPayload(err error) ErrorPayload {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorPayload{Kind: appErr.Type, Fields: appErr.Details}
	}
	return ErrorPayload{Kind: ErrorTypeInternalServerError}
}
