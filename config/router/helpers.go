package router

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kennelworks/kennel-api/internal/log"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
)

// GetLogger returns the request-scoped logger set by the router middleware.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

func OKResult(data any, message string) *ServiceResult {
	return ErrorResult(http.StatusOK, message, data)
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return ErrorResult(http.StatusCreated, resourceName+" created successfully", data)
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return ErrorResult(http.StatusTooManyRequests, "Too Many Requests", data)
}

func UnauthorizedResult(message string) *ServiceResult {
	return ErrorResult(http.StatusUnauthorized, message,
		apperrors.ErrorPayload{Kind: apperrors.ErrorTypeUnauthorized})
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message,
		apperrors.ErrorPayload{Kind: apperrors.ErrorTypeNotFound})
}

func InternalServerErrorResult(message string) *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, message,
		apperrors.ErrorPayload{Kind: apperrors.ErrorTypeInternalServerError})
}

// AppErrorResult maps an application error to its HTTP status, client-safe
// message and machine-readable kind.
func AppErrorResult(err error) *ServiceResult {
	return ErrorResult(
		apperrors.HTTPStatusCode(err),
		apperrors.GetHumanReadableMessage(err),
		apperrors.GetErrorPayload(err),
	)
}

// BindErrorResult reports a request body that failed JSON decoding or binding tags.
func BindErrorResult(err error, model any) *ServiceResult {
	fields := apperrors.FormatValidationErrors(err, model)
	if len(fields) > 0 {
		return AppErrorResult(apperrors.NewValidationError("Invalid request payload", fields))
	}

	return AppErrorResult(apperrors.NewInvalidRequestError("Invalid request body", err))
}

// ParseUUIDParam returns the canonical form of a UUID path parameter, or a
// 400 result when it does not parse.
func ParseUUIDParam(ctx *RequestContext, paramName string) (string, *ServiceResult) {
	raw := ctx.Param(paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		GetLogger(ctx).Info("Rejected malformed ID parameter", "param", paramName, "value", raw)
		return "", AppErrorResult(apperrors.NewInvalidRequestError("Invalid ID parameter", err))
	}
	return id.String(), nil
}
