package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// tagMessages maps validator tags to client-facing text. %s receives the tag
// parameter when the message uses one.
var tagMessages = map[string]string{
	"required":        "This field is required",
	"email":           "Invalid email format",
	"us_phone":        "Phone number must match (XXX) XXX-XXXX",
	"waitlist_status": "Status must be one of waiting, contacted, completed",
	"min":             "Must be at least %s characters",
	"max":             "Must not exceed %s characters",
	"len":             "Must be exactly %s characters",
	"oneof":           "Must be one of: %s",
	"uuid":            "Must be a valid UUID",
}

func messageFor(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if !strings.Contains(msg, "%s") {
		return msg
	}
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.ReplaceAll(param, " ", ", ")
	}
	return fmt.Sprintf(msg, param)
}

// jsonName resolves a Go field name to its json tag on model's struct type.
func jsonName(model reflect.Type, field string) string {
	if model == nil {
		return field
	}
	f, ok := model.FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field
	}
	return name
}

func structType(model interface{}) reflect.Type {
	if model == nil {
		return nil
	}
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// FormatValidationErrors turns type mismatches and validation failures into
// per-field messages keyed by the json names of model. Any other error,
// including malformed JSON, yields nil.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	t := structType(model)
	out := make([]ValidationErrorResponse, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationErrorResponse{
			Field:   jsonName(t, fe.StructField()),
			Message: messageFor(fe),
		})
	}
	return out
}
