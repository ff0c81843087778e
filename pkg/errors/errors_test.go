package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found":       {NewNotFoundError("x", nil), http.StatusNotFound},
		"validation":      {NewValidationError("x", nil), http.StatusBadRequest},
		"waitlist closed": {NewWaitlistClosedError("x"), http.StatusBadRequest},
		"unauthorized":    {NewUnauthorizedError("x", nil), http.StatusUnauthorized},
		"forbidden":       {NewForbiddenError("x", nil), http.StatusForbidden},
		"conflict":        {NewConflictError("x", nil), http.StatusConflict},
		"storage":         {NewStorageError("x", errors.New("boom")), http.StatusInternalServerError},
		"wrapped":         {fmt.Errorf("outer: %w", NewNotFoundError("x", nil)), http.StatusNotFound},
		"plain":           {errors.New("boom"), http.StatusInternalServerError},
		"nil":             {nil, http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_HidesCause(t *testing.T) {
	err := NewStorageError("unable to save", errors.New("pq: relation does not exist"))
	assert.Equal(t, "unable to save", GetHumanReadableMessage(err))
	assert.Equal(t, genericMessage, GetHumanReadableMessage(errors.New("pq: relation does not exist")))
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestGetErrorPayload(t *testing.T) {
	fields := []ValidationErrorResponse{{Field: "notes", Message: "too long"}}
	payload := GetErrorPayload(NewValidationError("invalid", fields))
	assert.Equal(t, ErrorTypeValidation, payload.Kind)
	assert.Equal(t, fields, payload.Fields)

	assert.Equal(t, ErrorPayload{Kind: ErrorTypeInternalServerError}, GetErrorPayload(errors.New("x")))
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(fmt.Errorf("wrap: %w", NewConflictError("dup", nil)), ErrorTypeConflict))
	assert.False(t, IsType(nil, ErrorTypeUnknown))
	assert.True(t, IsType(errors.New("x"), ErrorTypeUnknown))
}

type signup struct {
	FirstName string `json:"first_name" validate:"required,max=5"`
	Kind      string `json:"kind" validate:"oneof=puppy adult"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Internal  string `json:"-" validate:"required"`
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	v := validator.New()
	err := v.Struct(signup{FirstName: "Maximilian", Kind: "kitten", Email: "nope"})
	require.Error(t, err)

	got := FormatValidationErrors(err, &signup{})
	assert.ElementsMatch(t, []ValidationErrorResponse{
		{Field: "first_name", Message: "Must not exceed 5 characters"},
		{Field: "kind", Message: "Must be one of: puppy, adult"},
		{Field: "email", Message: "Invalid email format"},
		{Field: "Internal", Message: "This field is required"},
	}, got)
}

func TestFormatValidationErrors_TypeMismatch(t *testing.T) {
	var s signup
	err := json.Unmarshal([]byte(`{"first_name": 42}`), &s)
	require.Error(t, err)

	got := FormatValidationErrors(err, &s)
	require.Len(t, got, 1)
	assert.Equal(t, "first_name", got[0].Field)
	assert.Contains(t, got[0].Message, "Expected string")
}

func TestFormatValidationErrors_OtherErrors(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(nil, nil))
	assert.Nil(t, FormatValidationErrors(errors.New("invalid character"), nil))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyError(&pgconn.PgError{Code: "23503", Message: "duplicate key"}))
	assert.True(t, IsDuplicateKeyError(errors.New("UNIQUE constraint failed: admin_users.email")))
	assert.False(t, IsDuplicateKeyError(errors.New("no such table")))
	assert.False(t, IsDuplicateKeyError(nil))
}

func TestIsSerializationError(t *testing.T) {
	assert.True(t, IsSerializationError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsSerializationError(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsSerializationError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsSerializationError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsSerializationError(errors.New("disk full")))
	assert.False(t, IsSerializationError(nil))
}
