package errors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func messageContains(err error, needles ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// IsDuplicateKeyError reports a unique constraint violation from Postgres or SQLite.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if code := pgCode(err); code != "" {
		return code == pgUniqueViolation
	}
	return messageContains(err, "unique constraint", "duplicate key", "sqlstate 23505")
}

// IsSerializationError matches the transient failures a retried transaction can recover from.
func IsSerializationError(err error) bool {
	if err == nil {
		return false
	}
	switch pgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	case "":
	default:
		return false
	}
	return messageContains(err,
		"sqlstate 40001",
		"sqlstate 40p01",
		"could not serialize access",
		"deadlock detected",
		"database is locked",
	)
}
