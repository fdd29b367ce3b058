package db

import (
	"errors"
	"strings"

	legacypgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the violated constraint must match it.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchesPGCode(err, pgUniqueViolation, constraintName, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error, constraintName string) bool {
	return matchesPGCode(err, pgForeignKeyViolation, constraintName, "violates foreign key constraint", "FOREIGN KEY constraint failed")
}

func matchesPGCode(err error, code, constraintName string, messages ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == code && constraintMatches(pgxErr.ConstraintName, constraintName)
	}
	var legacyErr *legacypgconn.PgError
	if errors.As(err, &legacyErr) {
		return legacyErr.Code == code && constraintMatches(legacyErr.ConstraintName, constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code && constraintMatches(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	for _, candidate := range messages {
		if strings.Contains(msg, candidate) {
			return true
		}
	}
	return false
}

func constraintMatches(actual, expected string) bool {
	return expected == "" || actual == expected
}
