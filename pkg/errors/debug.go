package errors

import (
	"errors"
	"fmt"

	legacypgconn "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error: never sent to clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PGFields
}

// PGFields are the server diagnostics of a Postgres error, whichever driver
// raised it.
type PGFields struct {
	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), PGFields: postgresFields(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// postgresFields checks pgx v5 first since gorm's postgres driver uses it;
// goose migrations surface lib/pq errors.
func postgresFields(err error) PGFields {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGFields{pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message}
	}
	var legacyErr *legacypgconn.PgError
	if errors.As(err, &legacyErr) {
		return PGFields{legacyErr.Code, legacyErr.ConstraintName, legacyErr.TableName, legacyErr.ColumnName, legacyErr.Detail, legacyErr.Message}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGFields{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}
	}
	return PGFields{}
}
