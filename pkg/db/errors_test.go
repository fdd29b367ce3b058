package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx code", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_email"}, constraint: "ux_users_email", want: true},
		{name: "pgx other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_users_phone"}, constraint: "ux_users_email", want: false},
		{name: "pq wrapped", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: users.email"), want: true},
		{name: "unrelated", err: errors.New("connection reset"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("expected pgx foreign key violation")
	}
	if !IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed"), "") {
		t.Fatal("expected sqlite foreign key violation")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Fatal("unique violation is not a foreign key violation")
	}
}
