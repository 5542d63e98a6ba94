package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "payment_events_pkey"}

	if !IsUniqueViolation(dup, "") {
		t.Fatal("expected unique violation to match without a constraint filter")
	}
	if !IsUniqueViolation(dup, "payment_events_pkey") {
		t.Fatal("expected unique violation to match its constraint")
	}
	if IsUniqueViolation(dup, "some_other_constraint") {
		t.Fatal("expected mismatch for a different constraint")
	}
}

func TestIsUniqueViolationSeesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create row: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected wrapped unique violation to match")
	}
}

func TestIsUniqueViolationRejectsOtherErrors(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not match")
	}
	if IsUniqueViolation(errors.New("duplicate key value"), "") {
		t.Fatal("plain errors must not match on message text")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violations must not match")
	}
}
