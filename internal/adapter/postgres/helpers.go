package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/playforge/levelboard/internal/domain"
)

// SQLSTATE codes translated into the domain error taxonomy.
const (
	codeUniqueViolation = "23505"
	codeInvalidTextRep  = "22P02"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// nullIfEmpty returns nil for empty strings (for nullable UUID columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// mapError wraps err with a formatted message and translates driver errors
// into the domain taxonomy: no rows becomes ErrNotFound, unique violations
// become ErrConflict, and malformed uuid text becomes ErrValidation. The
// HTTP layer only has to dispatch on the domain sentinels.
func mapError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case errors.As(err, &pgErr) && pgErr.Code == codeInvalidTextRep:
		return fmt.Errorf("%s: %w: malformed identifier", msg, domain.ErrValidation)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne verifies that an Exec affected exactly one row. A zero row
// count with a nil error maps to ErrNotFound.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	if err != nil {
		return mapError(err, format, args...)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", domain.ErrNotFound)
	}
	return nil
}
