// Package domain holds the sentinel errors shared by every service. The HTTP
// adapter maps them onto status codes: ErrNotFound becomes 404, ErrConflict
// 409, and ErrValidation 400.
package domain

import "errors"

var (
	// ErrNotFound marks lookups for batches, levels, or runs that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks optimistic-locking failures on versioned rows.
	ErrConflict = errors.New("conflict: resource was modified by another request")

	// ErrValidation marks request payloads that failed validation.
	ErrValidation = errors.New("validation failed")
)
