// Package common defines shared constants and sentinel errors used across
// client and server layers of tailorkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an update carries a base version
	// that no longer matches the stored record.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidReference is returned when an order or payment points to a
	// parent record the owner does not have.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrHasDependents is returned when deleting a record that other records
	// still reference.
	ErrHasDependents = errors.New("record has dependent records")

	// Validation errors.
	ErrValidation      = errors.New("validation error")
	ErrInvalidRecord   = errors.New("invalid record state")
	ErrUnknownEntity   = errors.New("unknown entity type")
	ErrConflictPending = errors.New("record has an unresolved conflict")

	// Auth errors (missing, invalid or malformed token).
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)
