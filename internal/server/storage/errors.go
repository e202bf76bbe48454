package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that entity was not found in the system of record
	ErrEntityNotFound = errors.New("entity not found")

	// ErrVersionMismatch indicates that compare-and-set on entity version failed
	ErrVersionMismatch = errors.New("entity version mismatch")

	// ErrIdempotencyNotFound indicates that no result is stored for the idempotency key
	ErrIdempotencyNotFound = errors.New("idempotency record not found")

	// ErrIdempotencyKeyExists indicates that a result for the idempotency key is already stored
	ErrIdempotencyKeyExists = errors.New("idempotency key already exists")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict not found")
)
