package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no session has been saved (not logged in)
	ErrSessionNotFound = errors.New("session not found")

	// ErrMutationNotFound indicates that queued mutation was not found
	ErrMutationNotFound = errors.New("queued mutation not found")

	// ErrEntityNotFound indicates that entity is absent from the local snapshot
	ErrEntityNotFound = errors.New("entity not found in snapshot")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
