package storage

import "errors"

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")

	// ErrNotFound is returned when an update targets an unknown broadcast id.
	ErrNotFound = errors.New("storage: broadcast not found")
)
