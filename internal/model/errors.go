package model

import "errors"

// Common errors used across the application
var (
	// ErrNotFound is returned when a referenced identity, room, module or
	// lesson does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned on uniqueness violations: duplicate usernames,
	// duplicate display names within a room, duplicate lessons within a module
	ErrConflict = errors.New("record already exists")

	// ErrUnauthorized is returned when a caller's credential does not match
	// the authenticated subject it acts on, or when an anonymous subject is
	// referenced without any room context
	ErrUnauthorized = errors.New("unauthorised")

	// ErrContentionExceeded is returned when the module upsert retry budget
	// is exhausted under sustained storage contention
	ErrContentionExceeded = errors.New("storage contention exceeded")

	// ErrInvalidConfig is returned when a config payload is not valid JSON
	ErrInvalidConfig = errors.New("invalid config payload")
)
