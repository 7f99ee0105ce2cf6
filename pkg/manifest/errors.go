package manifest

import "errors"

var (
	// ErrRunNotFound is returned when the requested run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunExists is returned when saving a run whose ID is already recorded.
	ErrRunExists = errors.New("run already exists")

	// ErrInvalidRunID is returned when a run ID is not a UUID.
	ErrInvalidRunID = errors.New("invalid run id")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")
)
