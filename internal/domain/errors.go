package domain

import "errors"

var (
	// ErrValidation marks caller input that fails domain rules.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an update rejected because of entity state.
	ErrConflict = errors.New("conflict")

	// ErrRunActive marks an attempt to start a bulk run while one is executing.
	ErrRunActive = errors.New("a bulk run is already executing")
)
