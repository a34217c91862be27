package wam

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the registries and archives. Callers match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrNotFound means a snapshot, backup, account or registry id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPath means a path is missing, is not a directory, or cannot
	// be used as an archive slot name.
	ErrInvalidPath = errors.New("invalid path")

	// ErrIOFailure means a copy, directory creation or removal failed.
	ErrIOFailure = errors.New("i/o failure")

	// ErrConfigCorrupt means a persisted JSON file could not be parsed.
	// Loaders recover from it by resetting to defaults; it is only logged.
	ErrConfigCorrupt = errors.New("config corrupt")

	// ErrAlreadyExists means a record with the same identity is present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyRegistered means the path is already in the path registry.
	ErrAlreadyRegistered = fmt.Errorf("%w: %w", ErrInvalidPath, ErrAlreadyExists)

	// ErrNoActiveDirectory means an operation needed the active configuration
	// directory and none is set.
	ErrNoActiveDirectory = fmt.Errorf("no active configuration directory: %w", ErrNotFound)
)

// ioFailure tags err as an I/O failure while keeping it unwrappable.
func ioFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIOFailure, err)
}
