package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrKeyNotFound is returned when a snapshot lookup references a key
	// that is not present. Keys are stable across refreshes, so this is
	// a caller contract violation rather than a transient condition.
	ErrKeyNotFound = errors.New("entity: key not found")
)
