package session

import "errors"

var (
	// ErrNotFound is returned by Value for a missing key and by
	// FromContext callers when no session is attached.
	ErrNotFound = errors.New("session: not found")

	// ErrTypeMismatch is returned by Value when the stored value has
	// another type.
	ErrTypeMismatch = errors.New("session: type mismatch")

	// ErrDestroyed is returned when saving a destroyed session.
	ErrDestroyed = errors.New("session: destroyed")
)
