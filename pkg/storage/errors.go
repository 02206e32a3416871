package storage

import "errors"

var (
	ErrNotFound        = errors.New("storage: entry not found")
	ErrEmptyKey        = errors.New("storage: empty key")
	ErrClosed          = errors.New("storage: closed")
	ErrMarshal         = errors.New("storage: failed to marshal value")
	ErrUnmarshal       = errors.New("storage: failed to unmarshal value")
	ErrUnknownDriver   = errors.New("storage: unknown driver")
	ErrHealthcheck     = errors.New("storage: healthcheck failed")
	ErrInvalidSchedule = errors.New("storage: invalid sweep schedule")
)
