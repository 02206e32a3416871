package health

import "errors"

var (
	// ErrCheckFailed is returned by Report.Err when one or more checks failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a check that exceeded the run timeout.
	ErrCheckTimeout = errors.New("health: check timeout")
)
