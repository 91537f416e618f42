package omnia

import "errors"

var (
	// ErrAcquisition is returned when the factory cannot produce a
	// session (pool exhausted, auth failure, unreachable server).
	ErrAcquisition = errors.New("omnia: session acquisition failed")

	// ErrInvalidState is returned for operations on a scope that is not
	// open, or that still has open child savepoints.
	ErrInvalidState = errors.New("omnia: invalid scope state")

	// ErrCommit is returned when the engine rejects a commit. The scope
	// is rolled back as a side effect; nothing in it is durable.
	ErrCommit = errors.New("omnia: commit failed")
)
