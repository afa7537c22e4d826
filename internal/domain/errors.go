package domain

import "errors"

// Error kinds surfaced by every engine operation. The API layer maps these to
// HTTP statuses; callers distinguish a disallowed action (precondition) from
// a malformed one (validation).
var (
	// ErrValidation marks a malformed or missing required field. Rejected
	// before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing rate config, billing record, proof or QR
	// artifact.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a duplicate insert for an existing natural key.
	// Benign during generation, where it is reported as "skipped".
	ErrConflict = errors.New("conflict")

	// ErrPreconditionFailed marks an action whose target is in a state that
	// disallows it, e.g. reviewing an already-reviewed proof or deleting an
	// active QR artifact.
	ErrPreconditionFailed = errors.New("precondition failed")
)
