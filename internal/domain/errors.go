package domain

import "errors"

var (
	// ErrRecordNotFound is returned when a record to update or delete does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrMalformedInput is returned when an input file is missing required columns or cannot be parsed
	ErrMalformedInput = errors.New("malformed input")

	// ErrIncompleteSnapshot is returned when a paginated read could not be completed.
	// A partial snapshot must never be used to decide that a record is absent.
	ErrIncompleteSnapshot = errors.New("incomplete snapshot")

	// ErrPaginationLoop is returned when a collection hands back a continuation token it already returned
	ErrPaginationLoop = errors.New("pagination loop detected")

	// ErrDependencyFailed is recorded for an operation whose parent operation did not apply
	ErrDependencyFailed = errors.New("dependency not applied")

	// ErrPlanDigestMismatch is returned when the computed plan differs from the expected digest
	ErrPlanDigestMismatch = errors.New("plan digest mismatch")

	// ErrUnknownBackend is returned for an unsupported storage backend name
	ErrUnknownBackend = errors.New("unknown backend")
)
