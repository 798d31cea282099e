package batch

import "errors"

var (
	// ErrInstanceNotFound is returned when an instance is not in the batch it
	// was looked up in. Callers treat it as a recoverable warning.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrAlreadyScheduled is returned when placing an instance that already
	// belongs to a batch
	ErrAlreadyScheduled = errors.New("instance already scheduled")

	// ErrForeignBatch is returned when a batch was not created by the registry
	ErrForeignBatch = errors.New("batch does not belong to this registry")

	// ErrSearchExhausted is returned when no batch with room exists within the
	// look-ahead window
	ErrSearchExhausted = errors.New("no eligible batch within look-ahead")

	// ErrInvalidLimit is returned for daily limits below one
	ErrInvalidLimit = errors.New("daily limit must be positive")

	// ErrUnknownMode is returned when no rules exist for an instance mode
	ErrUnknownMode = errors.New("no rules for mode")
)
