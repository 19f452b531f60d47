package jobs

import "errors"

var (
	// ErrJobNotFound is returned when no job exists for the given id.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when an operation requires a live job
	// but the job is already DONE or FAILED.
	ErrJobTerminal = errors.New("job already in a terminal state")

	// ErrInvalidType is returned when a job type is not one of the
	// known pipeline stages.
	ErrInvalidType = errors.New("invalid job type")

	// ErrCancelled is returned by a stage executor that observed a
	// concurrent cancellation and stopped early. It is a clean outcome,
	// not a failure; the worker loop must not report it via MarkFailed.
	ErrCancelled = errors.New("job cancelled")
)

// CancelledMessage is persisted as the job error when an operator
// cancels a job.
const CancelledMessage = "cancelled"
