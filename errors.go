package bounce

import "errors"

var (
	// ErrCapacityExceeded is returned when adding a body, queuing a broad phase
	// pair or creating a contact constraint would exceed the limits fixed at
	// Configure time. The operation has no partial effect.
	ErrCapacityExceeded = errors.New("bounce: capacity exceeded")

	// ErrInvalidHandle is returned for operations on a removed, destroyed or
	// unknown body handle. This is always a caller bug and is never silently
	// ignored, so double-free style mistakes surface early.
	ErrInvalidHandle = errors.New("bounce: invalid body handle")

	// ErrInvalidOrdering is returned when an operation is called outside the
	// Unconfigured -> Configured -> Running -> ShutDown sequence, or after the
	// owning session has been closed.
	ErrInvalidOrdering = errors.New("bounce: operation outside lifecycle order")

	// ErrAllocationExhausted is returned when the per-step scratch arena runs
	// out of capacity. The arena has no grow policy; the step cannot recover.
	ErrAllocationExhausted = errors.New("bounce: temp allocator exhausted")
)
