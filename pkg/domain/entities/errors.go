package entities

import "errors"

// Error taxonomy shared by every component of the engine. Callers match with
// errors.Is; the wrapping message carries the detail
var (
	// ErrNotFound is returned when a referenced product, location or
	// requisition does not exist
	ErrNotFound = errors.New("not found")

	// ErrMalformedReference is returned when a document code does not match
	// the PREFIX-YYMM-NNN format
	ErrMalformedReference = errors.New("malformed reference")

	// ErrInvariantViolation is returned when a mutation would break a
	// quantity invariant. The requisition is left unchanged
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrStageViolation is returned for out-of-order transitions and for
	// mutations of terminal requisitions
	ErrStageViolation = errors.New("stage violation")

	// ErrInsufficientData is returned when a collaborator could not be
	// reached. It is transient and should be retried by the caller
	ErrInsufficientData = errors.New("insufficient data")

	// ErrApproverMismatch is returned when an approval is recorded by a role
	// other than the one the workflow gate required
	ErrApproverMismatch = errors.New("approver role mismatch")

	// ErrConcurrentModification is returned when a requisition was saved by
	// someone else since it was loaded
	ErrConcurrentModification = errors.New("concurrent modification")
)
