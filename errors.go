package outbox

import "errors"

var (
	// ErrModelRequired is returned when MutationEvent.Model is empty.
	ErrModelRequired = errors.New("outbox model name is required")
	// ErrModelIDRequired is returned when MutationEvent.ModelID is empty.
	ErrModelIDRequired = errors.New("outbox model id is required")
	// ErrInvalidOperation is returned when the operation is not create, update or delete.
	ErrInvalidOperation = errors.New("outbox operation is invalid")
	// ErrDataRequired is returned when MutationEvent.Data is empty.
	ErrDataRequired = errors.New("outbox mutation data is required")
	// ErrInvalidData is returned when MutationEvent.Data is not valid JSON.
	ErrInvalidData = errors.New("outbox mutation data must be valid JSON")
	// ErrInvalidCondition is returned when MutationEvent.Condition is not valid JSON.
	ErrInvalidCondition = errors.New("outbox mutation condition must be valid JSON")
	// ErrMalformedData indicates that a stored mutation's data or condition
	// could not be parsed. This is a data-integrity fault; the record is never
	// silently skipped.
	ErrMalformedData = errors.New("outbox stored mutation is malformed")
	// ErrNothingPending is returned by Dequeue when the queue has no head.
	// Dequeue must only be called after a successful Peek/send cycle.
	ErrNothingPending = errors.New("outbox has no pending mutation to dequeue")
)
