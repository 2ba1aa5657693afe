package outbox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Operation is the kind of write carried by a MutationEvent.
type Operation string

// Supported mutation kinds.
const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether the operation is one of the supported kinds.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// MutationEvent is one pending local write awaiting delivery to the remote
// service.
type MutationEvent struct {
	// ID identifies this queue entry, not the mutated record.
	ID string
	// ModelID identifies the application record being mutated.
	ModelID string
	// Model names the application model the record belongs to.
	Model string
	// Operation is the kind of write.
	Operation Operation
	// Data is a JSON field map snapshot of the record at enqueue time,
	// including any previously known _version, _lastChangedAt and _deleted
	// metadata.
	Data json.RawMessage
	// Condition is an optional JSON predicate for the server to evaluate on
	// UPDATE and DELETE writes. Empty means unconditional.
	Condition json.RawMessage
}

// EventOption configures a MutationEvent built by NewMutationEvent.
type EventOption func(*MutationEvent)

// WithID sets the queue entry id. If not provided, a UUID v7 is generated so
// ids sort by creation time.
func WithID(id string) EventOption {
	return func(e *MutationEvent) {
		e.ID = id
	}
}

// WithCondition attaches a serialized write condition.
func WithCondition(condition json.RawMessage) EventOption {
	return func(e *MutationEvent) {
		e.Condition = condition
	}
}

// NewMutationEvent builds a MutationEvent with a generated id.
func NewMutationEvent(model, modelID string, op Operation, data json.RawMessage, opts ...EventOption) MutationEvent {
	e := MutationEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ModelID:   modelID,
		Model:     model,
		Operation: op,
		Data:      data,
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// Validate checks required fields and JSON validity of data and condition.
func (e MutationEvent) Validate() error {
	if e.Model == "" {
		return ErrModelRequired
	}
	if e.ModelID == "" {
		return ErrModelIDRequired
	}
	if !e.Operation.Valid() {
		return ErrInvalidOperation
	}
	if len(e.Data) == 0 {
		return ErrDataRequired
	}
	if !json.Valid(e.Data) {
		return ErrInvalidData
	}
	if len(e.Condition) > 0 && !json.Valid(e.Condition) {
		return ErrInvalidCondition
	}

	return nil
}
