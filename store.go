package outbox

import "context"

// Predicate selects queued mutation events. Zero-value fields match
// everything.
type Predicate struct {
	// ID restricts matches to a single queue entry.
	ID string
	// ModelID restricts matches to events mutating one application record.
	ModelID string
	// NotID excludes a single queue entry, typically the in-progress one.
	NotID string
}

// Matches reports whether the event satisfies the predicate.
func (p Predicate) Matches(event MutationEvent) bool {
	if p.ID != "" && event.ID != p.ID {
		return false
	}
	if p.ModelID != "" && event.ModelID != p.ModelID {
		return false
	}
	if p.NotID != "" && event.ID == p.NotID {
		return false
	}

	return true
}

// OwnerToken tags writes issued by one subsystem so other users of a shared
// store can tell outbox-originated writes from user-originated ones.
type OwnerToken struct {
	name string
}

// NewOwnerToken creates a token with a diagnostic name.
func NewOwnerToken(name string) *OwnerToken {
	return &OwnerToken{name: name}
}

// String returns the token's diagnostic name.
func (t *OwnerToken) String() string {
	if t == nil {
		return ""
	}

	return t.name
}

// Storage is the record-store surface the engine operates on. Query results
// are always in insertion order, oldest first.
type Storage interface {
	// Query returns the queued events matching the predicate.
	Query(ctx context.Context, p Predicate) ([]MutationEvent, error)
	// QueryOne returns the oldest queued event, or nil when the queue is empty.
	QueryOne(ctx context.Context) (*MutationEvent, error)
	// Save upserts an event, tagged with the issuing subsystem's owner token.
	// Saving an id that is already queued replaces the entry in place, keeping
	// its insertion position.
	Save(ctx context.Context, event MutationEvent, owner *OwnerToken) error
	// Delete removes every event matching the predicate.
	Delete(ctx context.Context, p Predicate) error
	// PendingCount returns the number of queued events.
	PendingCount(ctx context.Context) (int, error)
}

// Store is a transactional record store. RunExclusive serializes the given
// function against every other mutating user of the store; a multi-step
// sequence inside it either runs to completion or surfaces the storage error
// unchanged, with rollback owned by the store's transaction guarantee.
type Store interface {
	Storage

	// RunExclusive runs fn with serialized, mutually exclusive access to
	// storage and propagates fn's error.
	RunExclusive(ctx context.Context, fn func(ctx context.Context, s Storage) error) error
}
