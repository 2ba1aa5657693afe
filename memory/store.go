// Package memory provides an in-memory outbox.Store for tests and embedders
// that do not need durability.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/offlinekit/outbox"
)

type row struct {
	seq     uint64
	event   outbox.MutationEvent
	owner   string
	savedAt time.Time
}

// Store is an in-memory outbox.Store. One mutex serializes all mutating
// access and doubles as the exclusive-execution primitive.
type Store struct {
	mu    sync.Mutex
	rows  []row
	seq   uint64
	clock outbox.Clock
}

var _ outbox.Store = (*Store)(nil)

// Option configures the in-memory store.
type Option func(*Store)

// WithClock sets the time source used for save timestamps.
func WithClock(clock outbox.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{clock: outbox.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunExclusive implements outbox.Store. The callback receives a view that
// operates on storage without re-locking; there is no rollback, matching the
// run-to-completion contract of the exclusive block.
func (s *Store) RunExclusive(ctx context.Context, fn func(ctx context.Context, st outbox.Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(ctx, view{s})
}

// Query implements outbox.Storage.
func (s *Store) Query(ctx context.Context, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryLocked(ctx, p)
}

// QueryOne implements outbox.Storage.
func (s *Store) QueryOne(ctx context.Context) (*outbox.MutationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryOneLocked(ctx)
}

// Save implements outbox.Storage.
func (s *Store) Save(ctx context.Context, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx, event, owner)
}

// Delete implements outbox.Storage.
func (s *Store) Delete(ctx context.Context, p outbox.Predicate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(ctx, p)
}

// PendingCount implements outbox.Storage.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rows), nil
}

func (s *Store) queryLocked(ctx context.Context, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []outbox.MutationEvent
	for _, r := range s.rows {
		if p.Matches(r.event) {
			events = append(events, r.event)
		}
	}

	return events, nil
}

func (s *Store) queryOneLocked(ctx context.Context) (*outbox.MutationEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.rows) == 0 {
		return nil, nil
	}

	head := s.rows[0].event

	return &head, nil
}

func (s *Store) saveLocked(ctx context.Context, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now()
	for i := range s.rows {
		if s.rows[i].event.ID == event.ID {
			// Upsert keeps the entry's insertion position.
			s.rows[i].event = event
			s.rows[i].owner = owner.String()
			s.rows[i].savedAt = now

			return nil
		}
	}

	s.seq++
	s.rows = append(s.rows, row{
		seq:     s.seq,
		event:   event,
		owner:   owner.String(),
		savedAt: now,
	})

	return nil
}

func (s *Store) deleteLocked(ctx context.Context, p outbox.Predicate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kept := s.rows[:0]
	for _, r := range s.rows {
		if !p.Matches(r.event) {
			kept = append(kept, r)
		}
	}
	s.rows = kept

	return nil
}

// view exposes unlocked storage access inside RunExclusive.
type view struct {
	s *Store
}

func (v view) Query(ctx context.Context, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	return v.s.queryLocked(ctx, p)
}

func (v view) QueryOne(ctx context.Context) (*outbox.MutationEvent, error) {
	return v.s.queryOneLocked(ctx)
}

func (v view) Save(ctx context.Context, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	return v.s.saveLocked(ctx, event, owner)
}

func (v view) Delete(ctx context.Context, p outbox.Predicate) error {
	return v.s.deleteLocked(ctx, p)
}

func (v view) PendingCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return len(v.s.rows), nil
}
