package outbox

import "context"

// Engine maintains the pending-mutation queue. It owns no storage of its own;
// beyond its injected collaborators the only state is the id of the mutation
// currently being drained.
type Engine struct {
	store  Store
	schema SchemaRegistry
	cfg    EngineConfig

	// inProgressID marks the queue entry handed to the drain loop by Peek.
	// Process-local on purpose: after a restart nothing is mid-send.
	inProgressID string
}

// NewEngine constructs an Engine over the given store and schema registry.
func NewEngine(store Store, schema SchemaRegistry, opts ...EngineOption) *Engine {
	if store == nil {
		panic("outbox: nil Store")
	}
	if schema == nil {
		panic("outbox: nil SchemaRegistry")
	}

	var cfg EngineConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Engine{
		store:  store,
		schema: schema,
		cfg:    cfg,
	}
}

// Enqueue records a pending local write, coalescing it with queued writes for
// the same record. The entry handed to the drain loop by Peek is excluded from
// coalescing: it has already been read as a network request, and rewriting it
// would desynchronize what the client thinks it sent from what the server
// receives.
func (e *Engine) Enqueue(ctx context.Context, event MutationEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	e.cfg.Metrics.AddEnqueued(1)

	return e.store.RunExclusive(ctx, func(ctx context.Context, s Storage) error {
		pending := Predicate{ModelID: event.ModelID, NotID: e.inProgressID}

		queued, err := s.Query(ctx, pending)
		if err != nil {
			return err
		}
		if len(queued) == 0 {
			return s.Save(ctx, event, e.cfg.Owner)
		}
		head := queued[0]

		if head.Operation == OpCreate {
			return e.coalesceIntoCreate(ctx, s, head, event, pending)
		}

		return e.coalesceIntoTail(ctx, s, head, event, pending)
	})
}

// coalesceIntoCreate folds a newer local write into a queued CREATE that has
// never reached the server.
func (e *Engine) coalesceIntoCreate(ctx context.Context, s Storage, head, event MutationEvent, pending Predicate) error {
	if event.Operation == OpDelete {
		// The local create is annihilated before the server ever sees it.
		e.cfg.Logger.Debug("outbox create annihilated by delete", "model", event.Model, "modelId", event.ModelID)
		e.cfg.Metrics.AddCoalesced(1)

		return s.Delete(ctx, pending)
	}

	data, err := mergeData(head.Data, event.Data)
	if err != nil {
		return err
	}

	// The head keeps its identity and stays a CREATE. The incoming write
	// condition is dropped: a record the server has never seen cannot be
	// subject to a server-side condition.
	merged := head
	merged.Data = data
	merged.Condition = nil

	e.cfg.Logger.Debug("outbox coalesced into queued create", "model", event.Model, "modelId", event.ModelID)
	e.cfg.Metrics.AddCoalesced(1)

	return s.Save(ctx, merged, e.cfg.Owner)
}

// coalesceIntoTail handles an incoming write when the queued head is an UPDATE
// or DELETE.
func (e *Engine) coalesceIntoTail(ctx context.Context, s Storage, head, event MutationEvent, pending Predicate) error {
	unconditional, err := conditionEmpty(event.Condition)
	if err != nil {
		return err
	}

	tail := event
	if unconditional {
		data, err := mergeData(head.Data, event.Data)
		if err != nil {
			return err
		}
		tail.Data = data

		// Replace the whole run of queued writes for this record with the
		// single merged one at the tail.
		if err := s.Delete(ctx, pending); err != nil {
			return err
		}
		e.cfg.Metrics.AddCoalesced(1)
	} else {
		// A conditional write never folds into the queued head: merging could
		// silently drop a condition the caller needs the server to evaluate.
		// Both records stay queued and drain separately.
		e.cfg.Logger.Debug("outbox conditional write queued separately", "model", event.Model, "modelId", event.ModelID)
	}

	return s.Save(ctx, tail, e.cfg.Owner)
}

// Peek returns the oldest queued mutation, or nil when the queue is empty. As
// a side effect it marks the returned entry as in progress, shielding it from
// coalescing until Dequeue clears the marker.
func (e *Engine) Peek(ctx context.Context) (*MutationEvent, error) {
	head, err := e.store.QueryOne(ctx)
	if err != nil {
		return nil, err
	}
	if head == nil {
		e.inProgressID = ""

		return nil, nil
	}
	e.inProgressID = head.ID

	return head, nil
}

// Dequeue removes the queue head after a successful send and returns it. When
// sent is non-nil it carries the record state echoed by the remote service,
// and fresh version metadata is propagated onto other queued mutations for the
// same record before the head is removed. Calling Dequeue on an empty queue
// returns ErrNothingPending.
func (e *Engine) Dequeue(ctx context.Context, sent *SentResult) (*MutationEvent, error) {
	var head *MutationEvent
	err := e.store.RunExclusive(ctx, func(ctx context.Context, s Storage) error {
		queued, err := s.QueryOne(ctx)
		if err != nil {
			return err
		}
		if queued == nil {
			return ErrNothingPending
		}
		head = queued
		e.inProgressID = queued.ID

		if sent != nil {
			if err := e.reconcileVersions(ctx, s, *sent, *queued); err != nil {
				return err
			}
		}

		if err := s.Delete(ctx, Predicate{ID: queued.ID}); err != nil {
			return err
		}
		e.inProgressID = ""

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cfg.Logger.Debug("outbox dequeued", "model", head.Model, "modelId", head.ModelID, "operation", string(head.Operation))
	e.cfg.Metrics.AddDequeued(1)

	return head, nil
}

// GetForModel returns every queued mutation for the record described by the
// given field map, resolved through the model's identifier definition.
func (e *Engine) GetForModel(ctx context.Context, model string, record FieldMap) ([]MutationEvent, error) {
	modelID, err := identifierValue(e.schema, model, record)
	if err != nil {
		return nil, err
	}

	return e.store.Query(ctx, Predicate{ModelID: modelID})
}

// GetModelIDs returns the distinct model ids with at least one queued
// mutation, i.e. the records with pending local changes.
func (e *Engine) GetModelIDs(ctx context.Context) (map[string]struct{}, error) {
	events, err := e.store.Query(ctx, Predicate{})
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(events))
	for _, event := range events {
		ids[event.ModelID] = struct{}{}
	}

	return ids, nil
}

// PendingCount returns the number of queued mutations.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.store.PendingCount(ctx)
}
