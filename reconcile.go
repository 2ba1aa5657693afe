package outbox

import "context"

// reconcileVersions propagates server-assigned version stamps from a confirmed
// send onto still-queued mutations for the same record. Those mutations were
// built against the old stamps and would fail the server's optimistic
// concurrency check once drained.
func (e *Engine) reconcileVersions(ctx context.Context, s Storage, sent SentResult, head MutationEvent) error {
	// The confirmation must correspond to what was actually queued.
	if head.Operation != sent.Operation {
		return nil
	}

	headFields, err := decodeFields(head.Data)
	if err != nil {
		return err
	}

	timestamps := e.schema.TimestampFields(head.Model)
	incoming := stripFields(sent.Record, timestamps)
	outgoing := stripFields(headFields, timestamps)

	// A difference means a conflict handler rewrote the data upstream;
	// propagating stamps would mask the divergence.
	if !fieldsEqual(incoming, outgoing) {
		e.cfg.Logger.Debug("outbox version propagation skipped on divergence", "model", head.Model, "modelId", head.ModelID)

		return nil
	}

	modelID, err := identifierValue(e.schema, head.Model, sent.Record)
	if err != nil {
		return err
	}

	pending := Predicate{ModelID: modelID, NotID: e.inProgressID}
	outdated, err := s.Query(ctx, pending)
	if err != nil {
		return err
	}
	if len(outdated) == 0 {
		return nil
	}

	version, hasVersion := sent.Record[FieldVersion]
	lastChanged, hasLastChanged := sent.Record[FieldLastChangedAt]

	reconciled := make([]MutationEvent, 0, len(outdated))
	for _, event := range outdated {
		fields, err := decodeFields(event.Data)
		if err != nil {
			return err
		}
		if hasVersion {
			fields[FieldVersion] = version
		}
		if hasLastChanged {
			fields[FieldLastChangedAt] = lastChanged
		}
		data, err := encodeFields(fields)
		if err != nil {
			return err
		}
		event.Data = data
		reconciled = append(reconciled, event)
	}

	// Bulk delete-then-reinsert keeps the rewrite atomic within the
	// surrounding exclusive block.
	if err := s.Delete(ctx, pending); err != nil {
		return err
	}
	for _, event := range reconciled {
		if err := s.Save(ctx, event, e.cfg.Owner); err != nil {
			return err
		}
	}

	e.cfg.Logger.Debug("outbox propagated version stamps", "model", head.Model, "modelId", modelID, "count", len(reconciled))
	e.cfg.Metrics.AddReconciled(len(reconciled))

	return nil
}
