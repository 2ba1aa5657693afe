package outbox

import "context"

// SentResult is the record state echoed by the remote service after a
// successful send.
type SentResult struct {
	// Operation is the kind of write the service confirmed.
	Operation Operation
	// Record is the full field map returned by the service, including fresh
	// _version and _lastChangedAt stamps.
	Record FieldMap
}

// Sender delivers one mutation to the remote service. Implementations own the
// transport; the drain loop only sequences calls. A nil result with a nil
// error is valid and skips version reconciliation on dequeue.
type Sender interface {
	// Send delivers the mutation and returns the service's echoed record.
	Send(ctx context.Context, event MutationEvent) (*SentResult, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, event MutationEvent) (*SentResult, error)

// Send implements Sender.
func (fn SenderFunc) Send(ctx context.Context, event MutationEvent) (*SentResult, error) {
	return fn(ctx, event)
}
