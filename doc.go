// Package outbox maintains the pending-mutation queue of an offline-first
// data synchronization client. Local writes are recorded durably, coalesced
// against still-queued writes for the same record, and drained one at a time
// to a remote service.
//
// Typical flow:
//  1. The application records each local write as a MutationEvent via
//     Engine.Enqueue, which folds it into any queued write for the same record.
//  2. A drain loop calls Engine.Peek, sends the head to the remote service, and
//     on success calls Engine.Dequeue with the service's echoed record so fresh
//     version metadata propagates onto still-queued mutations for that record.
//  3. Storage is pluggable behind the Store interface; the memory and sqlite
//     packages provide implementations.
//
// The optional Drainer runs step 2 against an injected Sender.
package outbox
