package outbox

// Metrics captures outbox telemetry.
type Metrics interface {
	// AddEnqueued increments the count of accepted local writes.
	AddEnqueued(count int)
	// AddCoalesced increments the count of coalescing merges and annihilations.
	AddCoalesced(count int)
	// AddDequeued increments the count of confirmed, removed mutations.
	AddDequeued(count int)
	// AddReconciled increments the count of queued mutations restamped with
	// server version metadata.
	AddReconciled(count int)
	// AddSendErrors increments the count of failed send attempts.
	AddSendErrors(count int)
	// SetPending updates the current queued mutation count.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// AddEnqueued implements Metrics.
func (NopMetrics) AddEnqueued(int) {}

// AddCoalesced implements Metrics.
func (NopMetrics) AddCoalesced(int) {}

// AddDequeued implements Metrics.
func (NopMetrics) AddDequeued(int) {}

// AddReconciled implements Metrics.
func (NopMetrics) AddReconciled(int) {}

// AddSendErrors implements Metrics.
func (NopMetrics) AddSendErrors(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}
