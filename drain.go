package outbox

import (
	"context"
	"fmt"
	"time"
)

// FailureHandler is called when sending the queue head fails.
type FailureHandler func(ctx context.Context, event MutationEvent, err error)

// Drainer drains the engine one mutation at a time: peek, send, dequeue. The
// queue has a single logical writer, so the drainer never runs concurrent
// sends.
type Drainer struct {
	engine *Engine
	sender Sender
	cfg    DrainConfig

	pendingAt time.Time
}

// NewDrainer constructs a Drainer with defaults and optional settings.
func NewDrainer(engine *Engine, sender Sender, opts ...DrainOption) *Drainer {
	if engine == nil {
		panic("outbox: nil Engine")
	}
	if sender == nil {
		panic("outbox: nil Sender")
	}

	var cfg DrainConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Drainer{
		engine: engine,
		sender: sender,
		cfg:    cfg,
	}
}

// Run drains pending mutations until ctx is canceled. A failed send leaves the
// head queued and the loop waits one poll interval before trying again; any
// retry or backoff policy beyond that pacing belongs to the caller. Storage
// errors stop the loop.
func (d *Drainer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sent, err := d.ProcessOnce(ctx)
		if err != nil {
			return err
		}
		if !sent {
			d.maybeRecordPending(ctx)
			if err := d.sleep(ctx, d.cfg.PollInterval); err != nil {
				return err
			}
		}
	}
}

// ProcessOnce attempts to send the queue head once. It reports whether a
// mutation was sent and dequeued.
func (d *Drainer) ProcessOnce(ctx context.Context) (bool, error) {
	head, err := d.engine.Peek(ctx)
	if err != nil {
		return false, err
	}
	if head == nil {
		return false, nil
	}

	sendCtx := ctx
	cancel := func() {}
	if d.cfg.SendTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
	}
	result, err := d.sender.Send(sendCtx, *head)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if d.cfg.ErrorHandler != nil {
			d.cfg.ErrorHandler(ctx, *head, err)
		}
		d.engine.cfg.Logger.Warn("outbox send failed, mutation stays queued",
			"model", head.Model, "modelId", head.ModelID, "err", err)
		d.engine.cfg.Metrics.AddSendErrors(1)

		return false, nil
	}

	if _, err := d.engine.Dequeue(ctx, result); err != nil {
		return false, fmt.Errorf("outbox dequeue after send failed: %w", err)
	}

	return true, nil
}

func (d *Drainer) maybeRecordPending(ctx context.Context) {
	if d.cfg.PendingInterval <= 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	now := d.cfg.Clock.Now()
	if !d.pendingAt.IsZero() && now.Before(d.pendingAt.Add(d.cfg.PendingInterval)) {
		return
	}
	d.pendingAt = now

	count, err := d.engine.PendingCount(ctx)
	if err != nil {
		d.engine.cfg.Logger.Warn("outbox pending count failed", "err", err)

		return
	}

	d.engine.cfg.Metrics.SetPending(count)
}

func (d *Drainer) sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
