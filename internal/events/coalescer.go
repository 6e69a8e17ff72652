package events

import (
	"context"
	"sync/atomic"
)

// Coalescer implements spec.md §4.3's Schedule Dequeue Event algorithm:
// any number of Notify calls within one processing turn collapse into a
// single dispatched event. Run must be driven by exactly one goroutine
// per engine (its own event-processing loop); Notify is safe to call from
// any goroutine.
type Coalescer struct {
	scheduled atomic.Bool
	trigger   chan struct{}
}

// NewCoalescer returns a ready-to-use Coalescer.
func NewCoalescer() *Coalescer {
	return &Coalescer{trigger: make(chan struct{}, 1)}
}

// Notify marks a dequeue event as needed. If one is already pending it is
// a no-op, which is exactly the coalescing behavior spec.md requires.
func (c *Coalescer) Notify() {
	if c.scheduled.CompareAndSwap(false, true) {
		select {
		case c.trigger <- struct{}{}:
		default:
		}
	}
}

// Run drains pending notifications and calls dispatch once per
// notification batch until ctx is cancelled. Call this from the engine's
// own background goroutine; once ctx is cancelled (on close) no further
// dispatch calls occur, satisfying "no dequeue event fires after close".
func (c *Coalescer) Run(ctx context.Context, dispatch func()) {
	for {
		select {
		case <-c.trigger:
			c.scheduled.Store(false)
			dispatch()
		case <-ctx.Done():
			return
		}
	}
}
