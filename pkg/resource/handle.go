package resource

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// handle is the shared-payload / owned-closed-flag pair every MediaResource
// is built from (spec.md §9 design note). Each MediaResource embeds one.
type handle struct {
	id     uuid.UUID
	p      *payload
	closed atomic.Bool
}

func newHandleOwning(p *payload) *handle {
	return &handle{id: uuid.New(), p: p}
}

// ID returns a stable identifier used only for log correlation; it plays
// no role in equality or the reference-counting contract.
func (h *handle) ID() uuid.UUID {
	return h.id
}

func (h *handle) Closed() bool {
	return h.closed.Load()
}

// closeOnce releases the shared payload exactly once, returning false if
// this handle was already closed.
func (h *handle) closeOnce() bool {
	if h.closed.CompareAndSwap(false, true) {
		h.p.release()
		return true
	}
	return false
}

// cloneHandle retains the shared payload for a new, independently
// closeable handle. Returns nil if this handle is already closed.
func (h *handle) cloneHandle() *handle {
	if h.closed.Load() {
		return nil
	}
	return newHandleOwning(h.p.retain())
}
