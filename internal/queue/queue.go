// Package queue implements the ControlMessageQueue of spec.md §4.1: a
// strict single-producer FIFO of async work items, pumped one at a time
// by a single background goroutine, so every state mutation a work item
// makes is race-free by construction. This generalizes the teacher's
// internal/daemon/transcode.go inputCh/runInputWriter channel-pump from
// raw bytes to arbitrary typed work.
package queue

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Work is one queued unit of async work. It may block on ctx cancellation
// but otherwise is expected to run to completion before the next item starts.
type Work func(ctx context.Context) error

// ErrorHandler is invoked, on the pump goroutine, for any error a Work
// item returns (synchronously or by panicking — panics are recovered and
// reported the same way so the pump never dies mid-drain).
type ErrorHandler func(err error)

type item struct {
	work Work
	done chan struct{} // closed once this item finishes, for Flush barriers
}

// Queue is a FIFO of Work items drained by one pump goroutine.
type Queue struct {
	mu      sync.Mutex
	items   []*item
	running bool
	signal  chan struct{}

	onError ErrorHandler

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// New starts a Queue's pump goroutine immediately, bound to parent's
// lifetime. onError is called (on the pump goroutine) whenever a Work
// item fails; the queue keeps draining subsequent items regardless.
func New(parent context.Context, onError ErrorHandler) *Queue {
	ctx, cancel := context.WithCancel(parent)
	eg, egCtx := errgroup.WithContext(ctx)
	q := &Queue{
		signal:  make(chan struct{}, 1),
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
		eg:      eg,
	}
	eg.Go(func() error {
		q.pump(egCtx)
		return nil
	})
	return q
}

// Enqueue appends work to the tail of the queue and returns immediately;
// work has not executed by the time Enqueue returns.
func (q *Queue) Enqueue(work Work) {
	q.enqueue(&item{work: work})
}

func (q *Queue) enqueue(it *item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Flush returns a channel that closes once every item enqueued before
// this call has finished; items enqueued after this call run after the
// barrier and are not waited for. If Clear removes the barrier before the pump reaches it,
// the channel never closes — callers needing a cancellation guarantee
// must track that themselves (this is what the engine's pending-flush
// list is for).
func (q *Queue) Flush() <-chan struct{} {
	it := &item{
		work: func(ctx context.Context) error { return nil },
		done: make(chan struct{}),
	}
	q.enqueue(it)
	return it.done
}

// Clear removes every not-yet-started item. An item currently executing
// (if any) is left to run to completion.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Size returns the count of pending items, including one currently
// running if the pump is mid-item.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if q.running {
		n++
	}
	return n
}

// Close stops accepting the pump from starting new items after the
// current one (if any) finishes, and waits for the pump goroutine to exit.
func (q *Queue) Close() {
	q.cancel()
	_ = q.eg.Wait()
}

func (q *Queue) pump(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.signal:
				continue
			case <-ctx.Done():
				return
			}
		}
		next := q.items[0]
		q.items = q.items[1:]
		q.running = true
		q.mu.Unlock()

		q.runOne(ctx, next)

		q.mu.Lock()
		q.running = false
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (q *Queue) runOne(ctx context.Context, it *item) {
	defer func() {
		if r := recover(); r != nil {
			if q.onError != nil {
				q.onError(panicToError(r))
			}
		}
		if it.done != nil {
			close(it.done)
		}
	}()
	if err := it.work(ctx); err != nil && q.onError != nil {
		q.onError(err)
	}
}
