// Package engine implements the shared CodecEngine state machine of
// spec.md §3.5/§4.3 and its four concrete shapes (§4.4-§4.7). baseEngine
// generalizes the teacher's internal/daemon.TranscodeJob: atomic state
// flags, a closedCh-style shutdown signal, and a channel-based handoff
// between the caller-facing API and a dedicated backend worker — widened
// from one FFmpeg subprocess wrapper into a reusable skeleton shared by
// all four engine kinds, built on internal/queue's ControlMessageQueue
// instead of the teacher's raw inputCh/outputCh pair.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"log/slog"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/internal/events"
	"github.com/jmylchreest/gocodecs/internal/observability"
	"github.com/jmylchreest/gocodecs/internal/queue"
	"github.com/jmylchreest/gocodecs/internal/reclaim"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
)

// baseEngine is the shared state machine every concrete engine embeds. It
// owns exactly one ControlMessageQueue and, once configured, exactly one
// CodecBackend handle, matching spec.md §5's concurrency model.
type baseEngine struct {
	id     string
	kind   backend.Kind
	be     backend.Backend
	logger *slog.Logger

	errorCB  func(error)
	onOutput func(backend.Output)

	rm   *reclaim.Manager
	rmID string

	baseCtx    context.Context
	baseCancel context.CancelFunc

	q         *queue.Queue
	dequeue   *events.Target
	coalescer *events.Coalescer

	mu         sync.Mutex
	state      codecs.State
	handle     *backend.Handle
	handleDone context.CancelFunc

	pendingMu sync.Mutex
	pending   []chan error

	// pendingUnits counts encode/decode calls that have been submitted to
	// the backend but have not yet produced their first output event: the
	// spec's queueSize. It is distinct from q.Size(), which is the control
	// queue's own depth and drains as soon as Submit hands the unit off to
	// the backend, well before the backend actually produces output.
	pendingUnits atomic.Int64

	foreground atomic.Bool
}

func newBaseEngine(kind backend.Kind, be backend.Backend, rm *reclaim.Manager, logger *slog.Logger, errorCB func(error), onOutput func(backend.Output)) *baseEngine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, string(kind))
	ctx, cancel := context.WithCancel(context.Background())
	b := &baseEngine{
		id:         uuid.NewString(),
		kind:       kind,
		be:         be,
		logger:     logger,
		errorCB:    errorCB,
		onOutput:   onOutput,
		rm:         rm,
		state:      codecs.StateUnconfigured,
		dequeue:    &events.Target{},
		coalescer:  events.NewCoalescer(),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	b.foreground.Store(true)
	b.q = queue.New(ctx, func(err error) {
		b.failAndClose(codecerr.KindEncodingError, err)
	})
	go b.coalescer.Run(ctx, b.dequeue.Dispatch)
	if rm != nil {
		b.rmID = rm.Register(b)
	}
	return b
}

// State returns the engine's current lifecycle state.
func (b *baseEngine) State() codecs.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// QueueSize is spec.md §3.5's queueSize: the count of encode/decode calls
// submitted to the backend that have not yet produced their first output.
func (b *baseEngine) QueueSize() int {
	return int(b.pendingUnits.Load())
}

// AddDequeueListener registers fn to run whenever a coalesced dequeue
// event fires (spec.md §4.3's "Schedule Dequeue Event").
func (b *baseEngine) AddDequeueListener(fn func()) events.ListenerID {
	return b.dequeue.AddListener(fn, false)
}

func (b *baseEngine) RemoveDequeueListener(id events.ListenerID) {
	b.dequeue.RemoveListener(id)
}

// SetOnDequeue installs (or clears, with nil) the engine's single
// "ondequeue" property slot, spec.md §4.3's nullable callable property —
// distinct from AddDequeueListener's addEventListener-style registration.
func (b *baseEngine) SetOnDequeue(fn func()) {
	b.dequeue.SetOn(fn)
}

// Foreground implements reclaim.Engine.
func (b *baseEngine) Foreground() bool { return b.foreground.Load() }

// SetForeground lets the host tell the ResourceManager whether this
// engine's owner is currently in the foreground.
func (b *baseEngine) SetForeground(v bool) { b.foreground.Store(v) }

// ReportError implements reclaim.Engine: deliver an async error to this
// engine's error callback.
func (b *baseEngine) ReportError(err error) {
	if b.errorCB != nil {
		b.errorCB(err)
	}
}

// Configure opens a fresh backend session for beCfg. It is synchronous
// from the caller's perspective: state flips to configured immediately;
// the actual backend.Open call happens on the control queue, and a
// failure there surfaces as an async NotSupportedError that also closes
// the engine.
func (b *baseEngine) Configure(beCfg backend.Config, resetHook func()) error {
	b.mu.Lock()
	if b.state == codecs.StateClosed {
		b.mu.Unlock()
		return codecerr.New(codecerr.KindInvalidStateError, "configure called on closed engine")
	}
	b.state = codecs.StateConfigured
	b.mu.Unlock()

	b.pendingUnits.Store(0)
	if resetHook != nil {
		resetHook()
	}

	opLogger := observability.WithOperation(b.logger, "configure")
	opLogger.Debug("configuring codec engine", slog.String("codec", beCfg.Codec))
	b.q.Enqueue(func(ctx context.Context) error {
		return b.openBackend(ctx, beCfg, opLogger)
	})
	return nil
}

func (b *baseEngine) openBackend(ctx context.Context, beCfg backend.Config, opLogger *slog.Logger) error {
	b.mu.Lock()
	prev := b.handle
	prevDone := b.handleDone
	b.mu.Unlock()

	if prevDone != nil {
		prevDone()
	}
	if prev != nil {
		_ = b.be.Close(ctx, prev)
	}

	handle, err := b.be.Open(ctx, beCfg)
	if err != nil {
		observability.WithError(opLogger, err).Warn("backend rejected configuration")
		b.failAndClose(codecerr.KindNotSupportedError, err)
		return nil
	}

	evCtx, evCancel := context.WithCancel(b.baseCtx)
	b.mu.Lock()
	b.handle = handle
	b.handleDone = evCancel
	b.mu.Unlock()

	go b.runEvents(evCtx, handle)
	return nil
}

func (b *baseEngine) runEvents(ctx context.Context, handle *backend.Handle) {
	for {
		select {
		case ev, ok := <-handle.Events:
			if !ok {
				return
			}
			b.handleEvent(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (b *baseEngine) handleEvent(ev backend.Event) {
	switch ev.Kind {
	case backend.EventOutput:
		b.decrementPending()
		if b.onOutput != nil {
			b.onOutput(ev.Output)
		}
		if b.rm != nil {
			b.rm.Activity(b.rmID)
		}
		b.coalescer.Notify()
	case backend.EventDrained:
		b.resolvePendingFlushes(nil)
	case backend.EventError:
		b.failAndClose(codecerr.KindEncodingError, ev.Err)
	}
}

// decrementPending drops pendingUnits by one, floored at zero so a stray
// extra output event (or one arriving after a concurrent Reset already
// zeroed the counter) can't drive it negative.
func (b *baseEngine) decrementPending() {
	for {
		cur := b.pendingUnits.Load()
		if cur <= 0 {
			return
		}
		if b.pendingUnits.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// currentHandle returns the active backend handle, or nil if unconfigured.
func (b *baseEngine) currentHandle() *backend.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// SubmitUnit enqueues unit for backend processing. Returns InvalidStateError
// synchronously if the engine is not configured.
func (b *baseEngine) SubmitUnit(unit backend.Unit) error {
	if b.State() != codecs.StateConfigured {
		return codecerr.New(codecerr.KindInvalidStateError, "submit called while not configured")
	}
	b.pendingUnits.Add(1)
	b.q.Enqueue(func(ctx context.Context) error {
		handle := b.currentHandle()
		if handle == nil {
			return nil
		}
		if err := b.be.Submit(ctx, handle, unit); err != nil {
			b.failAndClose(codecerr.KindEncodingError, err)
		}
		return nil
	})
	return nil
}

// Flush enqueues a backend drain and returns a channel that receives nil
// on success or an error (e.g. AbortError from a concurrent reset/close)
// once resolved.
func (b *baseEngine) Flush() <-chan error {
	resultCh := make(chan error, 1)
	if b.State() != codecs.StateConfigured {
		resultCh <- codecerr.New(codecerr.KindInvalidStateError, "flush called while not configured")
		return resultCh
	}

	b.pendingMu.Lock()
	b.pending = append(b.pending, resultCh)
	b.pendingMu.Unlock()

	b.q.Enqueue(func(ctx context.Context) error {
		handle := b.currentHandle()
		if handle == nil {
			return nil
		}
		if err := b.be.Drain(ctx, handle); err != nil {
			b.failAndClose(codecerr.KindEncodingError, err)
		}
		return nil
	})
	return resultCh
}

func (b *baseEngine) resolvePendingFlushes(err error) {
	b.pendingMu.Lock()
	pending := b.pending
	b.pending = nil
	b.pendingMu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}

func (b *baseEngine) abortPendingFlushes() {
	b.resolvePendingFlushes(codecerr.Wrap(codecerr.KindAbortError, "flush aborted", codecerr.ErrAborted))
}

// Reset discards pending input/output. If errorIfClosed is true (video
// engines), calling Reset on a closed engine throws InvalidStateError;
// otherwise (audio engines) it is a no-op, per spec.md §8.
func (b *baseEngine) Reset(errorIfClosed bool) error {
	b.mu.Lock()
	if b.state == codecs.StateClosed {
		b.mu.Unlock()
		if errorIfClosed {
			return codecerr.New(codecerr.KindInvalidStateError, "reset called on closed engine")
		}
		return nil
	}
	b.state = codecs.StateUnconfigured
	handle := b.handle
	b.mu.Unlock()

	b.q.Clear()
	b.pendingUnits.Store(0)
	b.abortPendingFlushes()
	if handle != nil {
		_ = b.be.Reset(context.Background(), handle)
	}
	return nil
}

// Close is idempotent and implements reclaim.Engine.
func (b *baseEngine) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.state == codecs.StateClosed {
		b.mu.Unlock()
		return nil
	}
	b.state = codecs.StateClosed
	handle := b.handle
	handleDone := b.handleDone
	b.mu.Unlock()

	b.abortPendingFlushes()
	b.q.Close()
	b.baseCancel()
	if handleDone != nil {
		handleDone()
	}
	if handle != nil {
		_ = b.be.Close(ctx, handle)
	}
	if b.rm != nil && b.rmID != "" {
		b.rm.Unregister(b.rmID)
	}
	return nil
}

func (b *baseEngine) failAndClose(kind codecerr.Kind, cause error) {
	observability.WithError(b.logger, cause).Error("codec backend reported a failure, closing engine")
	b.ReportError(codecerr.Wrap(kind, "codec backend reported a failure", cause))
	_ = b.Close(context.Background())
}
