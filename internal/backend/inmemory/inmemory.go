// Package inmemory is a deterministic reference CodecBackend used by
// internal/engine's tests and by callers who want to exercise the engine
// state machine without a real ffmpeg binary on PATH. It performs no real
// compression: encoders hand chunks back unchanged, decoders hand frames
// back unchanged. The audio encoder marks every chunk as key; the video
// encoder marks its first output and any forced keyframe as key. The
// per-handle processing pipeline reuses internal/queue so ordering and
// drain semantics match a real backend's.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/queue"
)

type session struct {
	cfg     backend.Config
	handle  *backend.Handle
	q       *queue.Queue
	mu      sync.Mutex
	seq     int
	closing bool
}

// Backend is the in-memory reference implementation.
type Backend struct {
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[*backend.Handle]*session
}

// New returns a ready-to-use in-memory Backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger, sessions: make(map[*backend.Handle]*session)}
}

func (b *Backend) Probe(ctx context.Context, cfg backend.Config) (backend.ProbeResult, error) {
	if cfg.Codec == "" {
		return backend.ProbeResult{Supported: false}, nil
	}
	return backend.ProbeResult{Supported: true, EffectiveCfg: cfg}, nil
}

func (b *Backend) Open(ctx context.Context, cfg backend.Config) (*backend.Handle, error) {
	h := &backend.Handle{ID: uuid.NewString(), Events: make(chan backend.Event, 256)}
	s := &session{cfg: cfg, handle: h}
	s.q = queue.New(context.Background(), func(err error) {
		b.emit(h, backend.Event{Kind: backend.EventError, Err: err})
	})

	b.mu.Lock()
	b.sessions[h] = s
	b.mu.Unlock()

	b.logger.Debug("inmemory backend opened session", slog.String("id", h.ID), slog.String("kind", string(cfg.Kind)))
	return h, nil
}

func (b *Backend) Submit(ctx context.Context, h *backend.Handle, unit backend.Unit) error {
	s, err := b.lookup(h)
	if err != nil {
		return err
	}
	s.q.Enqueue(func(ctx context.Context) error {
		out := s.process(unit)
		b.emit(h, backend.Event{Kind: backend.EventOutput, Output: out})
		return nil
	})
	return nil
}

func (b *Backend) Drain(ctx context.Context, h *backend.Handle) error {
	s, err := b.lookup(h)
	if err != nil {
		return err
	}
	go func() {
		<-s.q.Flush()
		b.emit(h, backend.Event{Kind: backend.EventDrained})
	}()
	return nil
}

func (b *Backend) Reset(ctx context.Context, h *backend.Handle) error {
	s, err := b.lookup(h)
	if err != nil {
		return err
	}
	s.q.Clear()
	s.mu.Lock()
	s.seq = 0
	s.mu.Unlock()
	return nil
}

func (b *Backend) Close(ctx context.Context, h *backend.Handle) error {
	s, err := b.lookup(h)
	if err != nil {
		return nil
	}
	s.q.Close()

	b.mu.Lock()
	delete(b.sessions, h)
	b.mu.Unlock()

	close(h.Events)
	return nil
}

func (b *Backend) lookup(h *backend.Handle) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[h]
	if !ok {
		return nil, fmt.Errorf("inmemory backend: unknown handle %v", h)
	}
	return s, nil
}

func (b *Backend) emit(h *backend.Handle, ev backend.Event) {
	defer func() { recover() }() // a send after Close races the handle's consumer tearing down; drop it
	h.Events <- ev
}

func (s *session) process(unit backend.Unit) backend.Output {
	s.mu.Lock()
	isFirst := s.seq == 0
	s.seq++
	s.mu.Unlock()

	out := backend.Output{
		Data:      unit.Data,
		Timestamp: unit.Timestamp,
		Duration:  unit.Duration,
	}
	switch s.cfg.Kind {
	case backend.KindAudioEncoder:
		out.KeyFrame = true // every audio chunk is independently decodable
	case backend.KindAudioDecoder:
		out.SampleRate = s.cfg.SampleRate
		out.Channels = s.cfg.NumberOfChannels
	case backend.KindVideoEncoder:
		out.KeyFrame = isFirst || unit.ForceKey
		if isFirst {
			out.DecoderConfig = s.cfg.Description
		}
	case backend.KindVideoDecoder:
		out.Width = s.cfg.Width
		out.Height = s.cfg.Height
	}
	return out
}
