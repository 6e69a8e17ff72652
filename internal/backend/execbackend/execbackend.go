package execbackend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/queue"
)

// Backend drives a real ffmpeg/ffprobe install. It accepts raw units via
// Submit and buffers them in memory; Drain is where the actual subprocess
// work happens, since ffmpeg's container-level framing only exists once a
// full file has been written, not while units trickle in one at a time.
type Backend struct {
	logger   *slog.Logger
	detector *BinaryDetector
	workDir  string

	mu       sync.Mutex
	sessions map[*backend.Handle]*session
}

// Option configures a Backend at construction time.
type Option func(*Backend)

// WithBinaries overrides the ffmpeg/ffprobe paths used for detection and
// every subprocess invocation; both default to PATH lookup.
func WithBinaries(ffmpegPath, ffprobePath string) Option {
	return func(b *Backend) { b.detector = NewBinaryDetector(ffmpegPath, ffprobePath) }
}

// WithWorkDir overrides the directory temp files are created under;
// defaults to os.TempDir().
func WithWorkDir(dir string) Option {
	return func(b *Backend) { b.workDir = dir }
}

// New returns a ready-to-use exec Backend. Binaries are not probed until
// the first Probe or Open call.
func New(logger *slog.Logger, opts ...Option) *Backend {
	b := &Backend{
		logger:   defaultLogger(logger),
		detector: NewBinaryDetector("", ""),
		workDir:  os.TempDir(),
		sessions: make(map[*backend.Handle]*session),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type bufferedUnit struct {
	unit backend.Unit
}

type session struct {
	cfg    backend.Config
	handle *backend.Handle
	q      *queue.Queue
	dir    string

	mu      sync.Mutex
	pending []bufferedUnit
	seq     int
}

func (b *Backend) Probe(ctx context.Context, cfg backend.Config) (backend.ProbeResult, error) {
	info, err := b.detector.Detect(ctx)
	if err != nil {
		return backend.ProbeResult{Supported: false}, fmt.Errorf("execbackend probe: %w", err)
	}
	name := ffmpegCodecName(cfg.Codec)
	if name == "" {
		return backend.ProbeResult{Supported: false}, nil
	}
	var table map[string]bool
	switch cfg.Kind {
	case backend.KindAudioEncoder, backend.KindVideoEncoder:
		table = info.Encoders
	default:
		table = info.Decoders
	}
	if !table[name] {
		return backend.ProbeResult{Supported: false}, nil
	}
	return backend.ProbeResult{Supported: true, EffectiveCfg: cfg}, nil
}

func (b *Backend) Open(ctx context.Context, cfg backend.Config) (*backend.Handle, error) {
	if _, err := b.detector.Detect(ctx); err != nil {
		return nil, fmt.Errorf("execbackend open: %w", err)
	}

	dir, err := os.MkdirTemp(b.workDir, "gocodecs-exec-*")
	if err != nil {
		return nil, fmt.Errorf("execbackend open: %w", err)
	}

	h := &backend.Handle{ID: uuid.NewString(), Events: make(chan backend.Event, 256)}
	s := &session{cfg: cfg, handle: h, dir: dir}
	s.q = queue.New(context.Background(), func(err error) {
		b.emit(h, backend.Event{Kind: backend.EventError, Err: err})
	})

	b.mu.Lock()
	b.sessions[h] = s
	b.mu.Unlock()

	b.logger.Debug("execbackend opened session",
		slog.String("id", h.ID), slog.String("kind", string(cfg.Kind)), slog.String("codec", cfg.Codec))
	return h, nil
}

func (b *Backend) Submit(ctx context.Context, h *backend.Handle, unit backend.Unit) error {
	s, err := b.lookup(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.pending = append(s.pending, bufferedUnit{unit: unit})
	s.mu.Unlock()
	return nil
}

func (b *Backend) Drain(ctx context.Context, h *backend.Handle) error {
	s, err := b.lookup(h)
	if err != nil {
		return err
	}
	s.q.Enqueue(func(ctx context.Context) error {
		return b.runBatch(ctx, h, s)
	})
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
	s.pending = nil
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

	if err := os.RemoveAll(s.dir); err != nil {
		b.logger.Warn("execbackend cleanup failed", slog.String("dir", s.dir), slog.Any("error", err))
	}
	close(h.Events)
	return nil
}

func (b *Backend) lookup(h *backend.Handle) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[h]
	if !ok {
		return nil, fmt.Errorf("execbackend: unknown handle %v", h)
	}
	return s, nil
}

func (b *Backend) emit(h *backend.Handle, ev backend.Event) {
	defer func() { recover() }()
	h.Events <- ev
}

// runBatch takes every unit buffered since the last drain, transcodes them
// through one ffmpeg invocation, and emits one Output event per packet the
// result demuxes into.
func (b *Backend) runBatch(ctx context.Context, h *backend.Handle, s *session) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	info, err := b.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	inPath := filepath.Join(s.dir, fmt.Sprintf("in-%d.raw", s.seq))
	outPath := filepath.Join(s.dir, fmt.Sprintf("out-%d.mkv", s.seq))
	s.seq++

	if err := writeBatch(inPath, batch); err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	args, err := buildFFmpegArgs(s.cfg, inPath, outPath)
	if err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	if err := runFFmpeg(ctx, b.logger, info.FFmpegPath, args); err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	packets, err := probePackets(ctx, info.FFprobePath, outPath)
	if err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return fmt.Errorf("execbackend drain: %w", err)
	}

	for i, pkt := range packets {
		data, err := slicePacket(raw, pkt)
		if err != nil {
			return fmt.Errorf("execbackend drain: packet %d: %w", i, err)
		}
		out := backend.Output{
			Data:      data,
			Timestamp: pkt.PTS,
			KeyFrame:  isKeyFrame(pkt),
		}
		switch s.cfg.Kind {
		case backend.KindAudioDecoder:
			out.SampleRate = s.cfg.SampleRate
			out.Channels = s.cfg.NumberOfChannels
		case backend.KindVideoDecoder:
			out.Width = s.cfg.Width
			out.Height = s.cfg.Height
		}
		b.emit(h, backend.Event{Kind: backend.EventOutput, Output: out})
	}
	return nil
}

func writeBatch(path string, batch []bufferedUnit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, bu := range batch {
		if _, err := f.Write(bu.unit.Data); err != nil {
			return err
		}
	}
	return nil
}

func isKeyFrame(pkt probePacket) bool {
	for _, r := range pkt.Flags {
		if r == 'K' {
			return true
		}
	}
	return false
}

func slicePacket(raw []byte, pkt probePacket) ([]byte, error) {
	pos, err := strconv.ParseInt(pkt.Pos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse pos %q: %w", pkt.Pos, err)
	}
	size, err := strconv.ParseInt(pkt.Size, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse size %q: %w", pkt.Size, err)
	}
	if pos < 0 || size < 0 || pos+size > int64(len(raw)) {
		return nil, fmt.Errorf("packet range [%d:%d] out of bounds (file size %d)", pos, pos+size, len(raw))
	}
	out := make([]byte, size)
	copy(out, raw[pos:pos+size])
	return out, nil
}
