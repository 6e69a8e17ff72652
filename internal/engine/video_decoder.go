package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/internal/events"
	"github.com/jmylchreest/gocodecs/internal/reclaim"
	"github.com/jmylchreest/gocodecs/internal/validate"
	"github.com/jmylchreest/gocodecs/pkg/chunk"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
	"github.com/jmylchreest/gocodecs/pkg/resource"
)

// VideoDecoder implements spec.md §4.6: accepts EncodedVideoChunk, emits
// VideoFrame, and exposes a pending-frames counter (accepted chunks whose
// frame has not yet reached the output callback).
type VideoDecoder struct {
	base *baseEngine

	mu  sync.Mutex
	cfg codecs.VideoDecoderConfig

	keyChunkRequired atomic.Bool
	pendingFrames    atomic.Int64
	output           func(*resource.VideoFrame)
}

func NewVideoDecoder(be backend.Backend, rm *reclaim.Manager, logger *slog.Logger,
	output func(*resource.VideoFrame), errorCB func(error)) *VideoDecoder {
	d := &VideoDecoder{output: output}
	d.base = newBaseEngine(backend.KindVideoDecoder, be, rm, logger, errorCB, d.handleOutput)
	d.keyChunkRequired.Store(true)
	return d
}

func (d *VideoDecoder) State() codecs.State { return d.base.State() }
func (d *VideoDecoder) QueueSize() int      { return d.base.QueueSize() }
func (d *VideoDecoder) PendingFrames() int64 { return d.pendingFrames.Load() }
func (d *VideoDecoder) AddDequeueListener(fn func()) events.ListenerID { return d.base.AddDequeueListener(fn) }
func (d *VideoDecoder) SetOnDequeue(fn func())                         { d.base.SetOnDequeue(fn) }

func (d *VideoDecoder) Configure(cfg codecs.VideoDecoderConfig) error {
	if err := validate.ShapeVideoDecoder(cfg.Codec, cfg.CodedWidth, cfg.CodedHeight); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	beCfg := backend.Config{
		Kind: backend.KindVideoDecoder, Codec: cfg.Codec,
		Width: cfg.CodedWidth, Height: cfg.CodedHeight,
		Description: cfg.Description,
	}
	return d.base.Configure(beCfg, func() {
		d.keyChunkRequired.Store(true)
		d.pendingFrames.Store(0)
	})
}

// Decode submits c for decoding. A delta chunk while a key chunk is still
// required surfaces DataError and is dropped.
func (d *VideoDecoder) Decode(c chunk.EncodedVideoChunk) error {
	if d.keyChunkRequired.Load() && c.Type() == chunk.TypeDelta {
		d.base.ReportError(codecerr.Wrap(codecerr.KindDataError, "first chunk after configure/flush/reset must be a key chunk", nil))
		return nil
	}
	if c.Type() == chunk.TypeKey {
		d.keyChunkRequired.Store(false)
	}

	payload := make([]byte, c.ByteLength())
	if _, err := c.CopyTo(payload); err != nil {
		return err
	}
	unit := backend.Unit{Data: payload, Timestamp: c.Timestamp(), Duration: c.Duration(), KeyChunk: c.Type() == chunk.TypeKey}
	if err := d.base.SubmitUnit(unit); err != nil {
		return err
	}
	d.pendingFrames.Add(1)
	return nil
}

// IsConfigSupported implements spec.md §4.8's isConfigSupported for
// VideoDecoder.
func (d *VideoDecoder) IsConfigSupported(ctx context.Context, cfg codecs.VideoDecoderConfig) (codecs.SupportStatus[codecs.VideoDecoderConfig], error) {
	shapeErr := validate.ShapeVideoDecoder(cfg.Codec, cfg.CodedWidth, cfg.CodedHeight)
	beCfg := backend.Config{
		Kind: backend.KindVideoDecoder, Codec: cfg.Codec,
		Width: cfg.CodedWidth, Height: cfg.CodedHeight,
		Description: cfg.Description,
	}
	return validate.Support(ctx, d.base.be, shapeErr, beCfg, cfg, cloneVideoDecoderConfig)
}

func cloneVideoDecoderConfig(cfg codecs.VideoDecoderConfig) codecs.VideoDecoderConfig {
	if cfg.Description != nil {
		cfg.Description = append([]byte(nil), cfg.Description...)
	}
	if cfg.ColorSpace != nil {
		cs := cfg.ColorSpace.Clone()
		cfg.ColorSpace = &cs
	}
	return cfg
}

func (d *VideoDecoder) Flush() <-chan error {
	inner := d.base.Flush()
	out := make(chan error, 1)
	go func() {
		err := <-inner
		if err == nil {
			d.pendingFrames.Store(0)
		}
		d.keyChunkRequired.Store(true)
		out <- err
	}()
	return out
}

func (d *VideoDecoder) Reset() error {
	err := d.base.Reset(true)
	d.keyChunkRequired.Store(true)
	d.pendingFrames.Store(0)
	return err
}

func (d *VideoDecoder) Close() error { return d.base.Close(context.Background()) }

func (d *VideoDecoder) handleOutput(out backend.Output) {
	if d.pendingFrames.Load() > 0 {
		d.pendingFrames.Add(-1)
	}
	init := resource.VideoFrameInit{
		Format:      codecs.PixelI420,
		CodedWidth:  out.Width,
		CodedHeight: out.Height,
		Timestamp:   out.Timestamp,
		Duration:    out.Duration,
	}
	frame := resource.NewVideoFrame(out.Data, init, false)
	if d.output != nil {
		d.output(frame)
	}
}
