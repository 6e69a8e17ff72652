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

type orientation struct {
	rotation int
	flip     bool
}

// VideoEncoder implements spec.md §4.7: accepts VideoFrame, emits
// EncodedVideoChunk + metadata. active_orientation is latched from the
// first frame encoded after each configure/reset; later frames with a
// different orientation are reported as EncodingError rather than
// silently re-oriented, since this backend has no rotate/flip filter
// wired in front of it.
type VideoEncoder struct {
	base *baseEngine

	mu  sync.Mutex
	cfg codecs.VideoEncoderConfig

	haveOrientation atomic.Bool
	orientationMu   sync.Mutex
	activeOrient    orientation

	firstOutputSinceConfigure atomic.Bool
	output                    func(chunk.EncodedVideoChunk, codecs.EncodedVideoChunkMetadata)
}

func NewVideoEncoder(be backend.Backend, rm *reclaim.Manager, logger *slog.Logger,
	output func(chunk.EncodedVideoChunk, codecs.EncodedVideoChunkMetadata), errorCB func(error)) *VideoEncoder {
	e := &VideoEncoder{output: output}
	e.base = newBaseEngine(backend.KindVideoEncoder, be, rm, logger, errorCB, e.handleOutput)
	return e
}

func (e *VideoEncoder) State() codecs.State { return e.base.State() }
func (e *VideoEncoder) QueueSize() int      { return e.base.QueueSize() }
func (e *VideoEncoder) AddDequeueListener(fn func()) events.ListenerID { return e.base.AddDequeueListener(fn) }
func (e *VideoEncoder) SetOnDequeue(fn func())                         { e.base.SetOnDequeue(fn) }

func (e *VideoEncoder) Configure(cfg codecs.VideoEncoderConfig) error {
	if err := validate.ShapeVideoEncoder(cfg.Codec, cfg.Width, cfg.Height, cfg.DisplayWidth, cfg.DisplayHeight); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	beCfg := backend.Config{
		Kind: backend.KindVideoEncoder, Codec: cfg.Codec,
		Width: cfg.Width, Height: cfg.Height, Bitrate: cfg.Bitrate,
	}
	return e.base.Configure(beCfg, func() {
		e.haveOrientation.Store(false)
		e.firstOutputSinceConfigure.Store(true)
	})
}

// Encode submits frame for encoding with the given per-call options.
// Reports EncodingError (and leaves the frame unsubmitted) if frame's
// orientation differs from the orientation latched by the first frame
// encoded since the last configure/reset.
func (e *VideoEncoder) Encode(frame *resource.VideoFrame, opts codecs.EncodeOptions) error {
	if frame.Closed() {
		return codecerr.Wrap(codecerr.KindInvalidStateError, "encode called with closed VideoFrame", codecerr.ErrClosed)
	}
	this := orientation{rotation: frame.Rotation(), flip: frame.Flip()}

	e.orientationMu.Lock()
	if e.haveOrientation.CompareAndSwap(false, true) {
		e.activeOrient = this
	} else if e.activeOrient != this {
		e.orientationMu.Unlock()
		e.base.ReportError(codecerr.New(codecerr.KindEncodingError, "frame orientation differs from the encoder's latched active_orientation"))
		return nil
	}
	e.orientationMu.Unlock()

	planeCount := 1
	buf, err := collectVideoPlanes(frame, planeCount)
	if err != nil {
		return err
	}

	unit := backend.Unit{Data: buf, Timestamp: frame.Timestamp()}
	if d := frame.Duration(); d != nil {
		unit.Duration = d
	}
	if opts.KeyFrame != nil {
		unit.ForceKey = *opts.KeyFrame
	}
	return e.base.SubmitUnit(unit)
}

func collectVideoPlanes(frame *resource.VideoFrame, minPlanes int) ([]byte, error) {
	var out []byte
	for i := 0; ; i++ {
		n, err := frame.AllocationSize(i)
		if err != nil {
			if i >= minPlanes {
				break
			}
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := frame.CopyTo(buf, i); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// IsConfigSupported implements spec.md §4.8's isConfigSupported for
// VideoEncoder.
func (e *VideoEncoder) IsConfigSupported(ctx context.Context, cfg codecs.VideoEncoderConfig) (codecs.SupportStatus[codecs.VideoEncoderConfig], error) {
	shapeErr := validate.ShapeVideoEncoder(cfg.Codec, cfg.Width, cfg.Height, cfg.DisplayWidth, cfg.DisplayHeight)
	beCfg := backend.Config{
		Kind: backend.KindVideoEncoder, Codec: cfg.Codec,
		Width: cfg.Width, Height: cfg.Height, Bitrate: cfg.Bitrate,
	}
	return validate.Support(ctx, e.base.be, shapeErr, beCfg, cfg, cloneVideoEncoderConfig)
}

func cloneVideoEncoderConfig(cfg codecs.VideoEncoderConfig) codecs.VideoEncoderConfig { return cfg }

func (e *VideoEncoder) Flush() <-chan error { return e.base.Flush() }

func (e *VideoEncoder) Reset() error {
	err := e.base.Reset(true)
	e.haveOrientation.Store(false)
	return err
}

func (e *VideoEncoder) Close() error { return e.base.Close(context.Background()) }

func (e *VideoEncoder) handleOutput(out backend.Output) {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	meta := codecs.EncodedVideoChunkMetadata{}
	if e.firstOutputSinceConfigure.CompareAndSwap(true, false) || len(out.DecoderConfig) > 0 {
		meta.DecoderConfig = &codecs.VideoDecoderConfig{
			Codec: cfg.Codec, CodedWidth: cfg.Width, CodedHeight: cfg.Height,
			Description: out.DecoderConfig,
		}
	}
	if out.TemporalLayerID != nil {
		meta.SVC = &codecs.SVCMetadata{TemporalLayerID: *out.TemporalLayerID}
	}

	c := chunk.NewVideoChunk(chunk.Init{
		Type:      chunkTypeFor(out.KeyFrame),
		Timestamp: out.Timestamp,
		Duration:  out.Duration,
		Data:      out.Data,
	})
	if e.output != nil {
		e.output(c, meta)
	}
}
