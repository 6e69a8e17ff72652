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

// AudioDecoder implements spec.md §4.5: accepts EncodedAudioChunk, emits
// AudioData. A delta chunk arriving before any key chunk (since the last
// configure/flush/reset) is rejected with DataError and never forwarded
// to the backend; flush re-arms this requirement.
type AudioDecoder struct {
	base *baseEngine

	mu  sync.Mutex
	cfg codecs.AudioDecoderConfig

	keyChunkRequired atomic.Bool
	output           func(*resource.AudioData)
}

func NewAudioDecoder(be backend.Backend, rm *reclaim.Manager, logger *slog.Logger,
	output func(*resource.AudioData), errorCB func(error)) *AudioDecoder {
	d := &AudioDecoder{output: output}
	d.base = newBaseEngine(backend.KindAudioDecoder, be, rm, logger, errorCB, d.handleOutput)
	d.keyChunkRequired.Store(true)
	return d
}

func (d *AudioDecoder) State() codecs.State { return d.base.State() }
func (d *AudioDecoder) QueueSize() int      { return d.base.QueueSize() }
func (d *AudioDecoder) AddDequeueListener(fn func()) events.ListenerID { return d.base.AddDequeueListener(fn) }
func (d *AudioDecoder) SetOnDequeue(fn func())                         { d.base.SetOnDequeue(fn) }

func (d *AudioDecoder) Configure(cfg codecs.AudioDecoderConfig) error {
	if err := validate.ShapeAudio(cfg.Codec, cfg.SampleRate, cfg.NumberOfChannels); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	beCfg := backend.Config{
		Kind: backend.KindAudioDecoder, Codec: cfg.Codec,
		SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels,
		Description: cfg.Description,
	}
	return d.base.Configure(beCfg, func() { d.keyChunkRequired.Store(true) })
}

// Decode submits chunk c for decoding. A delta chunk while a key chunk is
// still required surfaces DataError via the error callback and is
// dropped rather than forwarded.
func (d *AudioDecoder) Decode(c chunk.EncodedAudioChunk) error {
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
	return d.base.SubmitUnit(unit)
}

// IsConfigSupported implements spec.md §4.8's isConfigSupported for
// AudioDecoder.
func (d *AudioDecoder) IsConfigSupported(ctx context.Context, cfg codecs.AudioDecoderConfig) (codecs.SupportStatus[codecs.AudioDecoderConfig], error) {
	shapeErr := validate.ShapeAudio(cfg.Codec, cfg.SampleRate, cfg.NumberOfChannels)
	beCfg := backend.Config{
		Kind: backend.KindAudioDecoder, Codec: cfg.Codec,
		SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels,
		Description: cfg.Description,
	}
	return validate.Support(ctx, d.base.be, shapeErr, beCfg, cfg, cloneAudioDecoderConfig)
}

func cloneAudioDecoderConfig(cfg codecs.AudioDecoderConfig) codecs.AudioDecoderConfig {
	if cfg.Description != nil {
		cfg.Description = append([]byte(nil), cfg.Description...)
	}
	return cfg
}

func (d *AudioDecoder) Flush() <-chan error {
	ch := d.base.Flush()
	d.keyChunkRequired.Store(true)
	return ch
}

func (d *AudioDecoder) Reset() error {
	err := d.base.Reset(false)
	d.keyChunkRequired.Store(true)
	return err
}

func (d *AudioDecoder) Close() error { return d.base.Close(context.Background()) }

func (d *AudioDecoder) handleOutput(out backend.Output) {
	init := resource.AudioDataInit{
		Format:           codecs.SampleFormatF32,
		SampleRate:       out.SampleRate,
		NumberOfChannels: out.Channels,
		Timestamp:        out.Timestamp,
	}
	if out.Channels > 0 {
		init.NumberOfFrames = len(out.Data) / (out.Channels * 4)
	}
	data := resource.NewAudioData(out.Data, init, false)
	if d.output != nil {
		d.output(data)
	}
}
