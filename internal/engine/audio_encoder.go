package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/internal/events"
	"github.com/jmylchreest/gocodecs/internal/reclaim"
	"github.com/jmylchreest/gocodecs/internal/validate"
	"github.com/jmylchreest/gocodecs/pkg/chunk"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
	"github.com/jmylchreest/gocodecs/pkg/resource"
)

// AudioEncoder implements spec.md §4.4: accepts AudioData, emits
// EncodedAudioChunk via the output callback supplied at construction.
type AudioEncoder struct {
	base *baseEngine

	mu  sync.Mutex
	cfg codecs.AudioEncoderConfig

	output func(chunk.EncodedAudioChunk, codecs.EncodedAudioChunkMetadata)
}

// NewAudioEncoder constructs an unconfigured AudioEncoder bound to be.
// output and errorCB play the role of the WebCodecs constructor's
// {output, error} init callbacks.
func NewAudioEncoder(be backend.Backend, rm *reclaim.Manager, logger *slog.Logger,
	output func(chunk.EncodedAudioChunk, codecs.EncodedAudioChunkMetadata), errorCB func(error)) *AudioEncoder {
	e := &AudioEncoder{output: output}
	e.base = newBaseEngine(backend.KindAudioEncoder, be, rm, logger, errorCB, e.handleOutput)
	return e
}

func (e *AudioEncoder) State() codecs.State { return e.base.State() }
func (e *AudioEncoder) QueueSize() int      { return e.base.QueueSize() }
func (e *AudioEncoder) AddDequeueListener(fn func()) events.ListenerID { return e.base.AddDequeueListener(fn) }
func (e *AudioEncoder) SetOnDequeue(fn func())                         { e.base.SetOnDequeue(fn) }

// Configure validates shape synchronously (TypeError on failure) then
// opens the backend asynchronously.
func (e *AudioEncoder) Configure(cfg codecs.AudioEncoderConfig) error {
	if err := validate.ShapeAudio(cfg.Codec, cfg.SampleRate, cfg.NumberOfChannels); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	beCfg := backend.Config{
		Kind: backend.KindAudioEncoder, Codec: cfg.Codec,
		SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels,
		Bitrate: cfg.Bitrate,
	}
	return e.base.Configure(beCfg, nil)
}

// Encode submits data for encoding. data is not closed by Encode; the
// caller retains ownership and should Close it when done.
func (e *AudioEncoder) Encode(data *resource.AudioData) error {
	if data.Closed() {
		return codecerr.Wrap(codecerr.KindInvalidStateError, "encode called with closed AudioData", codecerr.ErrClosed)
	}
	raw, err := flattenAudioSamples(data)
	if err != nil {
		return err
	}
	unit := backend.Unit{Data: raw, Timestamp: data.Timestamp()}
	if d := data.Duration(); d != nil {
		unit.Duration = d
	}
	return e.base.SubmitUnit(unit)
}

// IsConfigSupported implements spec.md §4.8's isConfigSupported for
// AudioEncoder: it never touches this encoder's own state, so it is safe
// to call at any point in the encoder's lifecycle, or before Configure.
func (e *AudioEncoder) IsConfigSupported(ctx context.Context, cfg codecs.AudioEncoderConfig) (codecs.SupportStatus[codecs.AudioEncoderConfig], error) {
	shapeErr := validate.ShapeAudio(cfg.Codec, cfg.SampleRate, cfg.NumberOfChannels)
	beCfg := backend.Config{
		Kind: backend.KindAudioEncoder, Codec: cfg.Codec,
		SampleRate: cfg.SampleRate, NumberOfChannels: cfg.NumberOfChannels,
		Bitrate: cfg.Bitrate,
	}
	return validate.Support(ctx, e.base.be, shapeErr, beCfg, cfg, cloneAudioEncoderConfig)
}

func cloneAudioEncoderConfig(cfg codecs.AudioEncoderConfig) codecs.AudioEncoderConfig { return cfg }

func (e *AudioEncoder) Flush() <-chan error { return e.base.Flush() }
func (e *AudioEncoder) Reset() error        { return e.base.Reset(false) }
func (e *AudioEncoder) Close() error        { return e.base.Close(context.Background()) }

func (e *AudioEncoder) handleOutput(out backend.Output) {
	c := chunk.NewAudioChunk(chunk.Init{
		Type:      chunkTypeFor(out.KeyFrame),
		Timestamp: out.Timestamp,
		Duration:  out.Duration,
		Data:      out.Data,
	})
	if e.output != nil {
		e.output(c, codecs.EncodedAudioChunkMetadata{})
	}
}

func chunkTypeFor(keyFrame bool) chunk.Type {
	if keyFrame {
		return chunk.TypeKey
	}
	return chunk.TypeDelta
}
