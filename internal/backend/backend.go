// Package backend defines the narrow CodecBackend contract of spec.md
// §6.1/§4.2: probe/open/submit/drain/reset/close against an opaque,
// process-external codec implementation, with output/drained/error
// delivered asynchronously over a per-handle event channel. internal/engine
// is the only caller; internal/backend/inmemory and
// internal/backend/execbackend are the two implementations this repo
// ships (deterministic test double, and a real ffmpeg subprocess).
package backend

import "context"

// Kind identifies which of the four engine shapes a Config/Unit/Output
// belongs to, since Go has no single wire format covering all four.
type Kind string

const (
	KindAudioEncoder Kind = "audio-encoder"
	KindAudioDecoder Kind = "audio-decoder"
	KindVideoEncoder Kind = "video-encoder"
	KindVideoDecoder Kind = "video-decoder"
)

// Config is the backend-facing view of a *Config record from pkg/codecs,
// flattened to the fields a backend actually needs to open a codec.
type Config struct {
	Kind             Kind
	Codec            string
	SampleRate       int
	NumberOfChannels int
	Width            int
	Height           int
	Bitrate          int64
	Description      []byte // decoder init data (e.g. AudioSpecificConfig/SPS+PPS)
}

// Unit is one input accepted by Submit: a raw frame for an encoder, or a
// compressed chunk for a decoder.
type Unit struct {
	Data      []byte
	Timestamp int64
	Duration  *int64
	KeyChunk  bool // decode: true if the input chunk type is "key"
	ForceKey  bool // encode: caller requested a forced keyframe
}

// Output is one item a backend hands back: a decoded frame's raw samples
// for a decoder, or a compressed chunk's bytes for an encoder.
type Output struct {
	Data            []byte
	Timestamp       int64
	Duration        *int64
	KeyFrame        bool
	SampleRate      int // decoder audio output
	Channels        int // decoder audio output
	Width           int // decoder video output
	Height          int // decoder video output
	DecoderConfig   []byte // SPS/PPS-style description, when this output carries new parameter sets
	TemporalLayerID *int
}

// EventKind distinguishes the three asynchronous signals a backend emits.
type EventKind int

const (
	EventOutput EventKind = iota
	EventDrained
	EventError
)

// Event is one item delivered on a Handle's Events channel.
type Event struct {
	Kind   EventKind
	Output Output
	Err    error
}

// Handle is the caller-visible token for one open backend codec session.
// Events is where output/drained/error arrive; the owner must keep
// draining it until Close completes.
type Handle struct {
	ID     string
	Events chan Event
}

// ProbeResult is the answer to isConfigSupported's backend-capability
// check (spec.md §4.8 step 4).
type ProbeResult struct {
	Supported     bool
	EffectiveCfg  Config
}

// Backend is the contract every codec back-end implementation satisfies.
type Backend interface {
	// Probe answers whether cfg can plausibly be opened, without opening it.
	Probe(ctx context.Context, cfg Config) (ProbeResult, error)
	// Open starts a background worker for cfg and returns its Handle.
	Open(ctx context.Context, cfg Config) (*Handle, error)
	// Submit accepts one unit of input; acceptance may be asynchronous.
	Submit(ctx context.Context, h *Handle, unit Unit) error
	// Drain flushes pending output, then emits EventDrained on h.Events.
	Drain(ctx context.Context, h *Handle) error
	// Reset discards pending input/output; the handle remains open.
	Reset(ctx context.Context, h *Handle) error
	// Close releases the handle. No further events are delivered after
	// Close returns.
	Close(ctx context.Context, h *Handle) error
}
