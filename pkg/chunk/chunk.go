// Package chunk implements the immutable compressed-media containers of
// spec.md §3.3: EncodedVideoChunk and EncodedAudioChunk. Both are thin
// aliases of the same underlying Chunk value — the spec draws no behavioral
// distinction between the two beyond which engine produces/consumes them.
package chunk

import "github.com/jmylchreest/gocodecs/internal/codecerr"

// Type distinguishes an independently decodable chunk from one that needs
// prior context to decode.
type Type string

const (
	TypeKey   Type = "key"
	TypeDelta Type = "delta"
)

// Chunk is an immutable compressed-media byte container.
type Chunk struct {
	kind      Type
	timestamp int64  // microseconds, signed
	duration  *int64 // nullable microseconds; nil means unknown, distinct from 0
	payload   []byte
}

// Init is the caller-supplied shape used to construct a Chunk.
type Init struct {
	Type      Type
	Timestamp int64
	Duration  *int64
	Data      []byte
}

// New builds a Chunk, copying Data so the returned Chunk is immutable
// regardless of what the caller does with its own slice afterward.
func New(init Init) *Chunk {
	owned := make([]byte, len(init.Data))
	copy(owned, init.Data)
	return &Chunk{kind: init.Type, timestamp: init.Timestamp, duration: init.Duration, payload: owned}
}

func (c *Chunk) Type() Type        { return c.kind }
func (c *Chunk) Timestamp() int64  { return c.timestamp }
func (c *Chunk) Duration() *int64  { return c.duration }
func (c *Chunk) ByteLength() int   { return len(c.payload) }

// CopyTo copies the chunk's payload into dest, which must be at least
// ByteLength() bytes long.
func (c *Chunk) CopyTo(dest []byte) (int, error) {
	if len(dest) < len(c.payload) {
		return 0, codecerr.New(codecerr.KindRangeError, "destination buffer smaller than byteLength")
	}
	return copy(dest, c.payload), nil
}

// Close is a permitted no-op, kept for API symmetry with MediaResource.
func (c *Chunk) Close() {}

// EncodedVideoChunk and EncodedAudioChunk are the two named chunk kinds
// from spec.md §3.3. They share Chunk's behavior entirely; the distinct
// names exist so engine APIs can express which flavor they accept.
type EncodedVideoChunk struct{ *Chunk }
type EncodedAudioChunk struct{ *Chunk }

func NewVideoChunk(init Init) EncodedVideoChunk {
	return EncodedVideoChunk{New(init)}
}

func NewAudioChunk(init Init) EncodedAudioChunk {
	return EncodedAudioChunk{New(init)}
}
