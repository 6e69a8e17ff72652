package resource

import (
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
)

// AudioDataInit is the set of descriptive attributes fixed at
// construction time (spec.md §3.2). Duration is derived, never supplied.
type AudioDataInit struct {
	Format           codecs.AudioSampleFormat
	SampleRate       int
	NumberOfFrames   int
	NumberOfChannels int
	Timestamp        int64
}

// AudioData is a handle to an immutable decoded-audio payload.
type AudioData struct {
	h     *handle
	attrs AudioDataInit
}

// audioDuration implements spec.md §3.2's duration law:
// floor(numberOfFrames * 1e6 / sampleRate) microseconds.
func audioDuration(numberOfFrames, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(numberOfFrames) * 1_000_000 / int64(sampleRate)
}

// NewAudioData constructs an AudioData. If transfer is true, data's
// bytes are copied into the payload and data is zeroed in place (see
// NewVideoFrame for the same contract).
func NewAudioData(data []byte, init AudioDataInit, transfer bool) *AudioData {
	var p *payload
	if transfer {
		p = detachTransferable(data)
	} else {
		owned := make([]byte, len(data))
		copy(owned, data)
		p = newPayload(owned)
	}
	return &AudioData{h: newHandleOwning(p), attrs: init}
}

// NewAudioDataFromData copy-constructs an AudioData sharing other's
// payload, analogous to NewVideoFrameFromFrame.
func NewAudioDataFromData(other *AudioData, overrides *AudioDataInit) (*AudioData, error) {
	nh := other.h.cloneHandle()
	if nh == nil {
		return nil, codecerr.Wrap(codecerr.KindInvalidStateError, "source AudioData is closed", codecerr.ErrClosed)
	}
	attrs := other.attrs
	if overrides != nil {
		attrs = *overrides
	}
	return &AudioData{h: nh, attrs: attrs}, nil
}

// Clone returns a new AudioData sharing this instance's payload.
func (a *AudioData) Clone() (*AudioData, error) {
	nh := a.h.cloneHandle()
	if nh == nil {
		return nil, codecerr.Wrap(codecerr.KindInvalidStateError, "clone of closed AudioData", codecerr.ErrClosed)
	}
	return &AudioData{h: nh, attrs: a.attrs}, nil
}

// Close releases this handle's reference to the payload. Idempotent.
func (a *AudioData) Close() {
	a.h.closeOnce()
}

func (a *AudioData) Closed() bool {
	return a.h.Closed()
}

func (a *AudioData) Format() codecs.AudioSampleFormat {
	if a.Closed() {
		return ""
	}
	return a.attrs.Format
}

func (a *AudioData) SampleRate() int {
	if a.Closed() {
		return 0
	}
	return a.attrs.SampleRate
}

func (a *AudioData) NumberOfFrames() int {
	if a.Closed() {
		return 0
	}
	return a.attrs.NumberOfFrames
}

func (a *AudioData) NumberOfChannels() int {
	if a.Closed() {
		return 0
	}
	return a.attrs.NumberOfChannels
}

func (a *AudioData) Timestamp() int64 {
	if a.Closed() {
		return 0
	}
	return a.attrs.Timestamp
}

// Duration returns floor(numberOfFrames * 1e6 / sampleRate) microseconds,
// or nil once closed.
func (a *AudioData) Duration() *int64 {
	if a.Closed() {
		return nil
	}
	d := audioDuration(a.attrs.NumberOfFrames, a.attrs.SampleRate)
	return &d
}

// AllocationSize returns the byte length CopyTo would write for planeIndex,
// enforcing spec.md's plane-index law: interleaved formats only accept
// planeIndex 0; planar formats accept 0 <= planeIndex < numberOfChannels.
func (a *AudioData) AllocationSize(planeIndex int) (int, error) {
	if a.Closed() {
		return 0, codecerr.Wrap(codecerr.KindInvalidStateError, "allocationSize on closed AudioData", codecerr.ErrClosed)
	}
	if err := a.checkPlaneIndex(planeIndex); err != nil {
		return 0, err
	}
	bps := a.attrs.Format.BytesPerSample()
	if a.attrs.Format.Planar() {
		return a.attrs.NumberOfFrames * bps, nil
	}
	return a.attrs.NumberOfFrames * a.attrs.NumberOfChannels * bps, nil
}

func (a *AudioData) checkPlaneIndex(planeIndex int) error {
	if a.attrs.Format.Planar() {
		if planeIndex < 0 || planeIndex >= a.attrs.NumberOfChannels {
			return codecerr.New(codecerr.KindRangeError, "plane index out of range for planar format")
		}
		return nil
	}
	if planeIndex != 0 {
		return codecerr.New(codecerr.KindRangeError, "interleaved format only has plane 0")
	}
	return nil
}

// CopyTo copies plane planeIndex's samples into dest. For an interleaved
// format, plane 0 is the entire [L0,R0,L1,R1,...] buffer. For a planar
// format, plane i is channel i's contiguous run of samples.
func (a *AudioData) CopyTo(dest []byte, planeIndex int) (int, error) {
	n, err := a.AllocationSize(planeIndex)
	if err != nil {
		return 0, err
	}
	if len(dest) < n {
		return 0, codecerr.New(codecerr.KindRangeError, "destination buffer too small")
	}
	buf := a.h.p.bytesOrNil()
	if buf == nil {
		return 0, codecerr.Wrap(codecerr.KindInvalidStateError, "copyTo on released payload", codecerr.ErrClosed)
	}
	offset := 0
	if a.attrs.Format.Planar() {
		offset = planeIndex * n
	}
	if offset+n > len(buf) {
		return 0, codecerr.New(codecerr.KindRangeError, "payload shorter than declared plane layout")
	}
	return copy(dest, buf[offset:offset+n]), nil
}
