// Package resource implements the shareable, reference-counted media
// resources of spec.md §3.2: VideoFrame and AudioData. Both share the
// handle type (payload + closed flag) defined in handle.go; close/clone
// semantics, and the "closed getters return defaults" law, are identical
// across the two and implemented once per type to keep each type's zero
// value story explicit.
package resource

import (
	"github.com/jmylchreest/gocodecs/pkg/codecs"
	"github.com/jmylchreest/gocodecs/internal/codecerr"
)

// Rect is an integer rectangle used for codedRect/visibleRect.
type Rect struct {
	X, Y, Width, Height int
}

// VideoFrameInit is the set of descriptive attributes fixed at
// construction time (spec.md §3.2).
type VideoFrameInit struct {
	Format         codecs.VideoPixelFormat
	CodedWidth     int
	CodedHeight    int
	CodedRect      *Rect
	VisibleRect    *Rect
	DisplayWidth   int
	DisplayHeight  int
	ColorSpace     *codecs.VideoColorSpace
	Timestamp      int64
	Duration       *int64
	RotationDeg    int
	Flip           bool
}

// VideoFrame is a handle to an immutable decoded-video payload.
type VideoFrame struct {
	h     *handle
	attrs VideoFrameInit
}

// NewVideoFrame constructs a VideoFrame. If transfer is true, data's
// bytes are copied into the payload and data is zeroed in place to mimic
// detaching a transferable buffer from the caller (spec.md §3.2); callers
// must not use data again after passing transfer=true.
func NewVideoFrame(data []byte, init VideoFrameInit, transfer bool) *VideoFrame {
	var p *payload
	if transfer {
		p = detachTransferable(data)
	} else {
		owned := make([]byte, len(data))
		copy(owned, data)
		p = newPayload(owned)
	}
	return &VideoFrame{h: newHandleOwning(p), attrs: init}
}

// NewVideoFrameFromFrame copy-constructs a VideoFrame sharing other's
// payload. overrides, if non-nil, replaces the descriptive attributes;
// otherwise they are adopted from other. Fails with InvalidStateError if
// other is closed.
func NewVideoFrameFromFrame(other *VideoFrame, overrides *VideoFrameInit) (*VideoFrame, error) {
	nh := other.h.cloneHandle()
	if nh == nil {
		return nil, codecerr.Wrap(codecerr.KindInvalidStateError, "source VideoFrame is closed", codecerr.ErrClosed)
	}
	attrs := other.attrs
	if overrides != nil {
		attrs = *overrides
	}
	return &VideoFrame{h: nh, attrs: attrs}, nil
}

// Clone returns a new VideoFrame sharing this frame's payload. Fails with
// InvalidStateError if this frame is already closed.
func (f *VideoFrame) Clone() (*VideoFrame, error) {
	nh := f.h.cloneHandle()
	if nh == nil {
		return nil, codecerr.Wrap(codecerr.KindInvalidStateError, "clone of closed VideoFrame", codecerr.ErrClosed)
	}
	return &VideoFrame{h: nh, attrs: f.attrs}, nil
}

// Close releases this handle's reference to the payload. Idempotent.
func (f *VideoFrame) Close() {
	f.h.closeOnce()
}

// Closed reports whether Close has been called on this specific handle.
func (f *VideoFrame) Closed() bool {
	return f.h.Closed()
}

func (f *VideoFrame) Format() codecs.VideoPixelFormat {
	if f.Closed() {
		return ""
	}
	return f.attrs.Format
}

func (f *VideoFrame) CodedWidth() int {
	if f.Closed() {
		return 0
	}
	return f.attrs.CodedWidth
}

func (f *VideoFrame) CodedHeight() int {
	if f.Closed() {
		return 0
	}
	return f.attrs.CodedHeight
}

func (f *VideoFrame) CodedRect() *Rect {
	if f.Closed() {
		return nil
	}
	return f.attrs.CodedRect
}

func (f *VideoFrame) VisibleRect() *Rect {
	if f.Closed() {
		return nil
	}
	return f.attrs.VisibleRect
}

func (f *VideoFrame) DisplayWidth() int {
	if f.Closed() {
		return 0
	}
	return f.attrs.DisplayWidth
}

func (f *VideoFrame) DisplayHeight() int {
	if f.Closed() {
		return 0
	}
	return f.attrs.DisplayHeight
}

func (f *VideoFrame) ColorSpace() *codecs.VideoColorSpace {
	if f.Closed() {
		return nil
	}
	return f.attrs.ColorSpace
}

func (f *VideoFrame) Timestamp() int64 {
	if f.Closed() {
		return 0
	}
	return f.attrs.Timestamp
}

func (f *VideoFrame) Duration() *int64 {
	if f.Closed() {
		return nil
	}
	return f.attrs.Duration
}

func (f *VideoFrame) Rotation() int {
	if f.Closed() {
		return 0
	}
	return f.attrs.RotationDeg
}

func (f *VideoFrame) Flip() bool {
	if f.Closed() {
		return false
	}
	return f.attrs.Flip
}

// AllocationSize returns the number of bytes CopyTo would write for the
// given plane, or a RangeError if planeIndex is out of range for this
// frame's pixel format.
func (f *VideoFrame) AllocationSize(planeIndex int) (int, error) {
	if f.Closed() {
		return 0, codecerr.Wrap(codecerr.KindInvalidStateError, "allocationSize on closed VideoFrame", codecerr.ErrClosed)
	}
	planes := planesFor(f.attrs.Format, f.attrs.CodedWidth, f.attrs.CodedHeight)
	if planeIndex < 0 || planeIndex >= len(planes) {
		return 0, codecerr.New(codecerr.KindRangeError, "plane index out of range")
	}
	return planes[planeIndex].byteLength(), nil
}

// CopyTo copies the bytes of the given plane into dest, which must be at
// least AllocationSize(planeIndex) bytes. Returns the number of bytes
// written.
func (f *VideoFrame) CopyTo(dest []byte, planeIndex int) (int, error) {
	n, err := f.AllocationSize(planeIndex)
	if err != nil {
		return 0, err
	}
	if len(dest) < n {
		return 0, codecerr.New(codecerr.KindRangeError, "destination buffer too small")
	}
	buf := f.h.p.bytesOrNil()
	if buf == nil {
		return 0, codecerr.Wrap(codecerr.KindInvalidStateError, "copyTo on released payload", codecerr.ErrClosed)
	}
	planes := planesFor(f.attrs.Format, f.attrs.CodedWidth, f.attrs.CodedHeight)
	offset := 0
	for i := 0; i < planeIndex; i++ {
		offset += planes[i].byteLength()
	}
	if offset+n > len(buf) {
		return 0, codecerr.New(codecerr.KindRangeError, "payload shorter than declared plane layout")
	}
	return copy(dest, buf[offset:offset+n]), nil
}
