package engine

import (
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/pkg/resource"
)

// flattenAudioSamples reads every plane of data and returns one
// interleaved byte buffer in data's native sample width, per spec.md
// §6.2's plane-index law: interleaved formats are already plane 0 as-is,
// planar formats are recombined channel-by-channel into the same
// [c0,c1,...,c0,c1,...] interleaving an interleaved resource would use.
func flattenAudioSamples(data *resource.AudioData) ([]byte, error) {
	format := data.Format()
	frames := data.NumberOfFrames()
	channels := data.NumberOfChannels()
	bps := format.BytesPerSample()

	if !format.Planar() {
		buf := make([]byte, frames*channels*bps)
		if _, err := data.CopyTo(buf, 0); err != nil {
			return nil, err
		}
		return buf, nil
	}

	planes := make([][]byte, channels)
	for c := 0; c < channels; c++ {
		buf := make([]byte, frames*bps)
		if _, err := data.CopyTo(buf, c); err != nil {
			return nil, err
		}
		planes[c] = buf
	}
	out := make([]byte, frames*channels*bps)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			dst := (f*channels + c) * bps
			src := f * bps
			copy(out[dst:dst+bps], planes[c][src:src+bps])
		}
	}
	return out, nil
}

var errNotConfigured = codecerr.Wrap(codecerr.KindInvalidStateError, "engine is not configured", codecerr.ErrNotConfigured)
