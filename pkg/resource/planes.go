package resource

import "github.com/jmylchreest/gocodecs/pkg/codecs"

// planeLayout describes one plane of a VideoFrame payload: its pixel
// dimensions, how many bytes each sample occupies, and how many
// interleaved samples-per-pixel it carries (4 for the packed RGBA/BGRA
// family, 2 for the NV12-family interleaved chroma plane, 1 otherwise).
type planeLayout struct {
	width          int
	height         int
	bytesPerSample int
	samplesPerPx   int
}

func (p planeLayout) byteLength() int {
	return p.width * p.height * p.bytesPerSample * p.samplesPerPx
}

// planesFor computes the plane layout for a codedWidth x codedHeight
// frame in the given pixel format. Returns nil for an unrecognized format.
func planesFor(format codecs.VideoPixelFormat, width, height int) []planeLayout {
	hw := (width + 1) / 2
	hh := (height + 1) / 2

	packed := func(bps int) []planeLayout {
		return []planeLayout{{width: width, height: height, bytesPerSample: bps, samplesPerPx: 4}}
	}
	yuv420 := func(bps int, alpha bool) []planeLayout {
		planes := []planeLayout{
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: hw, height: hh, bytesPerSample: bps, samplesPerPx: 1},
			{width: hw, height: hh, bytesPerSample: bps, samplesPerPx: 1},
		}
		if alpha {
			planes = append(planes, planeLayout{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1})
		}
		return planes
	}
	yuv422 := func(bps int, alpha bool) []planeLayout {
		planes := []planeLayout{
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: hw, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: hw, height: height, bytesPerSample: bps, samplesPerPx: 1},
		}
		if alpha {
			planes = append(planes, planeLayout{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1})
		}
		return planes
	}
	yuv444 := func(bps int, alpha bool) []planeLayout {
		planes := []planeLayout{
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
		}
		if alpha {
			planes = append(planes, planeLayout{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1})
		}
		return planes
	}
	nv := func(bps int) []planeLayout {
		return []planeLayout{
			{width: width, height: height, bytesPerSample: bps, samplesPerPx: 1},
			{width: hw, height: hh, bytesPerSample: bps, samplesPerPx: 2},
		}
	}

	switch format {
	case codecs.PixelRGBA, codecs.PixelRGBX, codecs.PixelBGRA, codecs.PixelBGRX:
		return packed(1)
	case codecs.PixelI420:
		return yuv420(1, false)
	case codecs.PixelI420A:
		return yuv420(1, true)
	case codecs.PixelI420P10, codecs.PixelI420P12:
		return yuv420(2, false)
	case codecs.PixelI420AP10, codecs.PixelI420AP12:
		return yuv420(2, true)
	case codecs.PixelI422:
		return yuv422(1, false)
	case codecs.PixelI422A:
		return yuv422(1, true)
	case codecs.PixelI422P10, codecs.PixelI422P12:
		return yuv422(2, false)
	case codecs.PixelI422AP10, codecs.PixelI422AP12:
		return yuv422(2, true)
	case codecs.PixelI444:
		return yuv444(1, false)
	case codecs.PixelI444A:
		return yuv444(1, true)
	case codecs.PixelI444P10, codecs.PixelI444P12:
		return yuv444(2, false)
	case codecs.PixelI444AP10, codecs.PixelI444AP12:
		return yuv444(2, true)
	case codecs.PixelNV12, codecs.PixelNV21:
		return nv(1)
	case codecs.PixelNV12A:
		planes := nv(1)
		return append(planes, planeLayout{width: width, height: height, bytesPerSample: 1, samplesPerPx: 1})
	case codecs.PixelNV12P10:
		return nv(2)
	default:
		return nil
	}
}
