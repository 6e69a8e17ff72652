package execbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gocodecs/internal/backend"
)

func TestFfmpegCodecNameRecognizesFamilies(t *testing.T) {
	cases := map[string]string{
		"avc1.42001f": "h264",
		"avc3.42001f": "h264",
		"hvc1.1.6.L93.B0": "hevc",
		"hev1.1.6.L93.B0": "hevc",
		"vp09.00.10.08":   "vp9",
		"vp8":             "vp8",
		"av01.0.04M.08":   "av1",
		"mp4a.40.2":       "aac",
		"opus":            "opus",
		"flac":            "flac",
		"unknown-codec":   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ffmpegCodecName(in), "codec %q", in)
	}
}

func TestBuildFFmpegArgsAudioEncoder(t *testing.T) {
	cfg := backend.Config{
		Kind:             backend.KindAudioEncoder,
		Codec:            "opus",
		SampleRate:       48000,
		NumberOfChannels: 2,
		Bitrate:          64000,
	}
	args, err := buildFFmpegArgs(cfg, "/tmp/in.raw", "/tmp/out.mkv")
	require.NoError(t, err)
	assert.Contains(t, args, "-ar")
	assert.Contains(t, args, "48000")
	assert.Contains(t, args, "-ac")
	assert.Contains(t, args, "2")
	assert.Contains(t, args, "-b:a")
	assert.Contains(t, args, "64000")
	assert.Equal(t, "/tmp/out.mkv", args[len(args)-1])
}

func TestBuildFFmpegArgsVideoEncoder(t *testing.T) {
	cfg := backend.Config{
		Kind:   backend.KindVideoEncoder,
		Codec:  "avc1.42001f",
		Width:  640,
		Height: 480,
	}
	args, err := buildFFmpegArgs(cfg, "/tmp/in.raw", "/tmp/out.mkv")
	require.NoError(t, err)
	assert.Contains(t, args, "640x480")
	assert.Contains(t, args, "h264")
}

func TestBuildFFmpegArgsRejectsUnknownCodec(t *testing.T) {
	cfg := backend.Config{Kind: backend.KindAudioEncoder, Codec: "not-a-real-codec"}
	_, err := buildFFmpegArgs(cfg, "/tmp/in.raw", "/tmp/out.mkv")
	assert.Error(t, err)
}

func TestSlicePacketExtractsRange(t *testing.T) {
	raw := []byte("0123456789ABCDEF")
	pkt := probePacket{Pos: "4", Size: "6"}
	out, err := slicePacket(raw, pkt)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), out)
}

func TestSlicePacketRejectsOutOfBounds(t *testing.T) {
	raw := []byte("short")
	pkt := probePacket{Pos: "2", Size: "100"}
	_, err := slicePacket(raw, pkt)
	assert.Error(t, err)
}

func TestSlicePacketRejectsUnparseableFields(t *testing.T) {
	raw := []byte("short")
	_, err := slicePacket(raw, probePacket{Pos: "not-a-number", Size: "1"})
	assert.Error(t, err)
}

func TestIsKeyFrameChecksFlagsForK(t *testing.T) {
	assert.True(t, isKeyFrame(probePacket{Flags: "K_"}))
	assert.False(t, isKeyFrame(probePacket{Flags: "__"}))
}

func TestParseCodecListExtractsNames(t *testing.T) {
	out := []byte(" Encoders:\n V..... libx264              H.264\n A..... aac                  AAC\n")
	table := map[string]bool{}
	parseCodecList(out, table)
	assert.True(t, table["libx264"])
	assert.True(t, table["aac"])
}
