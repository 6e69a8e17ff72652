package execbackend

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/gocodecs/internal/backend"
)

// ffmpegCodecName maps a WebCodecs codec string prefix to the ffmpeg
// encoder/decoder name that handles it. Only the families spec.md's
// codec-string grammar recognizes are listed; anything else returns "".
func ffmpegCodecName(codecString string) string {
	switch {
	case strings.HasPrefix(codecString, "avc1"), strings.HasPrefix(codecString, "avc3"):
		return "h264"
	case strings.HasPrefix(codecString, "hvc1"), strings.HasPrefix(codecString, "hev1"):
		return "hevc"
	case strings.HasPrefix(codecString, "vp09"), codecString == "vp9":
		return "vp9"
	case codecString == "vp8":
		return "vp8"
	case strings.HasPrefix(codecString, "av01"):
		return "av1"
	case strings.HasPrefix(codecString, "mp4a"):
		return "aac"
	case codecString == "opus":
		return "opus"
	case codecString == "flac":
		return "flac"
	case strings.HasPrefix(codecString, "vorbis"):
		return "vorbis"
	default:
		return ""
	}
}

// ffmpegInputFormat names the raw demuxer ffmpeg must be told to use for
// in-path, since encoder input and decoder input are both headerless raw
// streams that ffmpeg cannot sniff on its own.
func ffmpegInputFormat(cfg backend.Config) (string, error) {
	switch cfg.Kind {
	case backend.KindAudioEncoder:
		return "f32le", nil
	case backend.KindVideoEncoder:
		return "rawvideo", nil
	case backend.KindAudioDecoder, backend.KindVideoDecoder:
		name := ffmpegCodecName(cfg.Codec)
		if name == "" {
			return "", fmt.Errorf("no ffmpeg demuxer known for codec %q", cfg.Codec)
		}
		return name, nil
	default:
		return "", fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// buildFFmpegArgs builds the argv for transcoding inPath into outPath
// (a Matroska container, chosen because it accepts arbitrary codecs
// without per-format muxer restrictions) according to cfg.
func buildFFmpegArgs(cfg backend.Config, inPath, outPath string) ([]string, error) {
	inFormat, err := ffmpegInputFormat(cfg)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}

	switch cfg.Kind {
	case backend.KindAudioEncoder:
		args = append(args,
			"-f", inFormat,
			"-ar", itoa(cfg.SampleRate),
			"-ac", itoa(cfg.NumberOfChannels),
			"-i", inPath,
			"-c:a", ffmpegCodecName(cfg.Codec),
		)
		if cfg.Bitrate > 0 {
			args = append(args, "-b:a", itoa64(cfg.Bitrate))
		}
	case backend.KindVideoEncoder:
		args = append(args,
			"-f", inFormat,
			"-pix_fmt", "yuv420p",
			"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			"-i", inPath,
			"-c:v", ffmpegCodecName(cfg.Codec),
		)
		if cfg.Bitrate > 0 {
			args = append(args, "-b:v", itoa64(cfg.Bitrate))
		}
	case backend.KindAudioDecoder:
		args = append(args,
			"-f", inFormat,
			"-i", inPath,
			"-c:a", "pcm_f32le",
		)
		return append(args, outPath), nil
	case backend.KindVideoDecoder:
		args = append(args,
			"-f", inFormat,
			"-i", inPath,
			"-c:v", "rawvideo",
			"-pix_fmt", "yuv420p",
		)
		return append(args, outPath), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}

	return append(args, outPath), nil
}

func itoa(n int) string   { return fmt.Sprintf("%d", n) }
func itoa64(n int64) string { return fmt.Sprintf("%d", n) }
