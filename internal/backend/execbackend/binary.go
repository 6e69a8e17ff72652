// Package execbackend implements backend.Backend by shelling out to a
// real ffmpeg/ffprobe install, adapted from the teacher's
// internal/ffmpeg.BinaryDetector (cached version/codec probing) and
// internal/ffmpeg.ProcessMonitor (per-process CPU/RSS sampling). Each
// open session buffers submitted raw units, and on Drain transcodes the
// buffer through one ffmpeg invocation into a temp Matroska file, then
// uses `ffprobe -show_packets` (the same JSON-probing idiom as
// internal/ffmpeg/prober.go) to split that file back into individually
// timestamped output packets.
package execbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// BinaryInfo mirrors the fields of the real install this backend cares
// about: enough to answer isConfigSupported's backend-capability check.
type BinaryInfo struct {
	FFmpegPath  string
	FFprobePath string
	Version     string
	Encoders    map[string]bool
	Decoders    map[string]bool
}

var versionPattern = regexp.MustCompile(`ffmpeg version (\S+)`)

// BinaryDetector caches a BinaryInfo for a TTL, exactly like the teacher's
// internal/ffmpeg.BinaryDetector, and de-duplicates concurrent detections
// of the same binary via singleflight.
type BinaryDetector struct {
	ffmpegPath  string
	ffprobePath string
	cacheTTL    time.Duration

	mu       sync.RWMutex
	info     *BinaryInfo
	detected time.Time

	group singleflight.Group
}

// NewBinaryDetector returns a detector for the given binaries, defaulting
// to "ffmpeg"/"ffprobe" on PATH when paths are empty.
func NewBinaryDetector(ffmpegPath, ffprobePath string) *BinaryDetector {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &BinaryDetector{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, cacheTTL: 5 * time.Minute}
}

// Detect returns the cached BinaryInfo, refreshing it at most once per
// cacheTTL and collapsing concurrent refreshes into a single exec.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.detected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	v, err, _ := d.group.Do("detect", func() (interface{}, error) {
		return d.detect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*BinaryInfo), nil
}

func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	out, err := exec.CommandContext(ctx, d.ffmpegPath, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("detect ffmpeg: %w", err)
	}
	info := &BinaryInfo{
		FFmpegPath:  d.ffmpegPath,
		FFprobePath: d.ffprobePath,
		Encoders:    map[string]bool{},
		Decoders:    map[string]bool{},
	}
	if m := versionPattern.FindSubmatch(out); len(m) == 2 {
		info.Version = string(m[1])
	}

	encOut, err := exec.CommandContext(ctx, d.ffmpegPath, "-hide_banner", "-encoders").Output()
	if err == nil {
		parseCodecList(encOut, info.Encoders)
	}
	decOut, err := exec.CommandContext(ctx, d.ffmpegPath, "-hide_banner", "-decoders").Output()
	if err == nil {
		parseCodecList(decOut, info.Decoders)
	}

	d.mu.Lock()
	d.info = info
	d.detected = time.Now()
	d.mu.Unlock()
	return info, nil
}

var codecLinePattern = regexp.MustCompile(`^\s*[A-Z.]{6}\s+(\S+)`)

// parseCodecList extracts the codec-name column from `ffmpeg -encoders`/
// `-decoders` output, which lists one codec per line after a banner.
func parseCodecList(out []byte, into map[string]bool) {
	for _, line := range bytes.Split(out, []byte("\n")) {
		m := codecLinePattern.FindSubmatch(line)
		if m == nil {
			continue
		}
		into[string(m[1])] = true
	}
}

// probePacket is one entry of `ffprobe -show_packets -of json`'s packets array.
type probePacket struct {
	Pos        string `json:"pos"`
	Size       string `json:"size"`
	PTS        int64  `json:"pts"`
	DurationTS int64  `json:"duration_ts"`
	Flags      string `json:"flags"`
}

type probePacketsOutput struct {
	Packets []probePacket `json:"packets"`
}

// probePackets runs ffprobe against path and returns its packet index,
// the same JSON-probing approach as internal/ffmpeg/prober.go.
func probePackets(ctx context.Context, ffprobePath, path string) ([]probePacket, error) {
	out, err := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-show_packets",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe show_packets: %w", err)
	}
	var parsed probePacketsOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe packets json: %w", err)
	}
	return parsed.Packets, nil
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
