package execbackend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// runFFmpeg runs one batch transcode to completion, surfacing ffmpeg's
// stderr (captured with -loglevel error) verbatim on failure the way the
// teacher's internal/ffmpeg wraps process exit errors with captured output.
// While the subprocess runs, its CPU/memory usage is sampled via gopsutil
// (the same library the teacher's daemon uses for its own ffmpeg process
// stats) and logged once at exit, for operators tuning batch sizes.
func runFFmpeg(ctx context.Context, logger *slog.Logger, ffmpegPath string, args []string) error {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	var peakRSS uint64
	var peakCPU float64
	stopSampling := make(chan struct{})
	if logger != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sampleProcessStats(cmd.Process.Pid, stopSampling, &peakRSS, &peakCPU)
		}()
	}

	waitErr := cmd.Wait()
	close(stopSampling)
	wg.Wait()

	if logger != nil {
		logger.Debug("ffmpeg batch finished",
			slog.Int("pid", cmd.Process.Pid),
			slog.Uint64("peak_rss_bytes", peakRSS),
			slog.Float64("peak_cpu_percent", peakCPU))
	}

	if waitErr != nil {
		return fmt.Errorf("ffmpeg: %w: %s", waitErr, stderr.String())
	}
	return nil
}

// sampleProcessStats polls pid's RSS/CPU% via gopsutil until stop fires,
// tracking the peak of each. Best-effort: a process that exits between
// samples simply stops updating peak and the loop returns.
func sampleProcessStats(pid int, stop <-chan struct{}, peakRSS *uint64, peakCPU *float64) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if mem, err := proc.MemoryInfo(); err == nil && mem.RSS > *peakRSS {
				*peakRSS = mem.RSS
			}
			if cpuPct, err := proc.CPUPercent(); err == nil && cpuPct > *peakCPU {
				*peakCPU = cpuPct
			}
		}
	}
}
