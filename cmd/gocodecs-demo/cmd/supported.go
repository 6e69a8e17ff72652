package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/backend/execbackend"
	"github.com/jmylchreest/gocodecs/internal/backend/inmemory"
	"github.com/jmylchreest/gocodecs/internal/engine"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
)

var supportedBackendKind string

var supportedCmd = &cobra.Command{
	Use:   "supported",
	Short: "Report isConfigSupported results for a handful of sample audio codec strings",
	RunE:  runSupported,
}

func init() {
	supportedCmd.Flags().StringVar(&supportedBackendKind, "backend", "inmemory", "backend to use: inmemory or exec")
	rootCmd.AddCommand(supportedCmd)
}

var sampleAudioCodecs = []string{"opus", "mp4a.40.2", "flac", "vorbis", "mp3", "bogus-codec"}

func runSupported(cmd *cobra.Command, args []string) error {
	var be backend.Backend
	switch supportedBackendKind {
	case "inmemory":
		be = inmemory.New(appLogger)
	case "exec":
		be = execbackend.New(appLogger)
	default:
		return fmt.Errorf("unknown backend %q (want inmemory or exec)", supportedBackendKind)
	}

	// isConfigSupported never submits work, so an encoder with no output/
	// error callbacks is a fine, throwaway way to reach the library's
	// public AudioEncoder.IsConfigSupported for each sample codec string.
	enc := engine.NewAudioEncoder(be, nil, appLogger, nil, nil)
	defer enc.Close()

	ctx := context.Background()
	for _, codecStr := range sampleAudioCodecs {
		cfg := codecs.AudioEncoderConfig{Codec: codecStr, SampleRate: 48000, NumberOfChannels: 2}
		status, err := enc.IsConfigSupported(ctx, cfg)
		if err != nil {
			fmt.Printf("%-14s error: %v\n", codecStr, err)
			continue
		}
		fmt.Printf("%-14s supported=%v\n", codecStr, status.Supported)
	}
	return nil
}
