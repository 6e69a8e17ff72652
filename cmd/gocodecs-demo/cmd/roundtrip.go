package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/backend/execbackend"
	"github.com/jmylchreest/gocodecs/internal/backend/inmemory"
	"github.com/jmylchreest/gocodecs/internal/engine"
	"github.com/jmylchreest/gocodecs/pkg/chunk"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
	"github.com/jmylchreest/gocodecs/pkg/resource"
)

var (
	roundtripBackendKind string
	roundtripCodec       string
	roundtripSampleRate  int
	roundtripChannels    int
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Encode a synthetic sine wave then decode it back, reporting chunk/frame counts",
	RunE:  runRoundtrip,
}

func init() {
	roundtripCmd.Flags().StringVar(&roundtripBackendKind, "backend", "inmemory", "backend to use: inmemory or exec")
	roundtripCmd.Flags().StringVar(&roundtripCodec, "codec", "opus", "audio codec string")
	roundtripCmd.Flags().IntVar(&roundtripSampleRate, "sample-rate", 48000, "sample rate in Hz")
	roundtripCmd.Flags().IntVar(&roundtripChannels, "channels", 1, "number of channels")
	rootCmd.AddCommand(roundtripCmd)
}

func newRoundtripBackend() (backend.Backend, error) {
	switch roundtripBackendKind {
	case "inmemory":
		return inmemory.New(appLogger), nil
	case "exec":
		return execbackend.New(appLogger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want inmemory or exec)", roundtripBackendKind)
	}
}

func sineWaveFrame(sampleRate, channels int, frameIndex int, numFrames int) []byte {
	buf := make([]byte, numFrames*channels*4)
	for i := 0; i < numFrames; i++ {
		t := float64(frameIndex*numFrames+i) / float64(sampleRate)
		sample := float32(math.Sin(2 * math.Pi * 440 * t))
		bits := math.Float32bits(sample)
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 4
			buf[off] = byte(bits)
			buf[off+1] = byte(bits >> 8)
			buf[off+2] = byte(bits >> 16)
			buf[off+3] = byte(bits >> 24)
		}
	}
	return buf
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	be, err := newRoundtripBackend()
	if err != nil {
		return err
	}

	var chunks []chunk.EncodedAudioChunk
	enc := engine.NewAudioEncoder(be, nil, appLogger,
		func(c chunk.EncodedAudioChunk, _ codecs.EncodedAudioChunkMetadata) { chunks = append(chunks, c) },
		func(err error) { appLogger.Error("encoder error", "error", err) },
	)
	defer enc.Close()

	if err := enc.Configure(codecs.AudioEncoderConfig{
		Codec: roundtripCodec, SampleRate: roundtripSampleRate, NumberOfChannels: roundtripChannels,
	}); err != nil {
		return fmt.Errorf("configure encoder: %w", err)
	}

	const framesPerChunk = 960
	const numChunks = 5
	for i := 0; i < numChunks; i++ {
		data := sineWaveFrame(roundtripSampleRate, roundtripChannels, i, framesPerChunk)
		frame := resource.NewAudioData(data, resource.AudioDataInit{
			Format: codecs.SampleFormatF32, SampleRate: roundtripSampleRate,
			NumberOfFrames: framesPerChunk, NumberOfChannels: roundtripChannels,
			Timestamp: int64(i) * int64(framesPerChunk) * int64(time.Second/time.Duration(roundtripSampleRate)),
		}, false)
		if err := enc.Encode(frame); err != nil {
			frame.Close()
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		frame.Close()
	}
	if err := <-enc.Flush(); err != nil {
		return fmt.Errorf("flush encoder: %w", err)
	}
	fmt.Printf("encoded %d chunks\n", len(chunks))

	var frames []*resource.AudioData
	dec := engine.NewAudioDecoder(be, nil, appLogger,
		func(d *resource.AudioData) { frames = append(frames, d) },
		func(err error) { appLogger.Error("decoder error", "error", err) },
	)
	defer dec.Close()

	if err := dec.Configure(codecs.AudioDecoderConfig{
		Codec: roundtripCodec, SampleRate: roundtripSampleRate, NumberOfChannels: roundtripChannels,
	}); err != nil {
		return fmt.Errorf("configure decoder: %w", err)
	}

	for i, c := range chunks {
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("decode chunk %d: %w", i, err)
		}
	}
	if err := <-dec.Flush(); err != nil {
		return fmt.Errorf("flush decoder: %w", err)
	}
	fmt.Printf("decoded %d frames\n", len(frames))
	for _, f := range frames {
		f.Close()
	}
	return nil
}
