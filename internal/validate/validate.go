// Package validate implements spec.md §4.8: configuration shape
// validation shared by synchronous configure (which throws TypeError on
// failure) and isConfigSupported (which reports supported=false instead
// of throwing), plus the isConfigSupported orchestration itself (parse
// codec string, ask the backend).
package validate

import (
	"context"
	"strings"

	"github.com/jmylchreest/gocodecs/internal/backend"
	"github.com/jmylchreest/gocodecs/internal/codecerr"
	"github.com/jmylchreest/gocodecs/internal/codecstring"
	"github.com/jmylchreest/gocodecs/pkg/codecs"
)

// ShapeAudio validates the structural requirements of §4.8 step 1 for the
// audio encoder and decoder config records. It returns a non-nil error
// describing the first violation found.
func ShapeAudio(codec string, sampleRate, numberOfChannels int) error {
	if err := requireNonBlankCodec(codec); err != nil {
		return err
	}
	if sampleRate <= 0 {
		return codecerr.New(codecerr.KindTypeError, "sampleRate must be a positive integer")
	}
	if numberOfChannels <= 0 {
		return codecerr.New(codecerr.KindTypeError, "numberOfChannels must be a positive integer")
	}
	return nil
}

func ShapeVideoEncoder(codec string, width, height, displayWidth, displayHeight int) error {
	if err := requireNonBlankCodec(codec); err != nil {
		return err
	}
	if width <= 0 {
		return codecerr.New(codecerr.KindTypeError, "width must be a positive integer")
	}
	if height <= 0 {
		return codecerr.New(codecerr.KindTypeError, "height must be a positive integer")
	}
	hasDisplayWidth := displayWidth != 0
	hasDisplayHeight := displayHeight != 0
	if hasDisplayWidth != hasDisplayHeight {
		return codecerr.New(codecerr.KindTypeError, "displayWidth and displayHeight must both be set or both be unset")
	}
	if hasDisplayWidth && displayWidth <= 0 {
		return codecerr.New(codecerr.KindTypeError, "displayWidth must be a positive integer")
	}
	if hasDisplayHeight && displayHeight <= 0 {
		return codecerr.New(codecerr.KindTypeError, "displayHeight must be a positive integer")
	}
	return nil
}

func ShapeVideoDecoder(codec string, codedWidth, codedHeight int) error {
	if err := requireNonBlankCodec(codec); err != nil {
		return err
	}
	if codedWidth < 0 {
		return codecerr.New(codecerr.KindTypeError, "codedWidth must not be negative")
	}
	if codedHeight < 0 {
		return codecerr.New(codecerr.KindTypeError, "codedHeight must not be negative")
	}
	return nil
}

func requireNonBlankCodec(codec string) error {
	if strings.TrimSpace(codec) == "" {
		return codecerr.New(codecerr.KindTypeError, "codec must be a non-empty, non-whitespace string")
	}
	return nil
}

// Support runs the full §4.8 isConfigSupported pipeline: shape validate,
// parse the codec string, and ask be to probe. cloneCfg is applied to the
// (possibly zero-value) config regardless of outcome, matching the spec's
// requirement that the returned config is always a clone of recognized
// fields, supported or not.
func Support[C any](ctx context.Context, be backend.Backend, shapeErr error, beCfg backend.Config, cfg C, cloneCfg func(C) C) (codecs.SupportStatus[C], error) {
	cloned := cloneCfg(cfg)
	if shapeErr != nil {
		return codecs.SupportStatus[C]{Supported: false, Config: cloned}, nil
	}
	if _, ok := codecstring.Parse(beCfg.Codec); !ok {
		return codecs.SupportStatus[C]{Supported: false, Config: cloned}, nil
	}
	result, err := be.Probe(ctx, beCfg)
	if err != nil {
		return codecs.SupportStatus[C]{}, err
	}
	return codecs.SupportStatus[C]{Supported: result.Supported, Config: cloned}, nil
}
