package codecs

// AudioEncoderConfig configures an AudioEncoder. Codec is a codec string
// per spec.md §4.8.1 (e.g. "opus", "mp4a.40.2").
type AudioEncoderConfig struct {
	Codec            string
	SampleRate       int
	NumberOfChannels int
	Bitrate          int64
	BitrateMode      BitrateMode
}

// AudioDecoderConfig configures an AudioDecoder.
type AudioDecoderConfig struct {
	Codec            string
	SampleRate       int
	NumberOfChannels int
	Description      []byte
}

// VideoEncoderConfig configures a VideoEncoder.
type VideoEncoderConfig struct {
	Codec                string
	Width                int
	Height               int
	DisplayWidth         int
	DisplayHeight        int
	Bitrate              int64
	Framerate            float64
	HardwareAcceleration HardwareAcceleration
	AlphaOption          AlphaOption
	ScalabilityMode      string
	BitrateMode          BitrateMode
	LatencyMode          LatencyMode
}

// VideoDecoderConfig configures a VideoDecoder.
type VideoDecoderConfig struct {
	Codec                string
	CodedWidth           int
	CodedHeight          int
	DisplayAspectWidth   int
	DisplayAspectHeight  int
	Description          []byte
	ColorSpace           *VideoColorSpace
	HardwareAcceleration HardwareAcceleration
}

// EncodeOptions are the per-call options accepted by VideoEncoder.Encode.
type EncodeOptions struct {
	KeyFrame *bool
}

// SupportStatus is the result of isConfigSupported.
type SupportStatus[C any] struct {
	Supported bool
	Config    C
}

// SVCMetadata carries scalable-video-coding layer info for an encoded chunk.
type SVCMetadata struct {
	TemporalLayerID int
}

// EncodedVideoChunkMetadata accompanies a VideoEncoder output event.
type EncodedVideoChunkMetadata struct {
	DecoderConfig  *VideoDecoderConfig
	SVC            *SVCMetadata
	AlphaSideData  []byte
}

// EncodedAudioChunkMetadata accompanies an AudioEncoder output event; per
// spec.md §4.5 it is currently always empty but is a distinct type so the
// public API can grow without a breaking change.
type EncodedAudioChunkMetadata struct{}
