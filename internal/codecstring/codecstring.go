// Package codecstring implements the codec-string grammar of spec.md
// §4.8.1: a permissive parser that recognizes the handful of prefixes the
// spec names and reports the codec family they belong to, without
// attempting to fully validate profile/level/tier fields (a backend's
// Probe call is the authority on whether a specific profile is usable).
// This generalizes the teacher's internal/codec.Video/Audio string-enum
// registry (codec.go) from a fixed list of known strings to a grammar
// that recognizes the WebCodecs codec-string shape.
package codecstring

import (
	"regexp"
	"strings"
)

// Family is the codec family a parsed codec string belongs to.
type Family string

const (
	FamilyAVC    Family = "avc"
	FamilyHEVC   Family = "hevc"
	FamilyVP8    Family = "vp8"
	FamilyVP9    Family = "vp9"
	FamilyAV1    Family = "av1"
	FamilyAAC    Family = "aac"
	FamilyOpus   Family = "opus"
	FamilyMP3    Family = "mp3"
	FamilyFLAC   Family = "flac"
	FamilyVorbis Family = "vorbis"
)

// Kind distinguishes a video family from an audio family.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
)

func (f Family) Kind() Kind {
	switch f {
	case FamilyAVC, FamilyHEVC, FamilyVP8, FamilyVP9, FamilyAV1:
		return KindVideo
	default:
		return KindAudio
	}
}

// Parsed is the decomposition of a recognized codec string.
type Parsed struct {
	Family  Family
	Profile string // hex profile_idc (AVC) or empty
	Level   string // hex level (AVC) or empty
	Raw     string
}

var (
	avcPattern = regexp.MustCompile(`^avc[13]\.([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)
	hevcPattern = regexp.MustCompile(`^(hvc1|hev1)(\..+)?$`)
	vp9Pattern  = regexp.MustCompile(`^vp09(\.\d{2}\.\d{2}\.\d{2}(\.\d{2}(\.\d{2}\.\d{2}\.\d{2}\.\d{2})?)?)?$`)
	av1Pattern  = regexp.MustCompile(`^av01\.\d\.\d{2}[a-zA-Z]\.\d{2}(\..+)?$`)
	aacPattern  = regexp.MustCompile(`^mp4a\.40(\.\d{1,2})?$`)
)

// Parse recognizes s per spec.md §4.8.1's permissive grammar. Matching is
// case-insensitive for hex profile/level digits; an empty or
// whitespace-only string, or one matching no known prefix, fails.
func Parse(s string) (Parsed, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Parsed{}, false
	}
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "h264" || lower == "avc":
		return Parsed{Family: FamilyAVC, Raw: trimmed}, true
	case avcPattern.MatchString(lower):
		m := avcPattern.FindStringSubmatch(lower)
		return Parsed{Family: FamilyAVC, Profile: m[1], Level: m[3], Raw: trimmed}, true
	case lower == "hevc" || lower == "h265":
		return Parsed{Family: FamilyHEVC, Raw: trimmed}, true
	case hevcPattern.MatchString(lower):
		return Parsed{Family: FamilyHEVC, Raw: trimmed}, true
	case lower == "vp8":
		return Parsed{Family: FamilyVP8, Raw: trimmed}, true
	case lower == "vp9":
		return Parsed{Family: FamilyVP9, Raw: trimmed}, true
	case vp9Pattern.MatchString(lower):
		return Parsed{Family: FamilyVP9, Raw: trimmed}, true
	case lower == "av1":
		return Parsed{Family: FamilyAV1, Raw: trimmed}, true
	case av1Pattern.MatchString(lower):
		return Parsed{Family: FamilyAV1, Raw: trimmed}, true
	case lower == "aac":
		return Parsed{Family: FamilyAAC, Raw: trimmed}, true
	case aacPattern.MatchString(lower):
		return Parsed{Family: FamilyAAC, Raw: trimmed}, true
	case lower == "opus":
		return Parsed{Family: FamilyOpus, Raw: trimmed}, true
	case lower == "mp3":
		return Parsed{Family: FamilyMP3, Raw: trimmed}, true
	case lower == "flac":
		return Parsed{Family: FamilyFLAC, Raw: trimmed}, true
	case lower == "vorbis":
		return Parsed{Family: FamilyVorbis, Raw: trimmed}, true
	default:
		return Parsed{}, false
	}
}
