package codecstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecognizesEachFamily(t *testing.T) {
	cases := []struct {
		in   string
		want Family
	}{
		{"avc1.42001f", FamilyAVC},
		{"avc3.64001f", FamilyAVC},
		{"h264", FamilyAVC},
		{"hvc1.1.6.L93.B0", FamilyHEVC},
		{"hev1.1.6.L93.B0", FamilyHEVC},
		{"vp09.00.10.08", FamilyVP9},
		{"vp9", FamilyVP9},
		{"vp8", FamilyVP8},
		{"av01.0.04M.08", FamilyAV1},
		{"av1", FamilyAV1},
		{"mp4a.40.2", FamilyAAC},
		{"aac", FamilyAAC},
		{"opus", FamilyOpus},
		{"mp3", FamilyMP3},
		{"flac", FamilyFLAC},
		{"vorbis", FamilyVorbis},
	}
	for _, c := range cases {
		got, ok := Parse(c.in)
		assert.True(t, ok, "expected %q to parse", c.in)
		assert.Equal(t, c.want, got.Family, "codec %q", c.in)
	}
}

func TestParseIsCaseInsensitiveForHexFields(t *testing.T) {
	lower, ok := Parse("avc1.42001f")
	assert.True(t, ok)
	upper, ok := Parse("avc1.42001F")
	assert.True(t, ok)
	assert.Equal(t, lower.Profile, upper.Profile)
	assert.Equal(t, lower.Level, upper.Level)
}

func TestParseRejectsWhitespaceOnly(t *testing.T) {
	_, ok := Parse("   ")
	assert.False(t, ok)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, ok := Parse("")
	assert.False(t, ok)
}

func TestParseRejectsUnknownPrefix(t *testing.T) {
	_, ok := Parse("not-a-codec")
	assert.False(t, ok)
}

func TestFamilyKindClassifiesVideoVsAudio(t *testing.T) {
	assert.Equal(t, KindVideo, FamilyAVC.Kind())
	assert.Equal(t, KindVideo, FamilyAV1.Kind())
	assert.Equal(t, KindAudio, FamilyOpus.Kind())
	assert.Equal(t, KindAudio, FamilyAAC.Kind())
}

func TestKnownToMediacommonRecognizesOverlap(t *testing.T) {
	assert.True(t, KnownToMediacommon(FamilyAVC))
	assert.True(t, KnownToMediacommon(FamilyAAC))
}
