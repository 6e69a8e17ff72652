package codecstring

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// mediacommonKnown tracks which of our recognized families mediacommon
// itself also models as a distinct MPEG-TS codec, detected at init time by
// type assertion exactly like the teacher's internal/codec/mediacommon_detect.go.
// It is consulted only as a secondary cross-check in KnownToMediacommon;
// the grammar in codecstring.go remains the source of truth for parsing.
var mediacommonKnown = map[Family]bool{}

func init() {
	check := func(f Family, c mpegts.Codec) {
		_, unsupported := c.(*mpegts.CodecUnsupported)
		mediacommonKnown[f] = !unsupported
	}
	check(FamilyAVC, &mpegts.CodecH264{})
	check(FamilyHEVC, &mpegts.CodecH265{})
	check(FamilyAAC, &mpegts.CodecMPEG4Audio{})
	check(FamilyMP3, &mpegts.CodecMPEG1Audio{})
	check(FamilyOpus, &mpegts.CodecOpus{})
}

// KnownToMediacommon reports whether mediacommon models f as a distinct
// MPEG-TS codec type, a weak secondary signal some callers use to prefer
// codec families the rest of the toolchain already recognizes.
func KnownToMediacommon(f Family) bool {
	return mediacommonKnown[f]
}
