package id3

import (
	"strings"

	id3v2 "github.com/tmthrgd/id3v2"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// APIC picture type codes, per the ID3v2.4 standard (§4 "Attached picture").
const (
	apicOther         = 0x00
	apicFileIcon      = 0x01
	apicOtherFileIcon = 0x02
	apicCoverFront    = 0x03
	apicCoverBack     = 0x04
	apicLeaflet       = 0x05
	apicMedia         = 0x06
)

func apicTypeOf(code byte) domain.APICType {
	switch code {
	case apicCoverFront:
		return domain.APICCoverFront
	case apicMedia:
		return domain.APICMedia
	case apicLeaflet:
		return domain.APICLeaflet
	case apicCoverBack:
		return domain.APICCoverBack
	case apicFileIcon:
		return domain.APICFileIcon
	case apicOtherFileIcon:
		return domain.APICOtherFileIcon
	default:
		return domain.APICOther
	}
}

// pictures decodes every APIC frame's raw payload into a CandidatePicture.
// APIC layout (v2.4): encoding byte, MIME type (terminated string), picture
// type byte, description (terminated string), picture data.
func (r *reader) pictures() []tagcodec.CandidatePicture {
	var out []tagcodec.CandidatePicture
	for _, f := range r.frames {
		if f.ID != id3v2.FrameAPIC {
			continue
		}
		data := f.Data
		if len(data) < 2 {
			r.warn("APIC", "truncated frame")
			continue
		}
		encoding := data[0]
		rest := data[1:]

		mime, rest, ok := readTerminatedLatin1(rest, encoding)
		if !ok {
			r.warn("APIC", "missing MIME terminator")
			continue
		}
		if len(rest) < 1 {
			r.warn("APIC", "missing picture type byte")
			continue
		}
		picType := rest[0]
		rest = rest[1:]

		_, rest, ok = readTerminatedLatin1(rest, encoding)
		if !ok {
			r.warn("APIC", "missing description terminator")
			continue
		}

		out = append(out, tagcodec.CandidatePicture{
			APICType:  apicTypeOf(picType),
			MediaType: strings.TrimSpace(mime),
			Data:      rest,
		})
	}
	return out
}

// readTerminatedLatin1 splits off a NUL (or UTF-16 double-NUL)-terminated
// string, per the text encoding used for the surrounding frame.
func readTerminatedLatin1(data []byte, encoding byte) (value string, rest []byte, ok bool) {
	width := 1
	if encoding == 0x01 || encoding == 0x02 {
		width = 2
	}
	for i := 0; i+width <= len(data); i += width {
		allZero := true
		for j := 0; j < width; j++ {
			if data[i+j] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return string(data[:i]), data[i+width:], true
		}
	}
	return "", nil, false
}
