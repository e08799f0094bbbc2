package mp4

import (
	"encoding/binary"

	"github.com/crateline/crateline/src/internal/cerr"
)

// box is one MP4/QuickTime atom: a 4-byte name plus its payload (the bytes
// after the 8-byte size+type header). 64-bit ("largesize") atoms are not
// handled; they do not occur in the ilst/meta/udta/moov chain this codec
// touches.
type box struct {
	Type string
	Data []byte
}

func readBoxes(data []byte) ([]box, error) {
	var out []box
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, cerr.New(cerr.KindParse, "truncated atom header")
		}
		size := binary.BigEndian.Uint32(data[0:4])
		if size < 8 || uint64(size) > uint64(len(data)) {
			return nil, cerr.New(cerr.KindParse, "invalid atom size")
		}
		out = append(out, box{Type: string(data[4:8]), Data: data[8:size]})
		data = data[size:]
	}
	return out, nil
}

func encodeBox(b box) []byte {
	size := 8 + len(b.Data)
	out := make([]byte, 8, size)
	binary.BigEndian.PutUint32(out[0:4], uint32(size))
	copy(out[4:8], b.Type)
	return append(out, b.Data...)
}

func encodeBoxes(bs []box) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, encodeBox(b)...)
	}
	return out
}

// findChild locates typ among the boxes in containerPayload, skipping the
// first prefixLen bytes (used for "meta", whose children follow a 4-byte
// version+flags field).
func findChild(containerPayload []byte, prefixLen int, typ string) ([]byte, bool) {
	if len(containerPayload) < prefixLen {
		return nil, false
	}
	boxes, err := readBoxes(containerPayload[prefixLen:])
	if err != nil {
		return nil, false
	}
	for _, b := range boxes {
		if b.Type == typ {
			return b.Data, true
		}
	}
	return nil, false
}

// rebuildContainer re-serializes containerPayload with the typ child
// replaced (or appended, if absent) by newChildPayload, preserving every
// other child and their order.
func rebuildContainer(containerPayload []byte, prefixLen int, typ string, newChildPayload []byte) ([]byte, error) {
	prefix := append([]byte(nil), containerPayload[:prefixLen]...)
	boxes, err := readBoxes(containerPayload[prefixLen:])
	if err != nil {
		return nil, err
	}
	out := prefix
	found := false
	for _, b := range boxes {
		if b.Type == typ {
			out = append(out, encodeBox(box{Type: typ, Data: newChildPayload})...)
			found = true
			continue
		}
		out = append(out, encodeBox(b)...)
	}
	if !found {
		out = append(out, encodeBox(box{Type: typ, Data: newChildPayload})...)
	}
	return out, nil
}

// data box content classes, per the "Metadata Item Atoms" convention.
const (
	classText  = 1
	classUint8 = 21
)

func decodeDataBox(payload []byte) (class uint32, content []byte, ok bool) {
	if len(payload) < 8 {
		return 0, nil, false
	}
	class = binary.BigEndian.Uint32(payload[0:4]) & 0x00ffffff
	return class, payload[8:], true
}

func encodeDataBox(class uint32, content []byte) box {
	payload := make([]byte, 8, 8+len(content))
	payload[0] = 0
	payload[1] = byte(class >> 16)
	payload[2] = byte(class >> 8)
	payload[3] = byte(class)
	// bytes 4:8 are a locale indicator, left zero (default/none).
	payload = append(payload, content...)
	return box{Type: "data", Data: payload}
}

// textItem builds a single ilst item atom (e.g. "\xa9nam") carrying one
// text-class data child.
func textItem(atomType, value string) box {
	return box{Type: atomType, Data: encodeBox(encodeDataBox(classText, []byte(value)))}
}

// uint8Item builds an ilst item atom carrying a single-byte integer value
// (cpil) or a 2-byte integer value (tmpo); width is len(content).
func uint8Item(atomType string, content []byte) box {
	return box{Type: atomType, Data: encodeBox(encodeDataBox(classUint8, content))}
}

// nOfTotalItem builds trkn/disk's 8-byte reserved/number/total/reserved
// payload.
func nOfTotalItem(atomType string, n, total int) box {
	content := make([]byte, 8)
	binary.BigEndian.PutUint16(content[2:4], uint16(n))
	binary.BigEndian.PutUint16(content[4:6], uint16(total))
	return box{Type: atomType, Data: encodeBox(encodeDataBox(0, content))}
}

// freeformItem builds a "----" atom with mean/name/data children, the
// iTunes convention for vendor-specific metadata.
func freeformItem(mean, name, value string) box {
	meanBox := box{Type: "mean", Data: append([]byte{0, 0, 0, 0}, []byte(mean)...)}
	nameBox := box{Type: "name", Data: append([]byte{0, 0, 0, 0}, []byte(name)...)}
	dataBox := encodeDataBox(classText, []byte(value))
	return box{Type: "----", Data: append(append(encodeBox(meanBox), encodeBox(nameBox)...), encodeBox(dataBox)...)}
}

// parseFreeform decodes a "----" atom's mean/name/data children.
func parseFreeform(payload []byte) (mean, name, value string, ok bool) {
	children, err := readBoxes(payload)
	if err != nil {
		return "", "", "", false
	}
	for _, c := range children {
		switch c.Type {
		case "mean":
			if len(c.Data) >= 4 {
				mean = string(c.Data[4:])
			}
		case "name":
			if len(c.Data) >= 4 {
				name = string(c.Data[4:])
			}
		case "data":
			if _, content, decOK := decodeDataBox(c.Data); decOK {
				value = string(content)
			}
		}
	}
	return mean, name, value, mean != "" && name != ""
}

// scanSupplementalAtoms walks the moov/udta/meta/ilst chain for the atoms
// the reader takes from outside dhowden/tag's Metadata: the official atoms
// it has no entry for (©wrk, ©mvn, ©mvi, ©mvc) and every freeform ("----")
// atom whatever its mean, "com.apple.iTunes" ones included. Keyed by bare
// atom name for official atoms, "mean:name" for freeform ones.
func scanSupplementalAtoms(raw []byte) (map[string]string, error) {
	moov, ok := findChild(raw, 0, "moov")
	if !ok {
		return nil, nil
	}
	udta, ok := findChild(moov, 0, "udta")
	if !ok {
		return nil, nil
	}
	meta, ok := findChild(udta, 0, "meta")
	if !ok || len(meta) < 4 {
		return nil, nil
	}
	ilst, ok := findChild(meta, 4, "ilst")
	if !ok {
		return nil, nil
	}

	items, err := readBoxes(ilst)
	if err != nil {
		return nil, err
	}

	officialWanted := map[string]bool{"\xa9wrk": true, "\xa9mvn": true, "\xa9mvi": true, "\xa9mvc": true}
	out := map[string]string{}
	for _, it := range items {
		if it.Type == "----" {
			mean, name, value, pok := parseFreeform(it.Data)
			if pok {
				out[mean+":"+name] = value
			}
			continue
		}
		if !officialWanted[it.Type] {
			continue
		}
		if _, content, decOK := decodeDataBox(it.Data); decOK {
			out[it.Type] = string(content)
		}
	}
	return out, nil
}
