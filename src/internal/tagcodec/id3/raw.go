package id3

// ID3v2 tags are conventionally written at the very start of the file; the
// header is 10 bytes: "ID3", major/minor version, flags, and a 4-byte
// syncsafe size covering everything after the header (and before any
// optional 10-byte footer).
const headerSize = 10

func syncsafeDecode(b []byte) int {
	_ = b[3]
	return int(b[0])<<21 | int(b[1])<<14 | int(b[2])<<7 | int(b[3])
}

func syncsafeEncode(n int) [4]byte {
	return [4]byte{
		byte((n >> 21) & 0x7f),
		byte((n >> 14) & 0x7f),
		byte((n >> 7) & 0x7f),
		byte(n & 0x7f),
	}
}

// tagLength returns the number of leading bytes of raw occupied by an
// ID3v2.4/2.3 tag, or 0 if raw does not start with one.
func tagLength(raw []byte) int {
	if len(raw) < headerSize || string(raw[:3]) != "ID3" {
		return 0
	}
	size := syncsafeDecode(raw[6:10])
	total := headerSize + size
	if raw[5]&0x10 != 0 { // footer present
		total += headerSize
	}
	if total > len(raw) {
		return 0
	}
	return total
}

// originalTagBytes returns the leading ID3v2 tag region of raw, or nil if
// none is present.
func originalTagBytes(raw []byte) []byte {
	n := tagLength(raw)
	if n == 0 {
		return nil
	}
	return raw[:n]
}

// audioPayload returns everything in raw after a leading ID3v2 tag.
func audioPayload(raw []byte) []byte {
	n := tagLength(raw)
	return raw[n:]
}
