package id3

// encodeV24 serializes a list of frames into a full ID3v2.4 tag (header +
// frames, no footer, no padding, no unsynchronisation). Frame order is
// preserved from the input slice so repeated exports of an unchanged track
// produce byte-identical output (§4.2 behavioral contract 7).
func encodeV24(frames []outFrame) []byte {
	var body []byte
	for _, f := range frames {
		body = append(body, encodeFrame(f)...)
	}

	header := make([]byte, headerSize)
	copy(header, "ID3")
	header[3] = 0x04 // major version
	header[4] = 0x00 // revision
	header[5] = 0x00 // flags
	size := syncsafeEncode(len(body))
	copy(header[6:10], size[:])

	return append(header, body...)
}

func encodeFrame(f outFrame) []byte {
	out := make([]byte, 10, 10+len(f.payload))
	copy(out[0:4], f.id)
	size := syncsafeEncode(len(f.payload))
	copy(out[4:8], size[:])
	out[8] = 0
	out[9] = 0
	return append(out, f.payload...)
}
