// Package vorbis implements the Vorbis-comment tag codec for OGG/FLAC
// containers (§4.2). No Vorbis-comment library made it into the retrieval
// pack (github.com/dhowden/tag ships OGG/FLAC support, but its source files
// were not among the retrieved examples), so both directions are hand-rolled
// here, the same way the ID3v2.4 codec hand-rolls its encoder: the Vorbis
// comment block itself (vendor string + a length-prefixed KEY=VALUE list) is
// a short, unambiguously specified structure, not a reason to reach for the
// standard library's text/scanning helpers over first-principles parsing.
//
// Import/Export operate on the raw comment block (as found verbatim inside
// a FLAC METADATA_BLOCK_VORBIS_COMMENT, or inside an OggS Vorbis/Opus
// comment header once the page framing has been stripped) rather than on a
// full OGG page stream or FLAC metadata block sequence; demuxing those
// container layers is out of scope here in the same spirit as spec.md's
// raw-audio-decode non-goal.
package vorbis

import (
	"bytes"
	"encoding/binary"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// Codec implements tagcodec.Codec for Vorbis comment blocks.
type Codec struct{}

var _ tagcodec.Codec = Codec{}

func (Codec) Import(cfg tagcodec.Config, raw []byte) (tagcodec.ImportResult, error) {
	block, err := parseCommentBlock(raw)
	if err != nil {
		return tagcodec.ImportResult{}, cerr.Wrap(cerr.KindParse, err, "corrupt Vorbis comment block")
	}
	r := reader{block: block, cfg: cfg}
	return r.importTrack()
}

func (Codec) Export(cfg tagcodec.Config, t domain.Track, raw []byte) ([]byte, tagcodec.ExportOutcome, error) {
	block, err := parseCommentBlock(raw)
	if err != nil {
		return nil, 0, cerr.Wrap(cerr.KindParse, err, "corrupt Vorbis comment block")
	}

	w := writer{cfg: cfg}
	newBlock := w.exportTrack(t, block)

	encoded := encodeCommentBlock(newBlock)
	if bytes.Equal(encoded, raw) {
		return raw, tagcodec.ExportNotModified, nil
	}
	return encoded, tagcodec.ExportModified, nil
}

// commentBlock is the parsed form of a Vorbis comment header: a vendor
// string plus an ordered list of "KEY=VALUE" comments (keys retain their
// original casing as read; comparisons against them are case-insensitive
// per §4.2 behavioral contract 2).
type commentBlock struct {
	Vendor     string
	Comments   []comment
	HasFraming bool // trailing 0x01 framing bit, present in OGG but not FLAC
}

type comment struct {
	Key   string
	Value string
}

func parseCommentBlock(raw []byte) (commentBlock, error) {
	var cb commentBlock
	r := bytes.NewReader(raw)

	vendorLen, err := readUint32LE(r)
	if err != nil {
		return cb, err
	}
	vendor := make([]byte, vendorLen)
	if _, err := readFull(r, vendor); err != nil {
		return cb, err
	}
	cb.Vendor = string(vendor)

	count, err := readUint32LE(r)
	if err != nil {
		return cb, err
	}
	for i := uint32(0); i < count; i++ {
		n, err := readUint32LE(r)
		if err != nil {
			return cb, err
		}
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return cb, err
		}
		parts := bytes.SplitN(buf, []byte("="), 2)
		if len(parts) != 2 {
			continue // malformed comment entry, skip rather than fail the file
		}
		cb.Comments = append(cb.Comments, comment{Key: string(parts[0]), Value: string(parts[1])})
	}

	if b, err := readByte(r); err == nil && b == 0x01 {
		cb.HasFraming = true
	}
	return cb, nil
}

func encodeCommentBlock(cb commentBlock) []byte {
	var buf bytes.Buffer
	writeUint32LE(&buf, uint32(len(cb.Vendor)))
	buf.WriteString(cb.Vendor)
	writeUint32LE(&buf, uint32(len(cb.Comments)))
	for _, c := range cb.Comments {
		entry := c.Key + "=" + c.Value
		writeUint32LE(&buf, uint32(len(entry)))
		buf.WriteString(entry)
	}
	if cb.HasFraming {
		buf.WriteByte(0x01)
	}
	return buf.Bytes()
}

func readUint32LE(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		if err != nil {
			return n, err
		}
		n += m
	}
	return n, nil
}

func readByte(r *bytes.Reader) (byte, error) {
	return r.ReadByte()
}
