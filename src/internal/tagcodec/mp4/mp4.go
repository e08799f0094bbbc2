// Package mp4 implements the MP4/iTunes-atom tag codec for M4A/M4B/MP4
// containers (§4.2). Reading is anchored on github.com/dhowden/tag's typed
// Metadata getters and Raw() map for the atoms it recognizes; a handful of
// official atoms it does not recognize (©wrk, ©mvn, ©mvi, ©mvc) and every
// freeform ("----") atom are picked up by the small supplemental box walker
// in atoms.go. No write-capable MP4 library exists in the retrieval pack, so
// the encoder that splices the ilst atom back into the file is hand-rolled,
// following the same box layout dhowden/tag's reader decodes.
package mp4

import (
	"bytes"

	"github.com/dhowden/tag"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// mp4MultiSeparator mirrors the ";" dhowden/tag itself uses to join repeated
// "data" children under a single freeform atom (§4.2 behavioral contract 1:
// "MP4 atoms natively hold sequences").
const mp4MultiSeparator = ";"

// Codec implements tagcodec.Codec for MP4/iTunes atom containers.
type Codec struct{}

var _ tagcodec.Codec = Codec{}

func (Codec) Import(cfg tagcodec.Config, raw []byte) (tagcodec.ImportResult, error) {
	meta, err := tag.ReadAtoms(bytes.NewReader(raw))
	if err != nil {
		return tagcodec.ImportResult{}, cerr.Wrap(cerr.KindParse, err, "corrupt MP4 atom tree")
	}

	supplemental, err := scanSupplementalAtoms(raw)
	if err != nil {
		// a malformed supplemental atom does not fail the whole import;
		// dhowden/tag's own parse already succeeded for the rest.
		supplemental = nil
	}

	r := reader{meta: meta, raw: meta.Raw(), supplemental: supplemental, cfg: cfg}
	return r.importTrack()
}

func (Codec) Export(cfg tagcodec.Config, t domain.Track, raw []byte) ([]byte, tagcodec.ExportOutcome, error) {
	moovPayload, ok := findChild(raw, 0, "moov")
	if !ok {
		return nil, 0, cerr.New(cerr.KindParse, "no moov atom found")
	}
	udtaPayload, ok := findChild(moovPayload, 0, "udta")
	if !ok {
		return nil, 0, cerr.New(cerr.KindParse, "no udta atom found")
	}
	metaPayload, ok := findChild(udtaPayload, 0, "meta")
	if !ok {
		return nil, 0, cerr.New(cerr.KindParse, "no meta atom found")
	}
	if len(metaPayload) < 4 {
		return nil, 0, cerr.New(cerr.KindParse, "truncated meta atom")
	}
	var ilstPayload []byte
	if p, ok := findChild(metaPayload, 4, "ilst"); ok {
		ilstPayload = p
	}

	w := writer{cfg: cfg}
	newIlst, err := w.exportTrack(t, ilstPayload)
	if err != nil {
		return nil, 0, err
	}

	if bytes.Equal(newIlst, ilstPayload) {
		return raw, tagcodec.ExportNotModified, nil
	}

	newMeta, err := rebuildContainer(metaPayload, 4, "ilst", newIlst)
	if err != nil {
		return nil, 0, err
	}
	newUdta, err := rebuildContainer(udtaPayload, 0, "meta", newMeta)
	if err != nil {
		return nil, 0, err
	}
	newMoov, err := rebuildContainer(moovPayload, 0, "udta", newUdta)
	if err != nil {
		return nil, 0, err
	}
	newFile, err := rebuildContainer(raw, 0, "moov", newMoov)
	if err != nil {
		return nil, 0, err
	}
	return newFile, tagcodec.ExportModified, nil
}

func splitMulti(s string) []string {
	if s == "" {
		return nil
	}
	parts := bytes.Split([]byte(s), []byte(mp4MultiSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := string(bytes.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinMulti(vs []string) string {
	out := ""
	for i, v := range vs {
		if i > 0 {
			out += mp4MultiSeparator
		}
		out += v
	}
	return out
}
