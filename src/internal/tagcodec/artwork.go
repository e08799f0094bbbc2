package tagcodec

import (
	"bytes"
	"crypto/sha256"

	"github.com/disintegration/imaging"
	"github.com/crateline/crateline/src/internal/domain"
)

// CandidatePicture is a container-agnostic view of one embedded picture,
// produced by each codec's reader before ArtworkFrom picks a winner.
type CandidatePicture struct {
	APICType  domain.APICType
	MediaType string
	Data      []byte
}

// ArtworkFrom implements §4.2 behavioral contract 5: pick CoverFront ->
// Media -> Leaflet -> Other -> first parseable, in that priority order, and
// compute a digest when configured.
//
// "First parseable" is decided by attempting a real decode via
// disintegration/imaging rather than trusting the declared MIME type — a
// picture that merely claims to be a JPEG but fails to decode is skipped.
// This is the one place image bytes are decoded at all; the decoded image
// itself is discarded immediately; full cover-image rendering stays out of
// scope per spec.md §1.
func ArtworkFrom(cfg Config, pics []CandidatePicture) domain.Artwork {
	if !cfg.Has(FlagEmbeddedArtwork) || len(pics) == 0 {
		return domain.Artwork{}
	}

	priority := func(t domain.APICType) int {
		switch t {
		case domain.APICCoverFront:
			return 0
		case domain.APICMedia:
			return 1
		case domain.APICLeaflet:
			return 2
		case domain.APICOther:
			return 3
		default:
			return 4
		}
	}

	best := -1
	bestPriority := 5
	for i, p := range pics {
		pr := priority(p.APICType)
		if pr >= bestPriority {
			continue
		}
		if _, err := imaging.Decode(bytes.NewReader(p.Data)); err != nil {
			// not parseable: never a candidate, regardless of its
			// declared APIC type priority.
			continue
		}
		best, bestPriority = i, pr
	}
	if best < 0 {
		return domain.Artwork{}
	}

	p := pics[best]
	art := domain.Artwork{
		Embedded:  true,
		APICType:  p.APICType,
		MediaType: p.MediaType,
		Size:      int64(len(p.Data)),
	}
	if cfg.Has(FlagArtworkDigest) || cfg.Has(FlagArtworkDigestSHA256) {
		sum := sha256.Sum256(p.Data)
		art.Digest = sum[:]
	}
	return art
}
