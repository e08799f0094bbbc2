package vorbis

import (
	"testing"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

func buildBlock(comments ...comment) []byte {
	return encodeCommentBlock(commentBlock{Vendor: "crateline test vendor", Comments: comments})
}

func TestImportRoundTripScenario(t *testing.T) {
	raw := buildBlock(
		comment{Key: "TITLE", Value: "Hello"},
		comment{Key: "ARTIST", Value: "A"},
		comment{Key: "ARTIST", Value: "B"},
		comment{Key: "bpm", Value: "128"},
	)

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	tr := res.Track

	if tr.Titles.Len() != 1 || tr.Titles.Items()[0].Name != "Hello" {
		t.Fatalf("unexpected titles: %+v", tr.Titles.Items())
	}
	actors := tr.Actors.Items()
	if len(actors) != 2 || actors[0].Name != "A" || actors[1].Name != "B" {
		t.Fatalf("unexpected actors: %+v", actors)
	}
	if tr.Metrics.TempoBpm == nil || *tr.Metrics.TempoBpm != 128.0 {
		t.Fatalf("unexpected tempo: %+v", tr.Metrics.TempoBpm)
	}
	// Vorbis carries BPM as a single fractional-capable field; no
	// fractional-vs-integer fallback flag applies here (unlike ID3/MP4).
	if tr.Metrics.HasFlag(domain.FlagTempoBpmNonFractional) {
		t.Fatalf("did not expect TEMPO_BPM_NON_FRACTIONAL for Vorbis BPM")
	}

	out, outcome, err := (Codec{}).Export(tagcodec.Config{}, tr, raw)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportModified {
		t.Fatalf("expected export to canonicalize the lowercase bpm key")
	}

	res2, err := (Codec{}).Import(tagcodec.Config{}, out)
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if res2.Track.Titles.Items()[0].Name != "Hello" {
		t.Fatalf("title did not round-trip: %+v", res2.Track.Titles.Items())
	}
	gotActors := res2.Track.Actors.Items()
	if len(gotActors) != 2 || gotActors[0].Name != "A" || gotActors[1].Name != "B" {
		t.Fatalf("actors did not round-trip: %+v", gotActors)
	}
	if res2.Track.Metrics.TempoBpm == nil || *res2.Track.Metrics.TempoBpm != 128.0 {
		t.Fatalf("tempo did not round-trip: %+v", res2.Track.Metrics.TempoBpm)
	}
}

func TestExportIsNoOpWhenUnchanged(t *testing.T) {
	raw := buildBlock(comment{Key: "TITLE", Value: "Hello"})

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	_, outcome, err := (Codec{}).Export(tagcodec.Config{}, res.Track, raw)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportNotModified {
		t.Fatalf("expected NotModified for an export that reproduces the original comments")
	}
}

func TestAlbumArtistFallbackKeys(t *testing.T) {
	raw := buildBlock(
		comment{Key: "ALBUM", Value: "Some Album"},
		comment{Key: "ENSEMBLE", Value: "The Ensemble"},
	)

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	actors := res.Track.Album.Actors.Items()
	if len(actors) != 1 || actors[0].Name != "The Ensemble" {
		t.Fatalf("expected ENSEMBLE fallback as album artist, got %+v", actors)
	}
	if res.Track.Album.Kind != domain.AlbumAlbum {
		t.Fatalf("expected album kind inferred from album artist, got %v", res.Track.Album.Kind)
	}
}

func TestCaseInsensitiveKeyLookup(t *testing.T) {
	raw := buildBlock(comment{Key: "Title", Value: "Mixed Case"})

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.Track.Titles.Len() != 1 || res.Track.Titles.Items()[0].Name != "Mixed Case" {
		t.Fatalf("expected case-insensitive TITLE lookup, got %+v", res.Track.Titles.Items())
	}
}
