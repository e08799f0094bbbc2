package mp4

import (
	"testing"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// buildFile assembles a minimal MP4 atom tree (ftyp + moov/udta/meta/ilst)
// from a set of already-encoded ilst item atoms, for use as fixture input.
func buildFile(items ...box) []byte {
	ftyp := encodeBox(box{Type: "ftyp", Data: []byte("M4A \x00\x00\x00\x00M4A ")})
	ilst := encodeBoxes(items)
	meta := encodeBox(box{Type: "meta", Data: append([]byte{0, 0, 0, 0}, encodeBox(box{Type: "ilst", Data: ilst})...)})
	udta := encodeBox(box{Type: "udta", Data: meta})
	moov := encodeBox(box{Type: "moov", Data: udta})
	return append(ftyp, moov...)
}

func TestImportRoundTripScenario(t *testing.T) {
	raw := buildFile(
		textItem("\xa9nam", "Hello"),
		textItem("\xa9ART", "A"+mp4MultiSeparator+"B"),
		uint8Item("tmpo", []byte{0, 128}),
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
	if !tr.Metrics.HasFlag(domain.FlagTempoBpmNonFractional) {
		t.Fatalf("expected TEMPO_BPM_NON_FRACTIONAL flag")
	}

	out, outcome, err := (Codec{}).Export(tagcodec.Config{}, tr, raw)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportModified {
		t.Fatalf("expected export to modify (BPM fractional atom added)")
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
	raw := buildFile(textItem("\xa9nam", "Hello"))

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	_, outcome, err := (Codec{}).Export(tagcodec.Config{}, res.Track, raw)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportNotModified {
		t.Fatalf("expected NotModified for an export that reproduces the original atoms")
	}
}

func TestWorkAndSubtitleFreeformAtoms(t *testing.T) {
	raw := buildFile(
		textItem("\xa9wrk", "My Work"),
		freeformItem("com.apple.iTunes", "SUBTITLE", "My Subtitle"),
	)

	res, err := (Codec{}).Import(tagcodec.Config{}, raw)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	var gotWork, gotSub bool
	for _, ti := range res.Track.Titles.Items() {
		if ti.Kind == domain.TitleWork && ti.Name == "My Work" {
			gotWork = true
		}
		if ti.Kind == domain.TitleSub && ti.Name == "My Subtitle" {
			gotSub = true
		}
	}
	if !gotWork {
		t.Fatalf("expected ©wrk imported as Work, got %+v", res.Track.Titles.Items())
	}
	if !gotSub {
		t.Fatalf("expected SUBTITLE freeform atom imported as Sub, got %+v", res.Track.Titles.Items())
	}
}
