package id3

import (
	"strings"
	"testing"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// buildTag assembles a minimal ID3v2.4 tag (no padding) from a set of
// already-encoded text frames, for use as fixture input.
func buildTag(frames ...outFrame) []byte {
	return encodeV24(frames)
}

func TestImportRoundTripScenario1(t *testing.T) {
	// §8 scenario 1: TIT2="Hello", TPE1="A\0B", TBPM="128", no TXXX:BPM.
	tag := buildTag(
		textFrame("TIT2", "Hello"),
		textFrame("TPE1", "A"+multiFieldSeparator+"B"),
		textFrame("TBPM", "128"),
	)

	res, err := (Codec{}).Import(tagcodec.Config{}, tag)
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

	out, outcome, err := (Codec{}).Export(tagcodec.Config{}, tr, nil)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportModified {
		t.Fatalf("expected export against empty tag to modify")
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

	// the exported TXXX:BPM carries the fractional form.
	if !strings.Contains(string(out), "BPM") {
		t.Fatalf("expected a BPM frame in export output")
	}
}

func TestExportIsNoOpWhenUnchanged(t *testing.T) {
	tag := buildTag(textFrame("TIT2", "Hello"))

	res, err := (Codec{}).Import(tagcodec.Config{}, tag)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	_, outcome, err := (Codec{}).Export(tagcodec.Config{}, res.Track, tag)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if outcome != tagcodec.ExportNotModified {
		t.Fatalf("expected NotModified for an export that reproduces the original tag")
	}
}

func TestItunesGroupingMovementWorkFlag(t *testing.T) {
	tag := buildTag(textFrame("TIT1", "My Work"))

	cfg := tagcodec.Config{Flags: map[tagcodec.ImportFlag]bool{tagcodec.FlagItunesGroupingMovementWork: true}}
	res, err := (Codec{}).Import(cfg, tag)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	found := false
	for _, ti := range res.Track.Titles.Items() {
		if ti.Kind == domain.TitleWork && ti.Name == "My Work" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected TIT1 imported as Work when flag set, got %+v", res.Track.Titles.Items())
	}

	cfgLegacy := tagcodec.Config{}
	res2, err := (Codec{}).Import(cfgLegacy, tag)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res2.Track.Tags.Len() == 0 || res2.Track.Tags.Items()[0].Label != "My Work" {
		t.Fatalf("expected TIT1 imported as Grouping when flag unset, got %+v", res2.Track.Tags.Items())
	}
}
