package domain

import "testing"

func TestCanonicalTitlesOrderAndDedup(t *testing.T) {
	in := []Title{
		{Name: "Reprise", Kind: TitleMovement, Scope: ScopeTrack},
		{Name: "Intro", Kind: TitleMain, Scope: ScopeTrack},
		{Name: "Intro", Kind: TitleMain, Scope: ScopeTrack}, // duplicate
		{Name: "", Kind: TitleSub, Scope: ScopeTrack},       // blank, dropped
		{Name: "Album Edit", Kind: TitleMain, Scope: ScopeAlbum},
	}

	got := CanonicalTitles(in)
	if got.Len() != 3 {
		t.Fatalf("expected 3 titles after dedup/drop, got %d: %+v", got.Len(), got.Items())
	}

	items := got.Items()
	// ScopeTrack sorts before ScopeAlbum; within ScopeTrack, Main(0) before Movement(3).
	if items[0].Name != "Intro" || items[0].Scope != ScopeTrack {
		t.Fatalf("unexpected first element: %+v", items[0])
	}
	if items[1].Name != "Reprise" {
		t.Fatalf("unexpected second element: %+v", items[1])
	}
	if items[2].Scope != ScopeAlbum {
		t.Fatalf("unexpected third element: %+v", items[2])
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	in := []Title{{Name: "B"}, {Name: "A"}, {Name: "A"}}
	once := CanonicalTitles(in)
	twice := CanonicalTitles(once.Items())
	if !Equal(once, twice, titleEqual) {
		t.Fatalf("canonicalization is not idempotent: %+v vs %+v", once.Items(), twice.Items())
	}
}

func TestEqualComparesPairwiseInOrder(t *testing.T) {
	a := CanonicalTitles([]Title{{Name: "A"}, {Name: "B"}})
	b := CanonicalTitles([]Title{{Name: "B"}, {Name: "A"}})
	if !Equal(a, b, titleEqual) {
		t.Fatalf("expected equal after canonical sort regardless of input order")
	}
}

func TestSummaryPrefersSummaryActor(t *testing.T) {
	actors := CanonicalActors([]Actor{
		{Name: "Alice", Role: RoleArtist, Kind: ActorPrimary, Scope: ScopeTrack},
		{Name: "Bob", Role: RoleArtist, Kind: ActorPrimary, Scope: ScopeTrack},
	})
	if got := Summary(actors, ScopeTrack, RoleArtist, ", "); got != "Alice, Bob" {
		t.Fatalf("expected joined primaries, got %q", got)
	}

	withSummary := CanonicalActors([]Actor{
		{Name: "Alice", Role: RoleArtist, Kind: ActorPrimary, Scope: ScopeTrack},
		{Name: "Bob", Role: RoleArtist, Kind: ActorPrimary, Scope: ScopeTrack},
		{Name: "Alice & Bob", Role: RoleArtist, Kind: ActorSummary, Scope: ScopeTrack},
	})
	if got := Summary(withSummary, ScopeTrack, RoleArtist, ", "); got != "Alice & Bob" {
		t.Fatalf("expected summary actor to win, got %q", got)
	}
}

func TestTagsMapGroupsByFacetStably(t *testing.T) {
	tags := CanonicalTags([]Tag{
		{Label: "rock"},
		{Facet: "mood", Label: "sad"},
		{Facet: "mood", Label: "energetic"},
		{Facet: "genre", Label: "house"},
	})
	tm := NewTagsMap(tags)
	if len(tm.Get("mood")) != 2 {
		t.Fatalf("expected 2 mood tags, got %d", len(tm.Get("mood")))
	}
	if len(tm.Get("")) != 1 {
		t.Fatalf("expected 1 plain tag, got %d", len(tm.Get("")))
	}
}

func TestTrackIsUnsynchronized(t *testing.T) {
	rev7 := Revision(7)
	var tr Track
	tr.Header.Revision = 7

	if !tr.IsUnsynchronized() {
		t.Fatalf("track with nil content revision must be unsynchronized")
	}

	contentRev := int64(42)
	tr.MediaSource.ContentLink.Revision = &contentRev
	if !tr.IsUnsynchronized() {
		t.Fatalf("track with nil last-synchronized rev must be unsynchronized")
	}

	stale := Revision(5)
	tr.LastSynchronizedRev = &stale
	if !tr.IsUnsynchronized() {
		t.Fatalf("stale last-synchronized rev must be unsynchronized")
	}

	tr.LastSynchronizedRev = &rev7
	if tr.IsUnsynchronized() {
		t.Fatalf("matching last-synchronized rev must be synchronized")
	}
}
