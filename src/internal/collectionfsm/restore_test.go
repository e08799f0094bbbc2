package collectionfsm

import (
	"testing"

	"github.com/crateline/crateline/src/internal/domain"
)

func collectionWithRoot(root string) domain.Collection {
	return domain.Collection{
		Header:      domain.NewEntityHeader(),
		MediaSource: domain.MediaSourceConfig{RootURL: root},
	}
}

func TestPickRestoreCandidatePrefersLongestContainingRoot(t *testing.T) {
	all := []domain.Collection{
		collectionWithRoot("file:///music/"),
		collectionWithRoot("file:///music/rock/"),
	}
	rctx := RestoringFromMusicDirectoryContext{MusicDir: "file:///music/rock/indie/"}

	best, nested := pickRestoreCandidate(all, rctx)
	if best == nil {
		t.Fatal("expected a containing collection")
	}
	if best.MediaSource.RootURL != "file:///music/rock/" {
		t.Fatalf("expected the closer (longer) root to win, got %q", best.MediaSource.RootURL)
	}
	if nested != nil {
		t.Fatalf("did not expect a nested conflict when a containing root was found")
	}
}

// Scenario 2 from spec §8: collection A rooted at /music/rock/, restoring
// /music/ with nested_music_dirs=Deny reports A as a nested conflict.
func TestPickRestoreCandidateReportsNestedConflict(t *testing.T) {
	a := collectionWithRoot("file:///music/rock/")
	rctx := RestoringFromMusicDirectoryContext{
		MusicDir:        "file:///music/",
		NestedMusicDirs: Deny,
	}

	best, nested := pickRestoreCandidate([]domain.Collection{a}, rctx)
	if best != nil {
		t.Fatalf("expected no containing collection, got %+v", best)
	}
	if len(nested) != 1 || nested[0] != a.Header.Uid {
		t.Fatalf("expected collection A reported as the sole nested conflict, got %v", nested)
	}
}

func TestPickRestoreCandidatePermitsNestedWhenAllowed(t *testing.T) {
	a := collectionWithRoot("file:///music/rock/")
	rctx := RestoringFromMusicDirectoryContext{
		MusicDir:        "file:///music/",
		NestedMusicDirs: Permit,
	}

	best, nested := pickRestoreCandidate([]domain.Collection{a}, rctx)
	if best != nil || nested != nil {
		t.Fatalf("expected no candidate and no conflict when nested dirs are permitted, got best=%v nested=%v", best, nested)
	}
}

func TestPickRestoreCandidateRespectsKindFilter(t *testing.T) {
	archive := domain.CollectionKind("archive")
	mix := domain.CollectionKind("mix")
	a := collectionWithRoot("file:///music/")
	a.Kind = mix

	rctx := RestoringFromMusicDirectoryContext{MusicDir: "file:///music/", Kind: &archive}
	best, nested := pickRestoreCandidate([]domain.Collection{a}, rctx)
	if best != nil || nested != nil {
		t.Fatalf("expected the kind-mismatched collection to be ignored entirely, got best=%v nested=%v", best, nested)
	}
}

func TestNormalizeDirURLAddsTrailingSlash(t *testing.T) {
	if got := normalizeDirURL("file:///music"); got != "file:///music/" {
		t.Fatalf("expected trailing slash appended, got %q", got)
	}
	if got := normalizeDirURL("file:///music/"); got != "file:///music/" {
		t.Fatalf("expected idempotent normalization, got %q", got)
	}
}

func TestDeriveTitleFromDirUsesLastSegment(t *testing.T) {
	if got := deriveTitleFromDir("file:///music/my-mixes/"); got != "my-mixes" {
		t.Fatalf("expected last path segment as title, got %q", got)
	}
}
