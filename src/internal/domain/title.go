package domain

import "strings"

// TitleKind classifies what a Title names (§3 Title).
type TitleKind int

const (
	TitleMain TitleKind = iota
	TitleSub
	TitleWork
	TitleMovement
)

// Scope distinguishes whether a Title/Actor applies to the track or to its
// album (GLOSSARY "Actor scope").
type Scope int

const (
	ScopeTrack Scope = iota
	ScopeAlbum
)

// Title is a named heading on a track or album.
type Title struct {
	Name  string
	Kind  TitleKind
	Scope Scope
}

// titleLess implements the canonical ordering (scope, kind, name) from §3.
func titleLess(a, b Title) bool {
	if a.Scope != b.Scope {
		return a.Scope < b.Scope
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return nameLess(a.Name, b.Name)
}

func titleEqual(a, b Title) bool {
	return a.Scope == b.Scope && a.Kind == b.Kind && a.Name == b.Name
}

// CanonicalTitles builds a Canonical[Title] from unordered input, trimming
// blank entries (a title with an empty name carries no information and is
// dropped rather than sorted in).
func CanonicalTitles(in []Title) Canonical[Title] {
	filtered := make([]Title, 0, len(in))
	for _, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		filtered = append(filtered, t)
	}
	return Canonicalize(filtered, titleLess, titleEqual)
}
