package store

import (
	"sort"

	"github.com/crateline/crateline/src/internal/domain"
)

func flagsToStrings(flags map[domain.MetricsFlag]bool) []string {
	var out []string
	for f, on := range flags {
		if on {
			out = append(out, string(f))
		}
	}
	sort.Strings(out)
	return out
}

func stringsToFlags(ss []string) map[domain.MetricsFlag]bool {
	out := map[domain.MetricsFlag]bool{}
	for _, s := range ss {
		out[domain.MetricsFlag(s)] = true
	}
	return out
}

// titlesFromRows/actorsFromRows/tagsFromRows/cuesFromRows rebuild
// domain.Canonical[T] values from scanned child-table rows exclusively
// through the domain package's Canonicalize-backed constructors, never via
// a bare struct literal, so the ordering/uniqueness invariant those types
// enforce is never bypassed.

func titlesFromRows(rows []domain.Title) domain.Canonical[domain.Title] {
	return domain.CanonicalTitles(rows)
}

func actorsFromRows(rows []domain.Actor) domain.Canonical[domain.Actor] {
	return domain.CanonicalActors(rows)
}

func tagsFromRows(rows []domain.Tag) domain.Canonical[domain.Tag] {
	return domain.CanonicalTags(rows)
}

func cuesFromRows(rows []domain.Cue) domain.Canonical[domain.Cue] {
	return domain.CanonicalCues(rows)
}

func splitTitlesByScope(titles domain.Canonical[domain.Title], scope domain.Scope) []domain.Title {
	var out []domain.Title
	for _, t := range titles.Items() {
		if t.Scope == scope {
			out = append(out, t)
		}
	}
	return out
}

func splitActorsByScope(actors domain.Canonical[domain.Actor], scope domain.Scope) []domain.Actor {
	var out []domain.Actor
	for _, a := range actors.Items() {
		if a.Scope == scope {
			out = append(out, a)
		}
	}
	return out
}

func parseUid(s string) (domain.Uid, error) {
	return domain.ParseUid(s)
}
