package domain

import "strings"

// ActorRole is the function an Actor performed (§3 Actor).
type ActorRole int

const (
	RoleArtist ActorRole = iota
	RoleComposer
	RoleConductor
	RoleDirector
	RoleProducer
	RoleRemixer
	RoleMixer
	RoleDjMixer
	RoleEngineer
	RoleLyricist
	RoleWriter
	RoleArranger
)

// ActorKind distinguishes a role's summary/primary/secondary/sorting name.
type ActorKind int

const (
	ActorSummary ActorKind = iota
	ActorPrimary
	ActorSecondary
	ActorSorting
)

// Actor credits a person or entity with a role on a track or album.
type Actor struct {
	Name  string
	Role  ActorRole
	Kind  ActorKind
	Scope Scope
}

func actorLess(a, b Actor) bool {
	if a.Scope != b.Scope {
		return a.Scope < b.Scope
	}
	if a.Role != b.Role {
		return a.Role < b.Role
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return nameLess(a.Name, b.Name)
}

func actorEqual(a, b Actor) bool {
	return a.Scope == b.Scope && a.Role == b.Role && a.Kind == b.Kind && a.Name == b.Name
}

// CanonicalActors builds a Canonical[Actor] from unordered input.
func CanonicalActors(in []Actor) Canonical[Actor] {
	filtered := make([]Actor, 0, len(in))
	for _, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			continue
		}
		filtered = append(filtered, a)
	}
	return Canonicalize(filtered, actorLess, actorEqual)
}

// Summary returns the display actor string for a role within a scope: the
// Summary actor's name if one exists, otherwise all Primary actors joined
// with joinSep (§3 "summary vs primary").
func Summary(actors Canonical[Actor], scope Scope, role ActorRole, joinSep string) string {
	var primaries []string
	for _, a := range actors.Items() {
		if a.Scope != scope || a.Role != role {
			continue
		}
		if a.Kind == ActorSummary {
			return a.Name
		}
		if a.Kind == ActorPrimary {
			primaries = append(primaries, a.Name)
		}
	}
	return strings.Join(primaries, joinSep)
}
