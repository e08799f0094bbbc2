// Package domain holds the core entities of the catalogue (tracks,
// collections, media sources, tags, actors, titles, cues) and the
// canonicalization rules that every write path must apply before
// persisting and every read path relies on when loading.
package domain

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Uid is an opaque 128-bit identifier minted once at entity creation and
// never reused.
type Uid uuid.UUID

// NewUid mints a fresh random Uid.
func NewUid() Uid { return Uid(uuid.New()) }

// IsNil reports whether u is the zero value.
func (u Uid) IsNil() bool { return u == Uid{} }

func (u Uid) String() string { return uuid.UUID(u).String() }

// ParseUid parses the canonical string form of a Uid.
func ParseUid(s string) (Uid, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Uid{}, errors.Wrapf(err, "invalid uid %q", s)
	}
	return Uid(id), nil
}

// Revision is the monotonic per-entity counter that drives optimistic
// concurrency control (§3 Entity identity).
type Revision uint64

// Next returns the revision following r.
func (r Revision) Next() Revision { return r + 1 }

// EntityHeader identifies a persistable root (collection, track, playlist).
type EntityHeader struct {
	Uid      Uid
	Revision Revision
}

// NewEntityHeader mints a header at revision 0, per §3 Lifecycle.
func NewEntityHeader() EntityHeader {
	return EntityHeader{Uid: NewUid(), Revision: 0}
}

// Bump returns a header with the same uid and the next revision.
func (h EntityHeader) Bump() EntityHeader {
	return EntityHeader{Uid: h.Uid, Revision: h.Revision.Next()}
}
