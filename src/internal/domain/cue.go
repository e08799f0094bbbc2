package domain

// CueKind distinguishes cue point roles (hot cue, loop, grid marker, ...).
// The exact vocabulary is DJ-software-specific; we keep it an open string so
// Serato/Mixxx-specific kinds round-trip without a lossy mapping.
type CueKind string

// Cue is a position marker within a track (hot cues, loops, grid markers),
// addressed by (bank, slot) and unique within a track on that pair (§3 Cue).
type Cue struct {
	BankIdx       int
	SlotIdx       int
	InPositionMs  *int64
	OutPositionMs *int64
	Kind          CueKind
	Label         string
	Color         *uint32
}

func cueLess(a, b Cue) bool {
	if a.BankIdx != b.BankIdx {
		return a.BankIdx < b.BankIdx
	}
	return a.SlotIdx < b.SlotIdx
}

func cueKeyEqual(a, b Cue) bool {
	return a.BankIdx == b.BankIdx && a.SlotIdx == b.SlotIdx
}

// CanonicalCues builds a Canonical[Cue] ordered by (bank_idx, slot_idx).
// Both are unique within a track; when two cues collide on the key, the
// first one in input order wins (stable sort keeps insertion order within a
// tie, so an earlier sidecar entry shadows a later duplicate of the same
// slot).
func CanonicalCues(in []Cue) Canonical[Cue] {
	return Canonicalize(in, cueLess, cueKeyEqual)
}
