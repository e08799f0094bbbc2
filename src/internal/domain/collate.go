package domain

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// nameCollator backs the canonical name ordering used by titles and actors
// (§3 Canonicalization: "order is part of the domain contract"). A locale
// collator rather than a byte-wise comparison so accented and cased variants
// of the same name sort together the way a DJ browsing a library expects.
var nameCollator = collate.New(language.Und)

// nameLess reports whether a sorts before b under the collator, falling back
// to byte comparison to keep the order a strict weak ordering when the
// collator considers two distinct strings equal (e.g. differing only in a
// diacritic the collator folds away).
func nameLess(a, b string) bool {
	if a == b {
		return false
	}
	switch nameCollator.CompareString(a, b) {
	case -1:
		return true
	case 1:
		return false
	default:
		return a < b
	}
}
