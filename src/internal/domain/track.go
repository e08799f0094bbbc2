package domain

// AlbumKind classifies how a set of tracks relates as an album
// (§3 Track.album).
type AlbumKind int

const (
	AlbumUnknown AlbumKind = iota
	AlbumAlbum
	AlbumSingle
	AlbumCompilation
)

// Album carries the subset of album-scoped fields embedded in a track body.
type Album struct {
	Titles Canonical[Title]
	Actors Canonical[Actor]
	Kind   AlbumKind
}

// IndexPair is an (n, total) pair such as track-number/track-total (§3
// Track.indexes).
type IndexPair struct {
	Number *int
	Total  *int
}

// Indexes groups the three numbered positions a track can carry.
type Indexes struct {
	Track    IndexPair
	Disc     IndexPair
	Movement IndexPair
}

// MetricsFlag records a non-authoritative fact about how a metric was
// derived (§4.2.4 TEMPO_BPM_NON_FRACTIONAL).
type MetricsFlag string

const (
	// FlagTempoBpmNonFractional records that tempo_bpm came from an
	// integer-only source field rather than the preferred fractional one.
	FlagTempoBpmNonFractional MetricsFlag = "TEMPO_BPM_NON_FRACTIONAL"
)

// Metrics are the musically-derived, as opposed to transport-derived,
// measurements of a track (§3 Track.metrics).
type Metrics struct {
	TempoBpm    *float64
	KeySignature *int16 // nil = unknown key; see NOTES on sentinel handling
	Flags       map[MetricsFlag]bool
}

// HasFlag reports whether f is set.
func (m Metrics) HasFlag(f MetricsFlag) bool { return m.Flags != nil && m.Flags[f] }

// Track is the central catalogued entity: exactly one per MediaSource
// (§3 Track).
type Track struct {
	Header EntityHeader

	MediaSource MediaSource

	Titles Canonical[Title]
	Actors Canonical[Actor]
	Album  Album

	Indexes Indexes

	Tags Canonical[Tag]
	Cues Canonical[Cue]

	Color *uint32

	Metrics Metrics

	RecordedAt      *int64
	ReleasedAt      *int64
	ReleasedOrigAt  *int64
	Publisher       string
	Copyright       string
	AdvisoryRating  *int

	// LastSynchronizedRev is the entity revision at which the file content
	// was last ingested into this body (§3 "catalogue drifted from file").
	LastSynchronizedRev *Revision
}

// IsUnsynchronized reports whether t needs re-importing per §4.5 "Finding
// unsynchronized tracks".
func (t Track) IsUnsynchronized() bool {
	if t.MediaSource.ContentLink.Revision == nil {
		return true
	}
	if t.LastSynchronizedRev == nil {
		return true
	}
	return *t.LastSynchronizedRev != t.Header.Revision
}

// BodyEqual performs the structural comparison over canonical forms that
// drives "no-op update" detection (§4.1, §4.5 rule 4). It intentionally
// excludes Header and LastSynchronizedRev: those are bookkeeping fields, not
// content. Of the media source it compares the content type, the audio
// properties, the artwork and the advisory rating; the row id, the content
// link and collected_at are bookkeeping and are not compared.
func BodyEqual(a, b Track) bool {
	if !Equal(a.Titles, b.Titles, titleEqual) || !Equal(b.Titles, a.Titles, titleEqual) {
		return false
	}
	if !Equal(a.Actors, b.Actors, actorEqual) {
		return false
	}
	if !Equal(a.Album.Titles, b.Album.Titles, titleEqual) {
		return false
	}
	if !Equal(a.Album.Actors, b.Album.Actors, actorEqual) {
		return false
	}
	if a.Album.Kind != b.Album.Kind {
		return false
	}
	for _, p := range [][2]IndexPair{
		{a.Indexes.Track, b.Indexes.Track},
		{a.Indexes.Disc, b.Indexes.Disc},
		{a.Indexes.Movement, b.Indexes.Movement},
	} {
		if !intPtrEqual(p[0].Number, p[1].Number) || !intPtrEqual(p[0].Total, p[1].Total) {
			return false
		}
	}
	if !Equal(a.Tags, b.Tags, tagEqual) {
		return false
	}
	colorEqual := func(x, y *uint32) bool { return (x == nil) == (y == nil) && (x == nil || *x == *y) }
	cueEqual := func(x, y Cue) bool {
		return cueKeyEqual(x, y) && ptrEqual(x.InPositionMs, y.InPositionMs) &&
			ptrEqual(x.OutPositionMs, y.OutPositionMs) && x.Kind == y.Kind && x.Label == y.Label &&
			colorEqual(x.Color, y.Color)
	}
	if !Equal(a.Cues, b.Cues, cueEqual) {
		return false
	}
	if !colorEqual(a.Color, b.Color) {
		return false
	}
	if !metricsEqual(a.Metrics, b.Metrics) {
		return false
	}
	if !ptrEqual(a.RecordedAt, b.RecordedAt) || !ptrEqual(a.ReleasedAt, b.ReleasedAt) || !ptrEqual(a.ReleasedOrigAt, b.ReleasedOrigAt) {
		return false
	}
	if a.Publisher != b.Publisher || a.Copyright != b.Copyright {
		return false
	}
	if !intPtrEqual(a.AdvisoryRating, b.AdvisoryRating) {
		return false
	}
	if !mediaSourceBodyEqual(a.MediaSource, b.MediaSource) {
		return false
	}
	return true
}

func metricsEqual(a, b Metrics) bool {
	if !floatPtrEqual(a.TempoBpm, b.TempoBpm) {
		return false
	}
	if (a.KeySignature == nil) != (b.KeySignature == nil) {
		return false
	}
	if a.KeySignature != nil && *a.KeySignature != *b.KeySignature {
		return false
	}
	if len(a.Flags) != len(b.Flags) {
		return false
	}
	for f, v := range a.Flags {
		if b.Flags[f] != v {
			return false
		}
	}
	return true
}

func mediaSourceBodyEqual(a, b MediaSource) bool {
	if a.ContentType != b.ContentType {
		return false
	}
	if !floatPtrEqual(a.Audio.LoudnessLUFS, b.Audio.LoudnessLUFS) {
		return false
	}
	aAudio, bAudio := a.Audio, b.Audio
	aAudio.LoudnessLUFS, bAudio.LoudnessLUFS = nil, nil
	if aAudio != bAudio {
		return false
	}
	if a.Artwork.Embedded != b.Artwork.Embedded || a.Artwork.APICType != b.Artwork.APICType ||
		a.Artwork.MediaType != b.Artwork.MediaType || a.Artwork.Size != b.Artwork.Size ||
		string(a.Artwork.Digest) != string(b.Artwork.Digest) {
		return false
	}
	if !intPtrEqual(a.AdvisoryRating, b.AdvisoryRating) {
		return false
	}
	return true
}

func ptrEqual(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func intPtrEqual(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
