package domain

// PlaylistEntry references a track (by uid) at a position in a playlist,
// optionally annotated — the supplemented feature named in SPEC_FULL.md
// (original_source/storage/track and webcli both treat playlists as
// first-class, even though spec.md's body concentrates on tracks).
type PlaylistEntry struct {
	TrackUid Uid
	Title    string // denormalized display title, e.g. from an m3u #EXTINF
	Notes    string
}

// Playlist is an ordered, named list of track references.
type Playlist struct {
	Header  EntityHeader
	Title   string
	Kind    CollectionKind
	Color   *uint32
	Entries []PlaylistEntry
}
