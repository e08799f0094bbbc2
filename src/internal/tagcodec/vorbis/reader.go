package vorbis

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// keyFold is the case-folding caser backing "Vorbis comment keys are
// compared case-insensitively on read" (§4.2 behavioral contract 2); a
// locale-aware fold rather than strings.EqualFold's simple ASCII-biased
// rule, since Vorbis keys are free-form UTF-8.
var keyFold = cases.Fold()

type reader struct {
	block  commentBlock
	cfg    tagcodec.Config
	issues []tagcodec.Issue
}

func (r *reader) warn(offender, format string, args ...any) {
	r.issues = append(r.issues, tagcodec.Issue{Offender: offender, Message: fmt.Sprintf(format, args...)})
}

// get returns every value for key, case-insensitively, in file order (§4.2
// behavioral contract 2).
func (r *reader) get(key string) []string {
	var out []string
	for _, c := range r.block.Comments {
		if keyFold.String(c.Key) == keyFold.String(key) {
			out = append(out, c.Value)
		}
	}
	return out
}

// first returns the first value among the given fallback keys, tried in
// order.
func (r *reader) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if vs := r.get(k); len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

func (r *reader) importTrack() (tagcodec.ImportResult, error) {
	var t domain.Track
	var titles []domain.Title
	var actors []domain.Actor
	var albumTitles []domain.Title
	var albumActors []domain.Actor
	var tags []domain.Tag

	if s, ok := r.first("TITLE"); ok {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeTrack})
	}
	if s, ok := r.first("SUBTITLE"); ok {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleSub, Scope: domain.ScopeTrack})
	}
	if s, ok := r.first("WORK"); ok {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleWork, Scope: domain.ScopeTrack})
	}
	if s, ok := r.first("MOVEMENTNAME"); ok {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleMovement, Scope: domain.ScopeTrack})
	}

	for _, v := range r.get("ARTIST") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}
	for _, v := range r.get("COMPOSER") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleComposer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}
	for _, v := range r.get("CONDUCTOR") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleConductor, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}
	for _, v := range r.get("REMIXER") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleRemixer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}
	for _, v := range r.get("LYRICIST") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleLyricist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}
	for _, v := range r.get("WRITER") {
		actors = append(actors, domain.Actor{Name: v, Role: domain.RoleWriter, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
	}

	if s, ok := r.first("ALBUM"); ok {
		albumTitles = append(albumTitles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeAlbum})
	}
	for _, v := range r.get("ALBUMARTIST") {
		albumActors = append(albumActors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeAlbum})
	}
	if len(albumActors) == 0 {
		for _, key := range []string{"ALBUM_ARTIST", "ALBUM ARTIST", "ENSEMBLE"} {
			for _, v := range r.get(key) {
				albumActors = append(albumActors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeAlbum})
			}
			if len(albumActors) > 0 {
				break
			}
		}
	}

	albumKind := domain.AlbumUnknown
	if s, ok := r.first("COMPILATION"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n != 0 {
			albumKind = domain.AlbumCompilation
		}
	}

	if s, ok := r.first("TRACKNUMBER"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Track.Number = &n
		} else {
			r.warn("TRACKNUMBER", "not an integer: %q", s)
		}
	}
	if s, ok := r.first("TRACKTOTAL", "TOTALTRACKS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Track.Total = &n
		}
	}
	if s, ok := r.first("DISCNUMBER"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Disc.Number = &n
		}
	}
	if s, ok := r.first("DISCTOTAL"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Disc.Total = &n
		}
	}
	if s, ok := r.first("MOVEMENT"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Movement.Number = &n
		}
	}
	if s, ok := r.first("MOVEMENTTOTAL"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Movement.Total = &n
		}
	}

	t.Metrics.Flags = map[domain.MetricsFlag]bool{}
	if s, ok := r.first("BPM", "TEMPO"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			t.Metrics.TempoBpm = &f
		} else {
			r.warn("BPM", "not a number: %q", s)
		}
	}

	if s, ok := r.first("INITIALKEY", "KEY"); ok {
		tags = append(tags, domain.Tag{Facet: "key", Label: s})
	}
	if s, ok := r.first("REPLAYGAIN_TRACK_GAIN"); ok {
		tags = append(tags, domain.Tag{Facet: "replaygain_track_gain", Label: s})
	}
	if s, ok := r.first("ENCODEDBY"); ok {
		t.MediaSource.Audio.Encoder = s
	}
	if s, ok := r.first("RELEASEDATE"); ok {
		if ms, err := parseVorbisDate(s); err == nil {
			t.ReleasedAt = &ms
		} else {
			r.warn("RELEASEDATE", "%v", err)
		}
	} else if s, ok := r.first("RELEASEYEAR"); ok {
		if ms, err := parseVorbisDate(s); err == nil {
			t.ReleasedAt = &ms
		} else {
			r.warn("RELEASEYEAR", "%v", err)
		}
	}
	if s, ok := r.first("LABEL", "PUBLISHER", "ORGANIZATION"); ok {
		t.Publisher = s
	}
	if s, ok := r.first("COPYRIGHT"); ok {
		t.Copyright = s
	}
	if s, ok := r.first("COMMENT"); ok {
		tags = append(tags, domain.Tag{Facet: "comment", Label: s})
	}
	for _, v := range r.get("GENRE") {
		tags = append(tags, domain.Tag{Facet: "genre", Label: v})
	}
	if s, ok := r.first("MOOD"); ok {
		tags = append(tags, domain.Tag{Facet: "mood", Label: s})
	}
	if s, ok := r.first("GROUPING"); ok {
		tags = append(tags, domain.Tag{Facet: "grouping", Label: s})
	}
	if s, ok := r.first("ISRC"); ok {
		tags = append(tags, domain.Tag{Facet: "isrc", Label: s})
	}
	if s, ok := r.first("MIXXX_CUSTOM_TAGS"); ok && r.cfg.Has(tagcodec.FlagMixxxCustomTags) {
		tags = append(tags, domain.Tag{Facet: "mixxx_custom_tags", Label: s})
	}
	if s, ok := r.first("AOIDE_TAGS"); ok && r.cfg.Has(tagcodec.FlagAoideTags) {
		tags = append(tags, domain.Tag{Facet: "aoide_tags", Label: s})
	}

	if albumKind == domain.AlbumUnknown && len(albumActors) > 0 {
		albumKind = domain.AlbumAlbum
	}

	t.Titles = domain.CanonicalTitles(titles)
	t.Actors = domain.CanonicalActors(actors)
	t.Album = domain.Album{
		Titles: domain.CanonicalTitles(albumTitles),
		Actors: domain.CanonicalActors(albumActors),
		Kind:   albumKind,
	}
	t.Tags = domain.CanonicalTags(tags)
	// Vorbis comment blocks carry no embedded pictures of their own; FLAC's
	// sibling METADATA_BLOCK_PICTURE lives outside the comment block this
	// codec operates on, so artwork import is a no-op here.
	t.MediaSource.Artwork = tagcodec.ArtworkFrom(r.cfg, nil)

	return tagcodec.ImportResult{Track: t, Issues: r.issues}, nil
}
