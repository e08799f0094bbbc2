package vorbis

import (
	"strconv"
	"strings"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// managedKeys are the canonical keys the exporter fully regenerates; any
// existing comment whose key case-insensitively matches one (including
// its fallback aliases) is dropped before the new value (if any) is
// written in canonical casing (§4.2 behavioral contract 2).
var managedKeys = map[string]bool{
	"TITLE": true, "SUBTITLE": true, "WORK": true, "MOVEMENTNAME": true,
	"ARTIST": true, "COMPOSER": true, "CONDUCTOR": true, "REMIXER": true,
	"LYRICIST": true, "WRITER": true, "ALBUM": true,
	"ALBUMARTIST": true, "ALBUM_ARTIST": true, "ALBUM ARTIST": true, "ENSEMBLE": true,
	"COMPILATION": true, "RELEASEDATE": true, "RELEASEYEAR": true,
	"LABEL": true, "PUBLISHER": true, "ORGANIZATION": true, "COPYRIGHT": true,
	"TRACKNUMBER": true, "TRACKTOTAL": true, "TOTALTRACKS": true,
	"DISCNUMBER": true, "DISCTOTAL": true,
	"MOVEMENT": true, "MOVEMENTTOTAL": true,
	"BPM": true, "TEMPO": true,
	"INITIALKEY": true, "KEY": true, "REPLAYGAIN_TRACK_GAIN": true,
	"ENCODEDBY": true, "COMMENT": true, "GENRE": true, "MOOD": true,
	"GROUPING": true, "ISRC": true,
	"MIXXX_CUSTOM_TAGS": true, "AOIDE_TAGS": true,
}

type writer struct {
	cfg tagcodec.Config
}

func (w writer) exportTrack(t domain.Track, existing commentBlock) commentBlock {
	out := commentBlock{Vendor: existing.Vendor, HasFraming: existing.HasFraming}
	for _, c := range existing.Comments {
		if !managedKeys[strings.ToUpper(c.Key)] {
			out.Comments = append(out.Comments, c)
		}
	}

	add := func(key, value string) {
		if value == "" {
			return
		}
		out.Comments = append(out.Comments, comment{Key: key, Value: value})
	}

	for _, title := range t.Titles.Items() {
		switch title.Kind {
		case domain.TitleMain:
			add("TITLE", title.Name)
		case domain.TitleSub:
			add("SUBTITLE", title.Name)
		case domain.TitleWork:
			add("WORK", title.Name)
		case domain.TitleMovement:
			add("MOVEMENTNAME", title.Name)
		}
	}

	if grouping, ok := firstByFacet(t.Tags, "grouping"); ok {
		add("GROUPING", grouping)
	}

	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleArtist) {
		add("ARTIST", v)
	}
	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleComposer) {
		add("COMPOSER", v)
	}
	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleConductor) {
		add("CONDUCTOR", v)
	}
	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleRemixer) {
		add("REMIXER", v)
	}
	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleLyricist) {
		add("LYRICIST", v)
	}
	for _, v := range joinedActors(t.Actors, domain.ScopeTrack, domain.RoleWriter) {
		add("WRITER", v)
	}

	for _, title := range t.Album.Titles.Items() {
		if title.Kind == domain.TitleMain {
			add("ALBUM", title.Name)
		}
	}
	for _, v := range joinedActors(t.Album.Actors, domain.ScopeAlbum, domain.RoleArtist) {
		add("ALBUMARTIST", v)
	}
	if t.Album.Kind == domain.AlbumCompilation {
		add("COMPILATION", "1")
	}

	if t.Indexes.Track.Number != nil {
		add("TRACKNUMBER", strconv.Itoa(*t.Indexes.Track.Number))
	}
	if t.Indexes.Track.Total != nil {
		add("TRACKTOTAL", strconv.Itoa(*t.Indexes.Track.Total))
	}
	if t.Indexes.Disc.Number != nil {
		add("DISCNUMBER", strconv.Itoa(*t.Indexes.Disc.Number))
	}
	if t.Indexes.Disc.Total != nil {
		add("DISCTOTAL", strconv.Itoa(*t.Indexes.Disc.Total))
	}
	if t.Indexes.Movement.Number != nil {
		add("MOVEMENT", strconv.Itoa(*t.Indexes.Movement.Number))
	}
	if t.Indexes.Movement.Total != nil {
		add("MOVEMENTTOTAL", strconv.Itoa(*t.Indexes.Movement.Total))
	}

	if t.Metrics.TempoBpm != nil {
		add("BPM", strconv.FormatFloat(*t.Metrics.TempoBpm, 'f', -1, 64))
	}

	for _, v := range t.Tags.Items() {
		switch v.Facet {
		case "key":
			add("INITIALKEY", v.Label)
		case "replaygain_track_gain":
			add("REPLAYGAIN_TRACK_GAIN", v.Label)
		case "comment":
			add("COMMENT", v.Label)
		case "genre":
			add("GENRE", v.Label)
		case "mood":
			add("MOOD", v.Label)
		case "isrc":
			add("ISRC", v.Label)
		case "mixxx_custom_tags":
			if w.cfg.Has(tagcodec.FlagMixxxCustomTags) {
				add("MIXXX_CUSTOM_TAGS", v.Label)
			}
		case "aoide_tags":
			if w.cfg.Has(tagcodec.FlagAoideTags) {
				add("AOIDE_TAGS", v.Label)
			}
		}
	}

	if t.MediaSource.Audio.Encoder != "" {
		add("ENCODEDBY", t.MediaSource.Audio.Encoder)
	}
	if t.ReleasedAt != nil {
		add("RELEASEDATE", formatVorbisDate(*t.ReleasedAt))
	}
	if t.Publisher != "" {
		add("LABEL", t.Publisher)
	}
	if t.Copyright != "" {
		add("COPYRIGHT", t.Copyright)
	}

	return out
}

func joinedActors(actors domain.Canonical[domain.Actor], scope domain.Scope, role domain.ActorRole) []string {
	var out []string
	for _, a := range actors.Items() {
		if a.Scope == scope && a.Role == role && a.Kind != domain.ActorSorting {
			out = append(out, a.Name)
		}
	}
	return out
}

func firstByFacet(tags domain.Canonical[domain.Tag], facet string) (string, bool) {
	for _, t := range tags.Items() {
		if t.Facet == facet {
			return t.Label, true
		}
	}
	return "", false
}
