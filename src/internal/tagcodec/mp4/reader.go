package mp4

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

type reader struct {
	meta         tag.Metadata
	raw          map[string]interface{}
	supplemental map[string]string
	cfg          tagcodec.Config
	issues       []tagcodec.Issue
}

func (r *reader) warn(offender, format string, args ...any) {
	r.issues = append(r.issues, tagcodec.Issue{Offender: offender, Message: fmt.Sprintf(format, args...)})
}

func (r *reader) rawString(key string) (string, bool) {
	v, ok := r.raw[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (r *reader) supp(key string) (string, bool) {
	s, ok := r.supplemental[key]
	return s, ok
}

func (r *reader) importTrack() (tagcodec.ImportResult, error) {
	var t domain.Track
	var titles []domain.Title
	var actors []domain.Actor
	var albumTitles []domain.Title
	var albumActors []domain.Actor
	var tags []domain.Tag

	if s := r.meta.Title(); s != "" {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeTrack})
	}
	if s, ok := r.supp("com.apple.iTunes:SUBTITLE"); ok && s != "" {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleSub, Scope: domain.ScopeTrack})
	}
	if s, ok := r.supp("\xa9wrk"); ok && s != "" {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleWork, Scope: domain.ScopeTrack})
	}
	if s, ok := r.supp("\xa9mvn"); ok && s != "" {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleMovement, Scope: domain.ScopeTrack})
	}

	if s := r.meta.Artist(); s != "" {
		for _, v := range splitMulti(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s := r.meta.Composer(); s != "" {
		for _, v := range splitMulti(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleComposer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.supp("com.apple.iTunes:CONDUCTOR"); ok {
		for _, v := range splitMulti(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleConductor, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.supp("com.apple.iTunes:REMIXER"); ok {
		for _, v := range splitMulti(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleRemixer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.supp("com.apple.iTunes:LYRICIST"); ok {
		for _, v := range splitMulti(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleLyricist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}

	if s := r.meta.Album(); s != "" {
		albumTitles = append(albumTitles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeAlbum})
	}
	if s := r.meta.AlbumArtist(); s != "" {
		for _, v := range splitMulti(s) {
			albumActors = append(albumActors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeAlbum})
		}
	}

	albumKind := domain.AlbumUnknown
	if s, ok := r.rawString("compilation"); ok && strings.TrimSpace(s) != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n != 0 {
			albumKind = domain.AlbumCompilation
		}
	} else if n, ok := r.raw["compilation"].(int); ok && n != 0 {
		albumKind = domain.AlbumCompilation
	}

	if n, total := r.meta.Track(); n != 0 || total != 0 {
		t.Indexes.Track.Number, t.Indexes.Track.Total = intPtr(n), intPtrOrNil(total)
	}
	if n, total := r.meta.Disc(); n != 0 || total != 0 {
		t.Indexes.Disc.Number, t.Indexes.Disc.Total = intPtr(n), intPtrOrNil(total)
	}
	if s, ok := r.supp("\xa9mvi"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Movement.Number = &n
		}
	}
	if s, ok := r.supp("\xa9mvc"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			t.Indexes.Movement.Total = &n
		}
	}

	t.Metrics.Flags = map[domain.MetricsFlag]bool{}
	if s, ok := r.supp("com.apple.iTunes:BPM"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			t.Metrics.TempoBpm = &f
		} else {
			r.warn("----:com.apple.iTunes:BPM", "not a number: %q", s)
		}
	} else if n, ok := r.raw["tempo"].(int); ok && n != 0 {
		f := float64(n)
		t.Metrics.TempoBpm = &f
		t.Metrics.Flags[domain.FlagTempoBpmNonFractional] = true
	}

	if s, ok := r.supp("com.apple.iTunes:initialkey"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "key", Label: s})
	} else if s, ok := r.supp("com.apple.iTunes:KEY"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "key", Label: s})
	}

	if s, ok := r.supp("com.apple.iTunes:replaygain_track_gain"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "replaygain_track_gain", Label: s})
	}

	if s, ok := r.rawString("encoder"); ok {
		t.MediaSource.Audio.Encoder = s
	}

	if y := r.meta.Year(); y != 0 {
		ms := yearToMillis(y)
		t.ReleasedAt = &ms
	}

	if s, ok := r.supp("com.apple.iTunes:LABEL"); ok && s != "" {
		t.Publisher = s
	}
	if s, ok := r.rawString("copyright"); ok {
		t.Copyright = s
	}

	if s, ok := r.rawString("comment"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "comment", Label: s})
	}
	if s := r.meta.Genre(); s != "" {
		for _, v := range splitMulti(s) {
			tags = append(tags, domain.Tag{Facet: "genre", Label: v})
		}
	}
	if s, ok := r.supp("com.apple.iTunes:MOOD"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "mood", Label: s})
	}
	if s, ok := r.rawString("grouping"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "grouping", Label: s})
	}
	if s, ok := r.supp("com.apple.iTunes:ISRC"); ok && s != "" {
		tags = append(tags, domain.Tag{Facet: "isrc", Label: s})
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
	t.MediaSource.Artwork = tagcodec.ArtworkFrom(r.cfg, r.pictures())

	return tagcodec.ImportResult{Track: t, Issues: r.issues}, nil
}

func (r *reader) pictures() []tagcodec.CandidatePicture {
	p := r.meta.Picture()
	if p == nil {
		return nil
	}
	return []tagcodec.CandidatePicture{{
		APICType:  domain.APICCoverFront,
		MediaType: p.MIMEType,
		Data:      p.Data,
	}}
}

func intPtr(n int) *int { return &n }

func intPtrOrNil(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func yearToMillis(year int) int64 {
	// §4.2: "©day (year only)"; represent as Jan 1 UTC of that year.
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
}
