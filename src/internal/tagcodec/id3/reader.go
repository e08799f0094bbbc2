package id3

import (
	"fmt"
	"strconv"
	"strings"

	id3v2 "github.com/tmthrgd/id3v2"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

type reader struct {
	frames id3v2.Frames
	cfg    tagcodec.Config
	issues []tagcodec.Issue
}

func (r *reader) warn(offender, format string, args ...any) {
	r.issues = append(r.issues, tagcodec.Issue{Offender: offender, Message: fmt.Sprintf(format, args...)})
}

func (r *reader) text(id id3v2.FrameID) (string, bool) {
	f := r.frames.Lookup(id)
	if f == nil {
		return "", false
	}
	s, err := f.Text()
	if err != nil {
		r.warn(id.String(), "unreadable text frame: %v", err)
		return "", false
	}
	return s, true
}

func (r *reader) txxx(description string) (string, bool) {
	for _, f := range r.frames {
		if f.ID != id3v2.FrameTXXX {
			continue
		}
		s, err := f.Text()
		if err != nil {
			r.warn("TXXX", "unreadable extended text frame: %v", err)
			continue
		}
		parts := strings.SplitN(s, "\x00", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], description) {
			return parts[1], true
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

	if s, ok := r.text(id3v2.FrameTIT2); ok {
		titles = append(titles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeTrack})
	}

	subtitle, ok := r.text(id3v2.FrameTIT3)
	if !ok {
		subtitle, ok = r.text(id3v2.FrameTSST)
	}
	if ok {
		titles = append(titles, domain.Title{Name: subtitle, Kind: domain.TitleSub, Scope: domain.ScopeTrack})
	}

	work, workOK := r.txxx("WORK")
	grouping, groupingOK := r.text(frameGRP1)
	if tit1, tit1OK := r.text(id3v2.FrameTIT1); tit1OK {
		if r.cfg.Has(tagcodec.FlagItunesGroupingMovementWork) {
			if !workOK || work == "" {
				work, workOK = tit1, true
			}
		} else if !groupingOK {
			grouping, groupingOK = tit1, true
		}
	}
	if workOK && work != "" {
		titles = append(titles, domain.Title{Name: work, Kind: domain.TitleWork, Scope: domain.ScopeTrack})
	}
	if groupingOK && grouping != "" {
		tags = append(tags, domain.Tag{Facet: "grouping", Label: grouping})
	}

	if mvnm, ok := r.text(frameMVNM); ok {
		titles = append(titles, domain.Title{Name: mvnm, Kind: domain.TitleMovement, Scope: domain.ScopeTrack})
	}

	if s, ok := r.text(id3v2.FrameTPE1); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.text(id3v2.FrameTCOM); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleComposer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.text(id3v2.FrameTPE3); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleConductor, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.text(id3v2.FrameTPE4); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleRemixer, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.text(id3v2.FrameTEXT); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleLyricist, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}
	if s, ok := r.txxx("Writer"); ok {
		for _, v := range splitValues(s) {
			actors = append(actors, domain.Actor{Name: v, Role: domain.RoleWriter, Kind: domain.ActorPrimary, Scope: domain.ScopeTrack})
		}
	}

	if s, ok := r.text(id3v2.FrameTALB); ok {
		albumTitles = append(albumTitles, domain.Title{Name: s, Kind: domain.TitleMain, Scope: domain.ScopeAlbum})
	}
	if s, ok := r.text(id3v2.FrameTPE2); ok {
		for _, v := range splitValues(s) {
			albumActors = append(albumActors, domain.Actor{Name: v, Role: domain.RoleArtist, Kind: domain.ActorPrimary, Scope: domain.ScopeAlbum})
		}
	}

	albumKind := domain.AlbumUnknown
	if s, ok := r.text(frameTCMP); ok {
		if s == "1" {
			albumKind = domain.AlbumCompilation
		}
	}

	if s, ok := r.text(id3v2.FrameTRCK); ok {
		t.Indexes.Track.Number, t.Indexes.Track.Total = parseNOfTotal(s)
	}
	if s, ok := r.text(id3v2.FrameTPOS); ok {
		t.Indexes.Disc.Number, t.Indexes.Disc.Total = parseNOfTotal(s)
	}
	if s, ok := r.text(frameMVIN); ok {
		t.Indexes.Movement.Number, t.Indexes.Movement.Total = parseNOfTotal(s)
	}

	// fractional BPM preferred, integer fallback flags TEMPO_BPM_NON_FRACTIONAL
	t.Metrics.Flags = map[domain.MetricsFlag]bool{}
	if s, ok := r.txxx("BPM"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			t.Metrics.TempoBpm = &f
		} else {
			r.warn("TXXX:BPM", "not a number: %q", s)
		}
	} else if s, ok := r.text(id3v2.FrameTBPM); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			f := float64(i)
			t.Metrics.TempoBpm = &f
			t.Metrics.Flags[domain.FlagTempoBpmNonFractional] = true
		} else {
			r.warn("TBPM", "not an integer: %q", s)
		}
	}

	if s, ok := r.text(id3v2.FrameTKEY); ok {
		tags = append(tags, domain.Tag{Facet: "key", Label: s})
	}

	if s, ok := r.txxx("REPLAYGAIN_TRACK_GAIN"); ok {
		tags = append(tags, domain.Tag{Facet: "replaygain_track_gain", Label: s})
	}

	var encoderParts []string
	if s, ok := r.text(id3v2.FrameTENC); ok && s != "" {
		encoderParts = append(encoderParts, s)
	}
	if s, ok := r.text(id3v2.FrameTSSE); ok && s != "" {
		encoderParts = append(encoderParts, s)
	}
	t.MediaSource.Audio.Encoder = strings.Join(encoderParts, " ")

	if s, ok := r.text(id3v2.FrameTDRL); ok {
		if ms, err := parseID3Date(s); err == nil {
			t.ReleasedAt = &ms
		} else {
			r.warn("TDRL", "%v", err)
		}
	} else if s, ok := r.text(id3v2.FrameTDRC); ok {
		if ms, err := parseID3Date(s); err == nil {
			t.ReleasedAt = &ms
		} else {
			r.warn("TDRC", "%v", err)
		}
	}

	if s, ok := r.text(id3v2.FrameTPUB); ok {
		t.Publisher = s
	}
	if s, ok := r.text(id3v2.FrameTCOP); ok {
		t.Copyright = s
	}

	if s, ok := r.text(id3v2.FrameCOMM); ok {
		tags = append(tags, domain.Tag{Facet: "comment", Label: s})
	}
	if s, ok := r.text(id3v2.FrameTCON); ok {
		for _, v := range splitValues(s) {
			tags = append(tags, domain.Tag{Facet: "genre", Label: v})
		}
	}
	if s, ok := r.text(id3v2.FrameTMOO); ok {
		tags = append(tags, domain.Tag{Facet: "mood", Label: s})
	}
	if s, ok := r.text(id3v2.FrameTSRC); ok {
		tags = append(tags, domain.Tag{Facet: "isrc", Label: s})
	}
	if s, ok := r.text(id3v2.FrameTLAN); ok {
		tags = append(tags, domain.Tag{Facet: "language", Label: s})
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
