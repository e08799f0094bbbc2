package mp4

import (
	"strconv"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// managedOfficialAtoms are the fixed ilst item atoms the exporter fully
// regenerates from the track; any existing occurrence is dropped before the
// new one (if any) is written. "covr" is deliberately absent: §4.2
// behavioral contract 5 says writers are not required to modify embedded
// pictures, so artwork atoms are always preserved verbatim.
var managedOfficialAtoms = map[string]bool{
	"\xa9nam": true, "\xa9wrk": true, "\xa9mvn": true, "\xa9ART": true,
	"\xa9art": true, "\xa9wrt": true, "\xa9alb": true, "aART": true,
	"cpil": true, "\xa9day": true, "cprt": true, "trkn": true, "disk": true,
	"\xa9mvi": true, "\xa9mvc": true, "tmpo": true, "\xa9too": true,
	"\xa9cmt": true, "\xa9gen": true, "gnre": true, "\xa9grp": true,
}

// managedFreeform is keyed by "mean:name" (case as written); any existing
// freeform atom matching one of these is dropped and regenerated.
var managedFreeform = map[string]bool{
	"com.apple.iTunes:SUBTITLE":              true,
	"com.apple.iTunes:CONDUCTOR":             true,
	"com.apple.iTunes:REMIXER":               true,
	"com.apple.iTunes:LYRICIST":              true,
	"com.apple.iTunes:LABEL":                 true,
	"com.apple.iTunes:BPM":                   true,
	"com.apple.iTunes:initialkey":            true,
	"com.apple.iTunes:KEY":                   true,
	"com.apple.iTunes:replaygain_track_gain": true,
	"com.apple.iTunes:MOOD":                  true,
	"com.apple.iTunes:ISRC":                  true,
}

type writer struct {
	cfg tagcodec.Config
}

// exportTrack rebuilds the ilst atom's payload: preserved (unmanaged)
// existing items plus regenerated managed ones, in that order.
func (w writer) exportTrack(t domain.Track, existingIlst []byte) ([]byte, error) {
	var items []box
	if len(existingIlst) > 0 {
		existing, err := readBoxes(existingIlst)
		if err != nil {
			return nil, err
		}
		for _, it := range existing {
			if it.Type == "----" {
				mean, name, _, ok := parseFreeform(it.Data)
				if ok && managedFreeform[mean+":"+name] {
					continue
				}
				items = append(items, it)
				continue
			}
			if managedOfficialAtoms[it.Type] {
				continue
			}
			items = append(items, it)
		}
	}

	add := func(b box) { items = append(items, b) }

	for _, title := range t.Titles.Items() {
		switch title.Kind {
		case domain.TitleMain:
			add(textItem("\xa9nam", title.Name))
		case domain.TitleSub:
			add(freeformItem("com.apple.iTunes", "SUBTITLE", title.Name))
		case domain.TitleMovement:
			add(textItem("\xa9mvn", title.Name))
		case domain.TitleWork:
			add(textItem("\xa9wrk", title.Name))
		}
	}

	if grouping, ok := firstByFacet(t.Tags, "grouping"); ok {
		add(textItem("\xa9grp", grouping))
	}

	if artists := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleArtist); len(artists) > 0 {
		add(textItem("\xa9ART", joinMulti(artists)))
	}
	if composers := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleComposer); len(composers) > 0 {
		add(textItem("\xa9wrt", joinMulti(composers)))
	}
	if conductors := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleConductor); len(conductors) > 0 {
		add(freeformItem("com.apple.iTunes", "CONDUCTOR", joinMulti(conductors)))
	}
	if remixers := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleRemixer); len(remixers) > 0 {
		add(freeformItem("com.apple.iTunes", "REMIXER", joinMulti(remixers)))
	}
	if lyricists := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleLyricist); len(lyricists) > 0 {
		add(freeformItem("com.apple.iTunes", "LYRICIST", joinMulti(lyricists)))
	}

	for _, title := range t.Album.Titles.Items() {
		if title.Kind == domain.TitleMain {
			add(textItem("\xa9alb", title.Name))
		}
	}
	if albumArtists := joinedActors(t.Album.Actors, domain.ScopeAlbum, domain.RoleArtist); len(albumArtists) > 0 {
		add(textItem("aART", joinMulti(albumArtists)))
	}
	if t.Album.Kind == domain.AlbumCompilation {
		add(uint8Item("cpil", []byte{1}))
	}

	if t.Indexes.Track.Number != nil || t.Indexes.Track.Total != nil {
		add(nOfTotalItem("trkn", derefOr(t.Indexes.Track.Number, 0), derefOr(t.Indexes.Track.Total, 0)))
	}
	if t.Indexes.Disc.Number != nil || t.Indexes.Disc.Total != nil {
		add(nOfTotalItem("disk", derefOr(t.Indexes.Disc.Number, 0), derefOr(t.Indexes.Disc.Total, 0)))
	}
	if t.Indexes.Movement.Number != nil {
		add(textItem("\xa9mvi", strconv.Itoa(*t.Indexes.Movement.Number)))
	}
	if t.Indexes.Movement.Total != nil {
		add(textItem("\xa9mvc", strconv.Itoa(*t.Indexes.Movement.Total)))
	}

	if t.Metrics.TempoBpm != nil {
		add(freeformItem("com.apple.iTunes", "BPM", strconv.FormatFloat(*t.Metrics.TempoBpm, 'f', -1, 64)))
		if t.Metrics.HasFlag(domain.FlagTempoBpmNonFractional) || *t.Metrics.TempoBpm == float64(int64(*t.Metrics.TempoBpm)) {
			bpm := uint16(*t.Metrics.TempoBpm)
			add(uint8Item("tmpo", []byte{byte(bpm >> 8), byte(bpm)}))
		}
	}

	for _, v := range t.Tags.Items() {
		switch v.Facet {
		case "key":
			add(freeformItem("com.apple.iTunes", "initialkey", v.Label))
		case "replaygain_track_gain":
			add(freeformItem("com.apple.iTunes", "replaygain_track_gain", v.Label))
		case "comment":
			add(textItem("\xa9cmt", v.Label))
		case "genre":
			add(textItem("\xa9gen", v.Label))
		case "mood":
			add(freeformItem("com.apple.iTunes", "MOOD", v.Label))
		case "isrc":
			add(freeformItem("com.apple.iTunes", "ISRC", v.Label))
		}
	}

	if t.MediaSource.Audio.Encoder != "" {
		add(textItem("\xa9too", t.MediaSource.Audio.Encoder))
	}
	if t.ReleasedAt != nil {
		add(textItem("\xa9day", formatMP4Year(*t.ReleasedAt)))
	}
	if t.Publisher != "" {
		add(freeformItem("com.apple.iTunes", "LABEL", t.Publisher))
	}
	if t.Copyright != "" {
		add(textItem("cprt", t.Copyright))
	}

	return encodeBoxes(items), nil
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

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
