package id3

import (
	"strconv"
	"strings"

	id3v2 "github.com/tmthrgd/id3v2"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/tagcodec"
)

// outFrame is the encoder's working representation: a frame id plus its
// already-encoded (minus header) payload.
type outFrame struct {
	id      string
	payload []byte
}

// managedFrameIDs are the fixed (non-TXXX, non-COMM) frames the exporter
// fully regenerates from the track; any existing occurrence is dropped
// before the new one (if any) is written.
var managedFrameIDs = map[id3v2.FrameID]bool{
	id3v2.FrameTIT2: true, id3v2.FrameTIT3: true, id3v2.FrameTSST: true,
	id3v2.FrameTIT1: true, frameGRP1: true, frameMVNM: true,
	id3v2.FrameTPE1: true, id3v2.FrameTCOM: true, id3v2.FrameTPE3: true,
	id3v2.FrameTPE4: true, id3v2.FrameTEXT: true, id3v2.FrameTALB: true,
	id3v2.FrameTPE2: true, frameTCMP: true, id3v2.FrameTRCK: true,
	id3v2.FrameTPOS: true, frameMVIN: true, id3v2.FrameTBPM: true,
	id3v2.FrameTKEY: true, id3v2.FrameTENC: true, id3v2.FrameTSSE: true,
	id3v2.FrameTDRL: true, id3v2.FrameTDRC: true, id3v2.FrameTPUB: true,
	id3v2.FrameTCOP: true, id3v2.FrameTCON: true, id3v2.FrameTMOO: true,
	id3v2.FrameTSRC: true, id3v2.FrameTLAN: true,
}

// managedTXXXDescriptions are the TXXX description keys the exporter
// regenerates; any existing TXXX frame with a matching description
// (case-insensitively) is dropped.
var managedTXXXDescriptions = map[string]bool{
	"work": true, "writer": true, "bpm": true, "replaygain_track_gain": true,
}

type writer struct {
	existing id3v2.Frames
	cfg      tagcodec.Config
}

func (w writer) preserved() []outFrame {
	var out []outFrame
	for _, f := range w.existing {
		if managedFrameIDs[f.ID] {
			continue
		}
		if f.ID == id3v2.FrameTXXX {
			if s, err := f.Text(); err == nil {
				parts := strings.SplitN(s, "\x00", 2)
				if len(parts) > 0 && managedTXXXDescriptions[strings.ToLower(parts[0])] {
					continue
				}
			}
		}
		if f.ID == id3v2.FrameCOMM {
			// the managed comment frame uses an empty description; only
			// drop that one, keep any annotated comment frames as-is.
			if s, err := f.Text(); err == nil && strings.HasPrefix(s, "\x00") {
				continue
			}
		}
		out = append(out, outFrame{id: idString(f.ID), payload: append([]byte(nil), f.Data...)})
	}
	return out
}

func idString(id id3v2.FrameID) string {
	return string([]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
}

func textFrame(id string, value string) outFrame {
	return outFrame{id: id, payload: encodeUTF8Text(value)}
}

func txxxFrame(description, value string) outFrame {
	return outFrame{id: "TXXX", payload: encodeUTF8Text(description + "\x00" + value)}
}

func commFrame(value string) outFrame {
	// language "eng" + empty short description + value, per §4.10.
	return outFrame{id: "COMM", payload: encodeCommentUTF8("eng", value)}
}

func encodeCommentUTF8(lang, value string) []byte {
	body := append([]byte(lang), 0x00) // short description empty before value
	body = append(body, []byte(value)...)
	return append([]byte{0x03}, body...)
}

func encodeUTF8Text(s string) []byte {
	return append([]byte{0x03}, []byte(s)...)
}

// formatFractionalBPM renders v with full precision but guarantees a decimal
// point, so an integral tempo still exports as "128.0" (§8 scenario 1),
// distinguishable from the integer TBPM="128" frame.
func formatFractionalBPM(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
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

func (w writer) exportTrack(t domain.Track) []outFrame {
	frames := w.preserved()
	add := func(f outFrame) {
		if len(f.payload) <= 1 { // encoding byte only => empty value, skip
			return
		}
		frames = append(frames, f)
	}

	for _, title := range t.Titles.Items() {
		switch title.Kind {
		case domain.TitleMain:
			add(textFrame("TIT2", title.Name))
		case domain.TitleSub:
			add(textFrame("TIT3", title.Name))
		case domain.TitleMovement:
			add(textFrame("MVNM", title.Name))
		case domain.TitleWork:
			if w.cfg.Has(tagcodec.FlagItunesGroupingMovementWork) {
				add(textFrame("TIT1", title.Name))
			} else {
				add(txxxFrame("WORK", title.Name))
			}
		}
	}

	for facet, label := range firstByFacet(t.Tags, "grouping") {
		_ = facet
		if !w.cfg.Has(tagcodec.FlagItunesGroupingMovementWork) {
			add(textFrame("GRP1", label))
		} else {
			add(textFrame("TIT1", label))
		}
	}

	if artists := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleArtist); len(artists) > 0 {
		add(textFrame("TPE1", joinValues(artists)))
	}
	if composers := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleComposer); len(composers) > 0 {
		add(textFrame("TCOM", joinValues(composers)))
	}
	if conductors := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleConductor); len(conductors) > 0 {
		add(textFrame("TPE3", joinValues(conductors)))
	}
	if remixers := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleRemixer); len(remixers) > 0 {
		add(textFrame("TPE4", joinValues(remixers)))
	}
	if lyricists := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleLyricist); len(lyricists) > 0 {
		add(textFrame("TEXT", joinValues(lyricists)))
	}
	if writers := joinedActors(t.Actors, domain.ScopeTrack, domain.RoleWriter); len(writers) > 0 {
		add(txxxFrame("Writer", joinValues(writers)))
	}

	for _, title := range t.Album.Titles.Items() {
		if title.Kind == domain.TitleMain {
			add(textFrame("TALB", title.Name))
		}
	}
	if albumArtists := joinedActors(t.Album.Actors, domain.ScopeAlbum, domain.RoleArtist); len(albumArtists) > 0 {
		add(textFrame("TPE2", joinValues(albumArtists)))
	}
	if t.Album.Kind == domain.AlbumCompilation {
		add(textFrame("TCMP", "1"))
	}

	if s := formatNOfTotal(t.Indexes.Track.Number, t.Indexes.Track.Total); s != "" {
		add(textFrame("TRCK", s))
	}
	if s := formatNOfTotal(t.Indexes.Disc.Number, t.Indexes.Disc.Total); s != "" {
		add(textFrame("TPOS", s))
	}
	if s := formatNOfTotal(t.Indexes.Movement.Number, t.Indexes.Movement.Total); s != "" {
		add(textFrame("MVIN", s))
	}

	if t.Metrics.TempoBpm != nil {
		add(txxxFrame("BPM", formatFractionalBPM(*t.Metrics.TempoBpm)))
		if t.Metrics.HasFlag(domain.FlagTempoBpmNonFractional) || *t.Metrics.TempoBpm == float64(int64(*t.Metrics.TempoBpm)) {
			add(textFrame("TBPM", strconv.Itoa(int(*t.Metrics.TempoBpm))))
		}
	}

	for _, v := range t.Tags.Items() {
		switch v.Facet {
		case "key":
			add(textFrame("TKEY", v.Label))
		case "replaygain_track_gain":
			add(txxxFrame("REPLAYGAIN_TRACK_GAIN", v.Label))
		case "comment":
			add(commFrame(v.Label))
		case "genre":
			add(textFrame("TCON", v.Label))
		case "mood":
			add(textFrame("TMOO", v.Label))
		case "isrc":
			add(textFrame("TSRC", v.Label))
		case "language":
			add(textFrame("TLAN", v.Label))
		}
	}

	if t.MediaSource.Audio.Encoder != "" {
		// reader.go imports Encoder as concat(TENC, TSSE) joined by a space;
		// split back into at most those two parts so a track imported with a
		// TENC component round-trips it rather than collapsing both into TSSE.
		parts := strings.SplitN(t.MediaSource.Audio.Encoder, " ", 2)
		if len(parts) == 2 {
			add(textFrame("TENC", parts[0]))
			add(textFrame("TSSE", parts[1]))
		} else {
			add(textFrame("TSSE", t.MediaSource.Audio.Encoder))
		}
	}
	if t.ReleasedAt != nil {
		add(textFrame("TDRL", formatID3Date(*t.ReleasedAt)))
		add(textFrame("TDRC", formatID3Year(*t.ReleasedAt)))
	}
	if t.Publisher != "" {
		add(textFrame("TPUB", t.Publisher))
	}
	if t.Copyright != "" {
		add(textFrame("TCOP", t.Copyright))
	}

	return frames
}

// firstByFacet returns a one-entry map of facet->first label, used where the
// domain allows multiple tags per facet but the ID3 frame is single-valued.
func firstByFacet(tags domain.Canonical[domain.Tag], facet string) map[string]string {
	for _, t := range tags.Items() {
		if t.Facet == facet {
			return map[string]string{facet: t.Label}
		}
	}
	return nil
}
