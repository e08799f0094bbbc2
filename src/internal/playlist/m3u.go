// Package playlist imports and exports domain.Playlist values through the
// m3u container format, the supplemented feature named in SPEC_FULL.md
// ("Playlists are given a concrete domain type and m3u import/export").
// Grounded on the teacher's src/internal/content/playlist.go, which parses
// playlist files with the same library and resolves each entry's path
// against the music directory; this package sheds the teacher's in-memory
// content-tree wiring and resolves entries against collection content paths
// instead.
package playlist

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ushis/m3u"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// Import reads an m3u playlist from r and resolves each entry against
// resolve, which maps a (possibly relative) item path to a track uid. Items
// resolve returns false for are skipped and logged by the caller via the
// returned skipped slice rather than failing the whole playlist — mirrors
// the teacher's "ignore it" per-item handling in playlist.go.
func Import(r io.Reader, resolve func(itemPath string) (domain.Uid, bool)) (entries []domain.PlaylistEntry, skipped []string, err error) {
	tracks, perr := m3u.Parse(r)
	if perr != nil {
		return nil, nil, cerr.Wrap(cerr.KindParse, perr, "parse m3u playlist")
	}

	for _, item := range tracks {
		p := strings.TrimSpace(item.Path)
		if p == "" {
			continue
		}
		uid, ok := resolve(p)
		if !ok {
			skipped = append(skipped, p)
			continue
		}
		title := item.Title
		if title == "" {
			title = path.Base(p)
		}
		entries = append(entries, domain.PlaylistEntry{
			TrackUid: uid,
			Title:    title,
		})
	}
	return entries, skipped, nil
}

// Export writes pl's entries as an extended m3u playlist to w. resolvePath
// maps a track uid back to the content path Export should record as the
// item's path; an entry whose track no longer resolves is skipped. The
// writer side has no corresponding type in the m3u library (it only parses,
// per the teacher's usage), so Export emits the EXTM3U format directly —
// the format m3u.Parse above reads back.
func Export(w io.Writer, pl domain.Playlist, resolvePath func(domain.Uid) (string, bool)) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "#EXTM3U"); err != nil {
		return cerr.Wrap(cerr.KindIO, err, "write m3u header for playlist %q", pl.Title)
	}
	for _, e := range pl.Entries {
		p, ok := resolvePath(e.TrackUid)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(bw, "#EXTINF:-1,%s\n%s\n", e.Title, p); err != nil {
			return cerr.Wrap(cerr.KindIO, err, "write m3u entry for playlist %q", pl.Title)
		}
	}
	if err := bw.Flush(); err != nil {
		return cerr.Wrap(cerr.KindIO, err, "flush m3u playlist %q", pl.Title)
	}
	return nil
}
