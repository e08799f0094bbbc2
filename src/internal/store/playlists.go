package store

import (
	"context"
	"database/sql"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// CreatePlaylist inserts a brand-new playlist at revision 0 along with its
// ordered entries, mirroring CreateCollection's single-transaction pattern.
func (s *Store) CreatePlaylist(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	if p.Header.Uid.IsNil() {
		p.Header = domain.NewEntityHeader()
	}
	err := s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			_, err := Builder.Insert("playlists").
				Columns("uid", "revision", "title", "kind", "color").
				Values(p.Header.Uid.String(), int64(p.Header.Revision), p.Title, string(p.Kind), nullableUint32(p.Color)).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "insert playlist")
			}
			return insertPlaylistEntries(ctx, tx, p.Header.Uid, p.Entries)
		})
	})
	return p, err
}

func insertPlaylistEntries(ctx context.Context, tx *sql.Tx, uid domain.Uid, entries []domain.PlaylistEntry) error {
	for i, e := range entries {
		_, err := Builder.Insert("playlist_entries").
			Columns("playlist_uid", "position", "track_uid", "title", "notes").
			Values(uid.String(), i, e.TrackUid.String(), e.Title, e.Notes).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			return cerr.Wrap(cerr.KindIO, err, "insert playlist entry %d", i)
		}
	}
	return nil
}

// GetPlaylist loads a playlist and its entries in canonical position order.
func (s *Store) GetPlaylist(ctx context.Context, uid domain.Uid) (domain.Playlist, error) {
	var p domain.Playlist
	err := s.withRead(ctx, func() error {
		row := Builder.Select("revision", "title", "kind", "color").From("playlists").
			Where("uid = ?", uid.String()).RunWith(s.db).QueryRowContext(ctx)
		var revision int64
		var color sql.NullInt64
		if err := row.Scan(&revision, &p.Title, &p.Kind, &color); err != nil {
			if err == sql.ErrNoRows {
				return cerr.NotFound("playlist %s not found", uid)
			}
			return cerr.Wrap(cerr.KindIO, err, "query playlist")
		}
		p.Header = domain.EntityHeader{Uid: uid, Revision: domain.Revision(revision)}
		p.Color = colorFromNull(color)

		rows, err := Builder.Select("track_uid", "title", "notes").From("playlist_entries").
			Where("playlist_uid = ?", uid.String()).OrderBy("position ASC").
			RunWith(s.db).QueryContext(ctx)
		if err != nil {
			return cerr.Wrap(cerr.KindIO, err, "query playlist entries")
		}
		defer rows.Close()
		for rows.Next() {
			var trackUidStr string
			var e domain.PlaylistEntry
			if err := rows.Scan(&trackUidStr, &e.Title, &e.Notes); err != nil {
				return cerr.Wrap(cerr.KindIO, err, "scan playlist entry")
			}
			trackUid, perr := domain.ParseUid(trackUidStr)
			if perr != nil {
				return cerr.Wrap(cerr.KindInternal, perr, "parse stored playlist entry track uid")
			}
			e.TrackUid = trackUid
			p.Entries = append(p.Entries, e)
		}
		return rows.Err()
	})
	return p, err
}

// UpdatePlaylist applies an optimistic-concurrency update and replaces the
// entry list wholesale (entries carry no independent identity — they are
// owned-child rows per §3 Lifecycle, same as a track's titles/actors/cues).
func (s *Store) UpdatePlaylist(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	next := p.Header.Bump()
	err := s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			res, err := Builder.Update("playlists").
				Set("revision", int64(next.Revision)).
				Set("title", p.Title).
				Set("kind", string(p.Kind)).
				Set("color", nullableUint32(p.Color)).
				Where("uid = ? AND revision = ?", p.Header.Uid.String(), int64(p.Header.Revision)).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "update playlist")
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				stored, getErr := s.currentPlaylistRevision(ctx, tx, p.Header.Uid)
				if getErr != nil {
					return getErr
				}
				return cerr.RevisionConflict(stored, p.Header.Revision)
			}
			if _, err := Builder.Delete("playlist_entries").Where("playlist_uid = ?", p.Header.Uid.String()).
				RunWith(tx).ExecContext(ctx); err != nil {
				return cerr.Wrap(cerr.KindIO, err, "clear playlist entries")
			}
			return insertPlaylistEntries(ctx, tx, p.Header.Uid, p.Entries)
		})
	})
	if err != nil {
		return domain.Playlist{}, err
	}
	p.Header = next
	return p, nil
}

func (s *Store) currentPlaylistRevision(ctx context.Context, tx *sql.Tx, uid domain.Uid) (domain.Revision, error) {
	var revision int64
	row := Builder.Select("revision").From("playlists").Where("uid = ?", uid.String()).RunWith(tx).QueryRowContext(ctx)
	err := row.Scan(&revision)
	if err == sql.ErrNoRows {
		return 0, cerr.NotFound("playlist %s not found", uid)
	}
	if err != nil {
		return 0, cerr.Wrap(cerr.KindIO, err, "query playlist revision")
	}
	return domain.Revision(revision), nil
}

// DeletePlaylist removes a playlist; its entries cascade via the foreign key
// on playlist_entries.playlist_uid.
func (s *Store) DeletePlaylist(ctx context.Context, uid domain.Uid) error {
	return s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			res, err := Builder.Delete("playlists").Where("uid = ?", uid.String()).RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "delete playlist")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return cerr.NotFound("playlist %s not found", uid)
			}
			return nil
		})
	})
}
