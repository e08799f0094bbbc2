package store

import (
	"context"
	"database/sql"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// CreateCollection inserts a brand-new collection at revision 0, grounded on
// CineVault's repository.go single-row INSERT pattern, rebuilt on squirrel's
// InsertBuilder instead of a literal SQL string.
func (s *Store) CreateCollection(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	if c.Header.Uid.IsNil() {
		c.Header = domain.NewEntityHeader()
	}
	err := s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			excluded, jerr := jsonStrings(c.MediaSource.ExcludedPaths).Value()
			if jerr != nil {
				return cerr.Wrap(cerr.KindInternal, jerr, "encode excluded paths")
			}
			_, err := Builder.Insert("collections").
				Columns("uid", "revision", "title", "kind", "notes", "color", "path_kind", "root_url", "excluded_paths").
				Values(c.Header.Uid.String(), int64(c.Header.Revision), c.Title, string(c.Kind), c.Notes,
					nullableUint32(c.Color), int(c.MediaSource.Kind), c.MediaSource.RootURL, excluded).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "insert collection")
			}
			return nil
		})
	})
	return c, err
}

// GetCollection loads a collection by its public uid.
func (s *Store) GetCollection(ctx context.Context, uid domain.Uid) (domain.Collection, error) {
	var c domain.Collection
	err := s.withRead(ctx, func() error {
		row := Builder.Select("revision", "title", "kind", "notes", "color", "path_kind", "root_url", "excluded_paths").
			From("collections").Where("uid = ?", uid.String()).
			RunWith(s.db).QueryRowContext(ctx)
		var revision int64
		var color sql.NullInt64
		var pathKind int
		var excluded jsonStrings
		if err := row.Scan(&revision, &c.Title, &c.Kind, &c.Notes, &color, &pathKind, &c.MediaSource.RootURL, &excluded); err != nil {
			if err == sql.ErrNoRows {
				return cerr.NotFound("collection %s not found", uid)
			}
			return cerr.Wrap(cerr.KindIO, err, "query collection")
		}
		c.Header = domain.EntityHeader{Uid: uid, Revision: domain.Revision(revision)}
		c.MediaSource.Kind = domain.ContentPathKind(pathKind)
		c.MediaSource.ExcludedPaths = []string(excluded)
		c.Color = colorFromNull(color)
		return nil
	})
	return c, err
}

// ListCollections returns every collection, ordered by title, for restore
// resolution (§4.6) and simple browsing.
func (s *Store) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var out []domain.Collection
	err := s.withRead(ctx, func() error {
		rows, err := Builder.Select("uid", "revision", "title", "kind", "notes", "color", "path_kind", "root_url", "excluded_paths").
			From("collections").OrderBy("title ASC").
			RunWith(s.db).QueryContext(ctx)
		if err != nil {
			return cerr.Wrap(cerr.KindIO, err, "list collections")
		}
		defer rows.Close()
		for rows.Next() {
			var c domain.Collection
			var uidStr string
			var revision int64
			var color sql.NullInt64
			var pathKind int
			var excluded jsonStrings
			if err := rows.Scan(&uidStr, &revision, &c.Title, &c.Kind, &c.Notes, &color, &pathKind, &c.MediaSource.RootURL, &excluded); err != nil {
				return cerr.Wrap(cerr.KindIO, err, "scan collection")
			}
			uid, perr := domain.ParseUid(uidStr)
			if perr != nil {
				return cerr.Wrap(cerr.KindInternal, perr, "parse stored collection uid")
			}
			c.Header = domain.EntityHeader{Uid: uid, Revision: domain.Revision(revision)}
			c.MediaSource.Kind = domain.ContentPathKind(pathKind)
			c.MediaSource.ExcludedPaths = []string(excluded)
			c.Color = colorFromNull(color)
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// CollectionRowID resolves a collection's public uid to the surrogate
// integer id used to scope tracks, media sources, and tracker checkpoints
// (collection_id in every other table). The domain layer only ever carries
// the uid; callers that need to drive tracks/media_sources/
// media_tracker_directories queries resolve it once here.
func (s *Store) CollectionRowID(ctx context.Context, uid domain.Uid) (int64, error) {
	var id int64
	err := s.withRead(ctx, func() error {
		row := Builder.Select("id").From("collections").Where("uid = ?", uid.String()).RunWith(s.db).QueryRowContext(ctx)
		if err := row.Scan(&id); err != nil {
			if err == sql.ErrNoRows {
				return cerr.NotFound("collection %s not found", uid)
			}
			return cerr.Wrap(cerr.KindIO, err, "resolve collection row id")
		}
		return nil
	})
	return id, err
}

// UpdateCollection applies an optimistic-concurrency update: the supplied
// header's revision must match what's stored, or cerr.RevisionConflict is
// returned with the stored revision attached for the caller to rebase (§9).
func (s *Store) UpdateCollection(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	next := c.Header.Bump()
	err := s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			excluded, jerr := jsonStrings(c.MediaSource.ExcludedPaths).Value()
			if jerr != nil {
				return cerr.Wrap(cerr.KindInternal, jerr, "encode excluded paths")
			}
			res, err := Builder.Update("collections").
				Set("revision", int64(next.Revision)).
				Set("title", c.Title).
				Set("kind", string(c.Kind)).
				Set("notes", c.Notes).
				Set("color", nullableUint32(c.Color)).
				Set("path_kind", int(c.MediaSource.Kind)).
				Set("root_url", c.MediaSource.RootURL).
				Set("excluded_paths", excluded).
				Where("uid = ? AND revision = ?", c.Header.Uid.String(), int64(c.Header.Revision)).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "update collection")
			}
			n, _ := res.RowsAffected()
			if n == 0 {
				stored, getErr := s.currentCollectionRevision(ctx, tx, c.Header.Uid)
				if getErr != nil {
					return getErr
				}
				return cerr.RevisionConflict(stored, c.Header.Revision)
			}
			return nil
		})
	})
	if err != nil {
		return domain.Collection{}, err
	}
	c.Header = next
	return c, nil
}

func (s *Store) currentCollectionRevision(ctx context.Context, tx *sql.Tx, uid domain.Uid) (domain.Revision, error) {
	var revision int64
	row := Builder.Select("revision").From("collections").Where("uid = ?", uid.String()).RunWith(tx).QueryRowContext(ctx)
	err := row.Scan(&revision)
	if err == sql.ErrNoRows {
		return 0, cerr.NotFound("collection %s not found", uid)
	}
	if err != nil {
		return 0, cerr.Wrap(cerr.KindIO, err, "query collection revision")
	}
	return domain.Revision(revision), nil
}

// DeleteCollection removes a collection and cascades to every media source,
// track, and child row beneath it (§3 "deleting a collection deletes its
// media sources and tracks"). It never touches files on disk.
func (s *Store) DeleteCollection(ctx context.Context, uid domain.Uid) error {
	return s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			res, err := Builder.Delete("collections").Where("uid = ?", uid.String()).RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "delete collection")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return cerr.NotFound("collection %s not found", uid)
			}
			return nil
		})
	})
}
