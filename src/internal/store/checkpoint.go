package store

import (
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang/snappy"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/mediatracker"
)

// checkpointPath is the sentinel directory row a collection's tracker
// checkpoint is stored under; individual file fingerprints are nested
// inside the blob rather than one row per file, since a scan's durable
// unit is "progress up to the last completed directory" (§4.5), not a
// per-file row.
const checkpointPath = "\x00checkpoint"

// SaveMediaTrackerCheckpoint persists the known-sources map for
// collectionID, snappy-compressed (SPEC_FULL.md DOMAIN STACK: "resuming a
// large scan doesn't require re-reading an uncompressed directory
// listing"), so an aborted scan (§8 scenario 6) can resume from where it
// left off under sync_mode=Modified.
func (s *Store) SaveMediaTrackerCheckpoint(ctx context.Context, collectionID int64, known map[string]mediatracker.KnownSource) error {
	raw, err := json.Marshal(known)
	if err != nil {
		return cerr.Wrap(cerr.KindInternal, err, "encode tracker checkpoint")
	}
	compressed := snappy.Encode(nil, raw)

	return s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			res, err := Builder.Update("media_tracker_directories").
				Set("digest", compressed).
				Where(sq.Eq{"collection_id": collectionID, "path": checkpointPath}).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "update tracker checkpoint")
			}
			if n, _ := res.RowsAffected(); n > 0 {
				return nil
			}
			_, err = Builder.Insert("media_tracker_directories").
				Columns("collection_id", "path", "status", "digest").
				Values(collectionID, checkpointPath, int(mediatracker.StatusCurrent), compressed).
				RunWith(tx).ExecContext(ctx)
			if err != nil {
				return cerr.Wrap(cerr.KindIO, err, "insert tracker checkpoint")
			}
			return nil
		})
	})
}

// LoadMediaTrackerCheckpoint loads the known-sources map previously saved by
// SaveMediaTrackerCheckpoint, or an empty map if none exists yet.
func (s *Store) LoadMediaTrackerCheckpoint(ctx context.Context, collectionID int64) (map[string]mediatracker.KnownSource, error) {
	out := map[string]mediatracker.KnownSource{}
	err := s.withRead(ctx, func() error {
		var compressed []byte
		row := Builder.Select("digest").From("media_tracker_directories").
			Where(sq.Eq{"collection_id": collectionID, "path": checkpointPath}).
			RunWith(s.db).QueryRowContext(ctx)
		if err := row.Scan(&compressed); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return cerr.Wrap(cerr.KindIO, err, "query tracker checkpoint")
		}
		if len(compressed) == 0 {
			return nil
		}
		raw, err := snappy.Decode(nil, compressed)
		if err != nil {
			return cerr.Wrap(cerr.KindParse, err, "decompress tracker checkpoint")
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}
