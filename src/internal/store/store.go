// Package store is the catalogue persistence layer (§4.3): collections,
// media sources and tracks live in a single SQLite database file per
// installation (spec.md §6), reached through database/sql with
// github.com/mattn/go-sqlite3 as the driver. Query construction goes
// through github.com/Masterminds/squirrel, the typed query-builder this
// package exposes to C4 (the search compiler) instead of raw SQL strings —
// the same pairing rosschurchill-navidrome's repository layer uses. Every
// mutating operation runs inside a transaction; every operation is gated by
// the read/write lock described in §5 before it touches the connection
// pool.
package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crateline/crateline/src/internal/cerr"
)

// Builder is the shared squirrel statement builder, configured for
// SQLite's '?' placeholder style. Every statement in C3 (this package) is
// built off of it; C4 (search) cannot import store and configures its own
// sq.StatementBuilder the same way.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store owns the database connection pool and the in-process concurrency
// gate that arbitrates readers against the single batch writer (§5).
type Store struct {
	db  *sql.DB
	log *logrus.Entry

	gate *gate
}

// Open opens (creating if absent) the SQLite catalogue file at path and
// ensures the schema exists. path is typically a filesystem path; ":memory:"
// is accepted for tests.
func Open(ctx context.Context, path string, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, cerr.Wrap(cerr.KindIO, err, "open catalogue database")
	}
	// SQLite allows only one writer; a single shared connection avoids
	// SQLITE_BUSY from the driver's own pool racing our gate.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, cerr.Wrap(cerr.KindIO, err, "ping catalogue database")
	}

	if log == nil {
		log = logrus.New()
	}
	s := &Store{db: db, log: log.WithField("component", "store"), gate: newGate()}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("catalogue store ready")
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// RequestAbort asks any running batch write to cancel at its next
// directory/file boundary (§5 "read-lock acquisition implicitly requests
// cancellation").
func (s *Store) RequestAbort() { s.gate.requestAbort() }

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return cerr.Wrap(cerr.KindIO, err, "create catalogue schema")
	}
	return nil
}

// schemaDDL creates every table and view the catalogue needs. It is applied
// idempotently (IF NOT EXISTS) on every Open, the same way CineVault's
// db.Migrate applies its numbered .up.sql files — this catalogue's schema
// is simple enough that one idempotent statement block serves the same
// purpose without a migrations directory. schemaSQLiteVersion names the
// schema's version; ensureSchema does not write it to PRAGMA user_version.
const schemaSQLiteVersion = 1

const schemaDDL = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS collections (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	uid               TEXT NOT NULL UNIQUE,
	revision          INTEGER NOT NULL,
	title             TEXT NOT NULL DEFAULT '',
	kind              TEXT NOT NULL DEFAULT '',
	notes             TEXT NOT NULL DEFAULT '',
	color             INTEGER,
	path_kind         INTEGER NOT NULL DEFAULT 0,
	root_url          TEXT NOT NULL DEFAULT '',
	excluded_paths    TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS media_sources (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	collection_id     INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	content_path      TEXT NOT NULL,
	content_revision  INTEGER,
	content_type      TEXT NOT NULL DEFAULT '',
	collected_at      INTEGER NOT NULL DEFAULT 0,
	advisory_rating   INTEGER,
	audio_duration_ms REAL NOT NULL DEFAULT 0,
	audio_channels    INTEGER NOT NULL DEFAULT 0,
	audio_sample_rate_hz INTEGER NOT NULL DEFAULT 0,
	audio_bitrate_bps INTEGER NOT NULL DEFAULT 0,
	audio_loudness_lufs REAL,
	audio_encoder     TEXT NOT NULL DEFAULT '',
	artwork_embedded  INTEGER NOT NULL DEFAULT 0,
	artwork_apic_type INTEGER NOT NULL DEFAULT 0,
	artwork_media_type TEXT NOT NULL DEFAULT '',
	artwork_digest    BLOB,
	artwork_size      INTEGER NOT NULL DEFAULT 0,
	UNIQUE (collection_id, content_path)
);

CREATE TABLE IF NOT EXISTS tracks (
	row_id              INTEGER PRIMARY KEY AUTOINCREMENT,
	uid                 TEXT NOT NULL UNIQUE,
	revision            INTEGER NOT NULL,
	media_source_id     INTEGER NOT NULL UNIQUE REFERENCES media_sources(id) ON DELETE CASCADE,
	collection_id       INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	album_kind          INTEGER NOT NULL DEFAULT 0,
	color               INTEGER,
	track_number        INTEGER,
	track_total         INTEGER,
	disc_number         INTEGER,
	disc_total          INTEGER,
	movement_number     INTEGER,
	movement_total      INTEGER,
	tempo_bpm           REAL,
	key_signature       INTEGER,
	metrics_flags       TEXT NOT NULL DEFAULT '[]',
	recorded_at         INTEGER,
	released_at         INTEGER,
	released_orig_at    INTEGER,
	publisher           TEXT NOT NULL DEFAULT '',
	copyright           TEXT NOT NULL DEFAULT '',
	advisory_rating     INTEGER,
	last_synchronized_rev INTEGER
);

CREATE TABLE IF NOT EXISTS track_titles (
	track_uid TEXT NOT NULL REFERENCES tracks(uid) ON DELETE CASCADE,
	scope     INTEGER NOT NULL,
	kind      INTEGER NOT NULL,
	name      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_track_titles_track ON track_titles(track_uid);

CREATE TABLE IF NOT EXISTS track_actors (
	track_uid TEXT NOT NULL REFERENCES tracks(uid) ON DELETE CASCADE,
	scope     INTEGER NOT NULL,
	role      INTEGER NOT NULL,
	kind      INTEGER NOT NULL,
	name      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_track_actors_track ON track_actors(track_uid);

CREATE TABLE IF NOT EXISTS track_tags (
	track_uid TEXT NOT NULL REFERENCES tracks(uid) ON DELETE CASCADE,
	facet     TEXT NOT NULL DEFAULT '',
	label     TEXT NOT NULL DEFAULT '',
	score     REAL NOT NULL DEFAULT 1.0
);
CREATE INDEX IF NOT EXISTS idx_track_tags_track ON track_tags(track_uid);
CREATE INDEX IF NOT EXISTS idx_track_tags_facet_label ON track_tags(facet, label);

CREATE TABLE IF NOT EXISTS track_cues (
	track_uid      TEXT NOT NULL REFERENCES tracks(uid) ON DELETE CASCADE,
	bank_idx       INTEGER NOT NULL,
	slot_idx       INTEGER NOT NULL,
	in_position_ms INTEGER,
	out_position_ms INTEGER,
	kind           TEXT NOT NULL DEFAULT '',
	label          TEXT NOT NULL DEFAULT '',
	color          INTEGER
);
CREATE INDEX IF NOT EXISTS idx_track_cues_track ON track_cues(track_uid);

CREATE TABLE IF NOT EXISTS playlists (
	uid      TEXT PRIMARY KEY,
	revision INTEGER NOT NULL,
	title    TEXT NOT NULL DEFAULT '',
	kind     TEXT NOT NULL DEFAULT '',
	color    INTEGER
);

CREATE TABLE IF NOT EXISTS playlist_entries (
	playlist_uid TEXT NOT NULL REFERENCES playlists(uid) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	track_uid    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_playlist_entries_playlist ON playlist_entries(playlist_uid);

CREATE TABLE IF NOT EXISTS media_tracker_directories (
	collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	path          TEXT NOT NULL,
	status        INTEGER NOT NULL DEFAULT 0,
	digest        BLOB,
	UNIQUE (collection_id, path)
);
CREATE INDEX IF NOT EXISTS idx_mtd_collection ON media_tracker_directories(collection_id);

DROP VIEW IF EXISTS view_track_search;
CREATE VIEW view_track_search AS
SELECT
	t.row_id,
	t.uid,
	t.revision,
	t.collection_id,
	ms.content_path,
	ms.content_type,
	ms.content_revision,
	ms.collected_at,
	ms.advisory_rating AS source_advisory_rating,
	ms.audio_duration_ms,
	ms.audio_channels,
	ms.audio_sample_rate_hz,
	ms.audio_bitrate_bps,
	ms.audio_loudness_lufs,
	t.album_kind,
	t.track_number,
	t.track_total,
	t.disc_number,
	t.disc_total,
	t.movement_number,
	t.movement_total,
	t.tempo_bpm,
	t.key_signature,
	t.recorded_at,
	t.released_at,
	t.released_orig_at,
	t.publisher,
	t.copyright,
	t.advisory_rating,
	t.last_synchronized_rev
FROM tracks t
JOIN media_sources ms ON ms.id = t.media_source_id;
`

// execer is satisfied by both *sql.DB and *sql.Tx; repository methods accept
// it so callers can choose to run inside an existing transaction, and so
// squirrel statements (which accept any Execer/QueryerContext) compose
// cleanly across both.
type execer interface {
	sq.BaseRunner
	sq.ExecerContext
	sq.QueryerContext
	sq.QueryRowerContext
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return cerr.Wrap(cerr.KindIO, txErr, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return cerr.Wrap(cerr.KindIO, err, "commit transaction")
	}
	return nil
}
