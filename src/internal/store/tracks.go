package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// trackLookup holds a track's internal row_id and uid/revision/media
// source id, as findTrackByContentPath resolves them by collection and
// content path, the lookup key §4.5 "Replace semantics" rule 1 names.
type trackLookup struct {
	RowID              int64
	Uid                domain.Uid
	Revision           domain.Revision
	MediaSourceID      int64
	LastSynchronizedRev *domain.Revision
	CollectedAt        int64
}

func (s *Store) findTrackByContentPath(ctx context.Context, tx execer, collectionID int64, path string) (trackLookup, bool, error) {
	row := Builder.Select("t.row_id", "t.uid", "t.revision", "t.media_source_id", "t.last_synchronized_rev", "ms.collected_at").
		From("tracks t").
		Join("media_sources ms ON ms.id = t.media_source_id").
		Where(sq.Eq{"t.collection_id": collectionID, "ms.content_path": path}).
		RunWith(tx).QueryRowContext(ctx)

	var l trackLookup
	var uidStr string
	var lastSync sql.NullInt64
	if err := row.Scan(&l.RowID, &uidStr, &l.Revision, &l.MediaSourceID, &lastSync, &l.CollectedAt); err != nil {
		if err == sql.ErrNoRows {
			return trackLookup{}, false, nil
		}
		return trackLookup{}, false, cerr.Wrap(cerr.KindIO, err, "lookup track by content path")
	}
	uid, err := domain.ParseUid(uidStr)
	if err != nil {
		return trackLookup{}, false, cerr.Wrap(cerr.KindInternal, err, "parse stored track uid")
	}
	l.Uid = uid
	if lastSync.Valid {
		r := domain.Revision(lastSync.Int64)
		l.LastSynchronizedRev = &r
	}
	return l, true, nil
}

// GetTrackByUid loads a full track body (media source + child collections)
// by its public uid.
func (s *Store) GetTrackByUid(ctx context.Context, uid domain.Uid) (domain.Track, error) {
	var t domain.Track
	err := s.withRead(ctx, func() error {
		loaded, err := s.loadTrackTx(ctx, s.db, uid)
		if err != nil {
			return err
		}
		t = loaded
		return nil
	})
	return t, err
}

func (s *Store) loadTrackTx(ctx context.Context, tx execer, uid domain.Uid) (domain.Track, error) {
	var t domain.Track
	row := Builder.Select(
		"t.revision", "t.collection_id", "t.album_kind", "t.color",
		"t.track_number", "t.track_total", "t.disc_number", "t.disc_total",
		"t.movement_number", "t.movement_total", "t.tempo_bpm", "t.key_signature",
		"t.metrics_flags", "t.recorded_at", "t.released_at", "t.released_orig_at",
		"t.publisher", "t.copyright", "t.advisory_rating", "t.last_synchronized_rev",
		"ms.id", "ms.content_path", "ms.content_revision", "ms.content_type", "ms.collected_at",
		"ms.advisory_rating", "ms.audio_duration_ms", "ms.audio_channels", "ms.audio_sample_rate_hz",
		"ms.audio_bitrate_bps", "ms.audio_loudness_lufs", "ms.audio_encoder",
		"ms.artwork_embedded", "ms.artwork_apic_type", "ms.artwork_media_type",
		"ms.artwork_digest", "ms.artwork_size",
	).From("tracks t").Join("media_sources ms ON ms.id = t.media_source_id").
		Where(sq.Eq{"t.uid": uid.String()}).RunWith(tx).QueryRowContext(ctx)

	var revision int64
	var color sql.NullInt64
	var trackN, trackTotal, discN, discTotal, movN, movTotal sql.NullInt64
	var tempo sql.NullFloat64
	var keySig sql.NullInt64
	var flags jsonStrings
	var recordedAt, releasedAt, releasedOrigAt sql.NullInt64
	var advisory sql.NullInt64
	var lastSync sql.NullInt64
	var msID int64
	var contentRev sql.NullInt64
	var msAdvisory sql.NullInt64
	var loudness sql.NullFloat64
	var artworkEmbedded bool
	var artworkDigest []byte

	if err := row.Scan(
		&revision, &t.MediaSource.CollectionID, &t.Album.Kind, &color,
		&trackN, &trackTotal, &discN, &discTotal, &movN, &movTotal,
		&tempo, &keySig, &flags, &recordedAt, &releasedAt, &releasedOrigAt,
		&t.Publisher, &t.Copyright, &advisory, &lastSync,
		&msID, &t.MediaSource.ContentLink.Path, &contentRev, &t.MediaSource.ContentType, &t.MediaSource.CollectedAt,
		&msAdvisory, &t.MediaSource.Audio.DurationMs, &t.MediaSource.Audio.Channels, &t.MediaSource.Audio.SampleRateHz,
		&t.MediaSource.Audio.BitrateBps, &loudness, &t.MediaSource.Audio.Encoder,
		&artworkEmbedded, &t.MediaSource.Artwork.APICType, &t.MediaSource.Artwork.MediaType,
		&artworkDigest, &t.MediaSource.Artwork.Size,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Track{}, cerr.NotFound("track %s not found", uid)
		}
		return domain.Track{}, cerr.Wrap(cerr.KindIO, err, "query track")
	}

	t.Header = domain.EntityHeader{Uid: uid, Revision: domain.Revision(revision)}
	t.Color = colorFromNull(color)
	t.Indexes.Track = domain.IndexPair{Number: intFromNull(trackN), Total: intFromNull(trackTotal)}
	t.Indexes.Disc = domain.IndexPair{Number: intFromNull(discN), Total: intFromNull(discTotal)}
	t.Indexes.Movement = domain.IndexPair{Number: intFromNull(movN), Total: intFromNull(movTotal)}
	t.Metrics.TempoBpm = float64FromNull(tempo)
	if keySig.Valid {
		v := int16(keySig.Int64)
		t.Metrics.KeySignature = &v
	}
	t.Metrics.Flags = stringsToFlags(flags)
	t.RecordedAt = int64FromNull(recordedAt)
	t.ReleasedAt = int64FromNull(releasedAt)
	t.ReleasedOrigAt = int64FromNull(releasedOrigAt)
	t.AdvisoryRating = intFromNull(advisory)
	if lastSync.Valid {
		r := domain.Revision(lastSync.Int64)
		t.LastSynchronizedRev = &r
	}
	t.MediaSource.ID = msID
	t.MediaSource.ContentLink.Revision = int64FromNull(contentRev)
	t.MediaSource.AdvisoryRating = intFromNull(msAdvisory)
	t.MediaSource.Audio.LoudnessLUFS = float64FromNull(loudness)
	t.MediaSource.Artwork.Embedded = artworkEmbedded
	t.MediaSource.Artwork.Digest = artworkDigest

	titles, err := s.loadTitles(ctx, tx, uid)
	if err != nil {
		return domain.Track{}, err
	}
	actors, err := s.loadActors(ctx, tx, uid)
	if err != nil {
		return domain.Track{}, err
	}
	tags, err := s.loadTags(ctx, tx, uid)
	if err != nil {
		return domain.Track{}, err
	}
	cues, err := s.loadCues(ctx, tx, uid)
	if err != nil {
		return domain.Track{}, err
	}
	t.Titles = domain.CanonicalTitles(splitTitlesByScope(titles, domain.ScopeTrack))
	t.Album.Titles = domain.CanonicalTitles(splitTitlesByScope(titles, domain.ScopeAlbum))
	t.Actors = domain.CanonicalActors(splitActorsByScope(actors, domain.ScopeTrack))
	t.Album.Actors = domain.CanonicalActors(splitActorsByScope(actors, domain.ScopeAlbum))
	t.Tags = tags
	t.Cues = cues
	return t, nil
}

func (s *Store) loadTitles(ctx context.Context, tx execer, uid domain.Uid) (domain.Canonical[domain.Title], error) {
	rows, err := Builder.Select("scope", "kind", "name").From("track_titles").
		Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).QueryContext(ctx)
	if err != nil {
		return domain.Canonical[domain.Title]{}, cerr.Wrap(cerr.KindIO, err, "query titles")
	}
	defer rows.Close()
	var out []domain.Title
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.Scope, &t.Kind, &t.Name); err != nil {
			return domain.Canonical[domain.Title]{}, cerr.Wrap(cerr.KindIO, err, "scan title")
		}
		out = append(out, t)
	}
	return titlesFromRows(out), rows.Err()
}

func (s *Store) loadActors(ctx context.Context, tx execer, uid domain.Uid) (domain.Canonical[domain.Actor], error) {
	rows, err := Builder.Select("scope", "role", "kind", "name").From("track_actors").
		Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).QueryContext(ctx)
	if err != nil {
		return domain.Canonical[domain.Actor]{}, cerr.Wrap(cerr.KindIO, err, "query actors")
	}
	defer rows.Close()
	var out []domain.Actor
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.Scope, &a.Role, &a.Kind, &a.Name); err != nil {
			return domain.Canonical[domain.Actor]{}, cerr.Wrap(cerr.KindIO, err, "scan actor")
		}
		out = append(out, a)
	}
	return actorsFromRows(out), rows.Err()
}

func (s *Store) loadTags(ctx context.Context, tx execer, uid domain.Uid) (domain.Canonical[domain.Tag], error) {
	rows, err := Builder.Select("facet", "label", "score").From("track_tags").
		Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).QueryContext(ctx)
	if err != nil {
		return domain.Canonical[domain.Tag]{}, cerr.Wrap(cerr.KindIO, err, "query tags")
	}
	defer rows.Close()
	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Facet, &t.Label, &t.Score); err != nil {
			return domain.Canonical[domain.Tag]{}, cerr.Wrap(cerr.KindIO, err, "scan tag")
		}
		out = append(out, t)
	}
	return tagsFromRows(out), rows.Err()
}

func (s *Store) loadCues(ctx context.Context, tx execer, uid domain.Uid) (domain.Canonical[domain.Cue], error) {
	rows, err := Builder.Select("bank_idx", "slot_idx", "in_position_ms", "out_position_ms", "kind", "label", "color").
		From("track_cues").Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).QueryContext(ctx)
	if err != nil {
		return domain.Canonical[domain.Cue]{}, cerr.Wrap(cerr.KindIO, err, "query cues")
	}
	defer rows.Close()
	var out []domain.Cue
	for rows.Next() {
		var c domain.Cue
		var in, outp sql.NullInt64
		var color sql.NullInt64
		if err := rows.Scan(&c.BankIdx, &c.SlotIdx, &in, &outp, &c.Kind, &c.Label, &color); err != nil {
			return domain.Canonical[domain.Cue]{}, cerr.Wrap(cerr.KindIO, err, "scan cue")
		}
		c.InPositionMs = int64FromNull(in)
		c.OutPositionMs = int64FromNull(outp)
		c.Color = colorFromNull(color)
		out = append(out, c)
	}
	return cuesFromRows(out), rows.Err()
}

// ReplaceMode selects the create/update discipline of ReplaceTrackByContentPath
// (§4.5 "Replace semantics").
type ReplaceMode int

const (
	ReplaceCreateOnly ReplaceMode = iota
	ReplaceUpdateOnly
	ReplaceUpdateOrCreate
)

// ReplaceParams parametrizes the replace operation (§4.5).
type ReplaceParams struct {
	Mode                    ReplaceMode
	PreserveCollectedAt     bool
	UpdateLastSynchronizedRev bool
}

// ReplaceOutcome is the tagged result of ReplaceTrackByContentPath (§4.5
// rule 6).
type ReplaceOutcome int

const (
	ReplaceCreated ReplaceOutcome = iota
	ReplaceUpdated
	ReplaceUnchanged
	ReplaceNotCreated
	ReplaceNotUpdated
)

func (o ReplaceOutcome) String() string {
	switch o {
	case ReplaceCreated:
		return "Created"
	case ReplaceUpdated:
		return "Updated"
	case ReplaceUnchanged:
		return "Unchanged"
	case ReplaceNotCreated:
		return "NotCreated"
	case ReplaceNotUpdated:
		return "NotUpdated"
	default:
		return "Unknown"
	}
}

// ReplaceTrackByContentPath implements §4.5 "Replace semantics": resolve
// (collection_id, content_path) to an existing track (if any), then create,
// update, or report Unchanged per params.Mode. track.MediaSource.CollectionID
// and .ContentLink.Path select the target row; the rest of track is the
// candidate body to write.
func (s *Store) ReplaceTrackByContentPath(ctx context.Context, track domain.Track, params ReplaceParams, now int64) (domain.Track, ReplaceOutcome, error) {
	var result domain.Track
	var outcome ReplaceOutcome
	err := s.withWrite(ctx, func() error {
		return s.withTx(ctx, func(tx *sql.Tx) error {
			collectionID := track.MediaSource.CollectionID
			path := track.MediaSource.ContentLink.Path

			existing, found, err := s.findTrackByContentPath(ctx, tx, collectionID, path)
			if err != nil {
				return err
			}

			if !found {
				if params.Mode == ReplaceUpdateOnly {
					outcome = ReplaceNotCreated
					return nil
				}
				created, cErr := s.insertTrack(ctx, tx, track, params, now)
				if cErr != nil {
					return cErr
				}
				result = created
				outcome = ReplaceCreated
				return nil
			}

			if params.Mode == ReplaceCreateOnly {
				outcome = ReplaceNotUpdated
				return nil
			}

			stored, err := s.loadTrackTx(ctx, tx, existing.Uid)
			if err != nil {
				return err
			}

			lastSyncSatisfied := true
			if params.UpdateLastSynchronizedRev {
				lastSyncSatisfied = stored.LastSynchronizedRev != nil && *stored.LastSynchronizedRev == stored.Header.Revision
			}
			if domain.BodyEqual(stored, track) && lastSyncSatisfied {
				result = stored
				outcome = ReplaceUnchanged
				return nil
			}

			if params.PreserveCollectedAt {
				track.MediaSource.CollectedAt = stored.MediaSource.CollectedAt
			}
			track.Header = stored.Header.Bump()
			updated, uErr := s.updateTrack(ctx, tx, existing.Uid, existing.MediaSourceID, track, params)
			if uErr != nil {
				return uErr
			}
			result = updated
			outcome = ReplaceUpdated
			return nil
		})
	})
	return result, outcome, err
}

func (s *Store) insertTrack(ctx context.Context, tx *sql.Tx, track domain.Track, params ReplaceParams, now int64) (domain.Track, error) {
	if track.MediaSource.CollectedAt == 0 {
		track.MediaSource.CollectedAt = now
	}
	msID, err := s.insertMediaSource(ctx, tx, track.MediaSource)
	if err != nil {
		return domain.Track{}, err
	}
	track.Header = domain.NewEntityHeader()
	track.MediaSource.ID = msID
	if params.UpdateLastSynchronizedRev && track.MediaSource.ContentLink.Revision != nil {
		r := track.Header.Revision
		track.LastSynchronizedRev = &r
	} else {
		track.LastSynchronizedRev = nil
	}
	if err := s.insertTrackRow(ctx, tx, track, msID); err != nil {
		return domain.Track{}, err
	}
	if err := s.replaceTrackChildren(ctx, tx, track); err != nil {
		return domain.Track{}, err
	}
	return track, nil
}

func (s *Store) updateTrack(ctx context.Context, tx *sql.Tx, uid domain.Uid, msID int64, track domain.Track, params ReplaceParams) (domain.Track, error) {
	track.MediaSource.ID = msID
	if params.UpdateLastSynchronizedRev && track.MediaSource.ContentLink.Revision != nil {
		r := track.Header.Revision
		track.LastSynchronizedRev = &r
	} else {
		track.LastSynchronizedRev = nil
	}
	if err := s.updateMediaSource(ctx, tx, msID, track.MediaSource); err != nil {
		return domain.Track{}, err
	}
	if err := s.updateTrackRow(ctx, tx, uid, track); err != nil {
		return domain.Track{}, err
	}
	if _, err := Builder.Delete("track_titles").Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).ExecContext(ctx); err != nil {
		return domain.Track{}, cerr.Wrap(cerr.KindIO, err, "clear titles")
	}
	if _, err := Builder.Delete("track_actors").Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).ExecContext(ctx); err != nil {
		return domain.Track{}, cerr.Wrap(cerr.KindIO, err, "clear actors")
	}
	if _, err := Builder.Delete("track_tags").Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).ExecContext(ctx); err != nil {
		return domain.Track{}, cerr.Wrap(cerr.KindIO, err, "clear tags")
	}
	if _, err := Builder.Delete("track_cues").Where(sq.Eq{"track_uid": uid.String()}).RunWith(tx).ExecContext(ctx); err != nil {
		return domain.Track{}, cerr.Wrap(cerr.KindIO, err, "clear cues")
	}
	track.Header.Uid = uid
	if err := s.replaceTrackChildren(ctx, tx, track); err != nil {
		return domain.Track{}, err
	}
	return track, nil
}

func (s *Store) insertMediaSource(ctx context.Context, tx *sql.Tx, ms domain.MediaSource) (int64, error) {
	res, err := Builder.Insert("media_sources").
		Columns("collection_id", "content_path", "content_revision", "content_type", "collected_at",
			"advisory_rating", "audio_duration_ms", "audio_channels", "audio_sample_rate_hz",
			"audio_bitrate_bps", "audio_loudness_lufs", "audio_encoder",
			"artwork_embedded", "artwork_apic_type", "artwork_media_type", "artwork_digest", "artwork_size").
		Values(ms.CollectionID, ms.ContentLink.Path, nullableInt64(ms.ContentLink.Revision), ms.ContentType, ms.CollectedAt,
			nullableInt(ms.AdvisoryRating), ms.Audio.DurationMs, ms.Audio.Channels, ms.Audio.SampleRateHz,
			ms.Audio.BitrateBps, nullableFloat64(ms.Audio.LoudnessLUFS), ms.Audio.Encoder,
			ms.Artwork.Embedded, int(ms.Artwork.APICType), ms.Artwork.MediaType, ms.Artwork.Digest, ms.Artwork.Size).
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return 0, cerr.Wrap(cerr.KindIO, err, "insert media source")
	}
	return res.LastInsertId()
}

func (s *Store) updateMediaSource(ctx context.Context, tx *sql.Tx, id int64, ms domain.MediaSource) error {
	_, err := Builder.Update("media_sources").
		Set("content_path", ms.ContentLink.Path).
		Set("content_revision", nullableInt64(ms.ContentLink.Revision)).
		Set("content_type", ms.ContentType).
		Set("collected_at", ms.CollectedAt).
		Set("advisory_rating", nullableInt(ms.AdvisoryRating)).
		Set("audio_duration_ms", ms.Audio.DurationMs).
		Set("audio_channels", ms.Audio.Channels).
		Set("audio_sample_rate_hz", ms.Audio.SampleRateHz).
		Set("audio_bitrate_bps", ms.Audio.BitrateBps).
		Set("audio_loudness_lufs", nullableFloat64(ms.Audio.LoudnessLUFS)).
		Set("audio_encoder", ms.Audio.Encoder).
		Set("artwork_embedded", ms.Artwork.Embedded).
		Set("artwork_apic_type", int(ms.Artwork.APICType)).
		Set("artwork_media_type", ms.Artwork.MediaType).
		Set("artwork_digest", ms.Artwork.Digest).
		Set("artwork_size", ms.Artwork.Size).
		Where(sq.Eq{"id": id}).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return cerr.Wrap(cerr.KindIO, err, "update media source")
	}
	return nil
}

func (s *Store) insertTrackRow(ctx context.Context, tx *sql.Tx, t domain.Track, msID int64) error {
	flags, jerr := jsonStrings(flagsToStrings(t.Metrics.Flags)).Value()
	if jerr != nil {
		return cerr.Wrap(cerr.KindInternal, jerr, "encode metrics flags")
	}
	_, err := Builder.Insert("tracks").
		Columns("uid", "revision", "media_source_id", "collection_id", "album_kind", "color",
			"track_number", "track_total", "disc_number", "disc_total", "movement_number", "movement_total",
			"tempo_bpm", "key_signature", "metrics_flags", "recorded_at", "released_at", "released_orig_at",
			"publisher", "copyright", "advisory_rating", "last_synchronized_rev").
		Values(t.Header.Uid.String(), int64(t.Header.Revision), msID, t.MediaSource.CollectionID, int(t.Album.Kind), nullableUint32(t.Color),
			nullableInt(t.Indexes.Track.Number), nullableInt(t.Indexes.Track.Total),
			nullableInt(t.Indexes.Disc.Number), nullableInt(t.Indexes.Disc.Total),
			nullableInt(t.Indexes.Movement.Number), nullableInt(t.Indexes.Movement.Total),
			nullableFloat64(t.Metrics.TempoBpm), keySigToNull(t.Metrics.KeySignature), flags,
			nullableInt64(t.RecordedAt), nullableInt64(t.ReleasedAt), nullableInt64(t.ReleasedOrigAt),
			t.Publisher, t.Copyright, nullableInt(t.AdvisoryRating), revisionToNull(t.LastSynchronizedRev)).
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return cerr.Wrap(cerr.KindIO, err, "insert track")
	}
	return nil
}

func (s *Store) updateTrackRow(ctx context.Context, tx *sql.Tx, uid domain.Uid, t domain.Track) error {
	flags, jerr := jsonStrings(flagsToStrings(t.Metrics.Flags)).Value()
	if jerr != nil {
		return cerr.Wrap(cerr.KindInternal, jerr, "encode metrics flags")
	}
	_, err := Builder.Update("tracks").
		Set("revision", int64(t.Header.Revision)).
		Set("album_kind", int(t.Album.Kind)).
		Set("color", nullableUint32(t.Color)).
		Set("track_number", nullableInt(t.Indexes.Track.Number)).
		Set("track_total", nullableInt(t.Indexes.Track.Total)).
		Set("disc_number", nullableInt(t.Indexes.Disc.Number)).
		Set("disc_total", nullableInt(t.Indexes.Disc.Total)).
		Set("movement_number", nullableInt(t.Indexes.Movement.Number)).
		Set("movement_total", nullableInt(t.Indexes.Movement.Total)).
		Set("tempo_bpm", nullableFloat64(t.Metrics.TempoBpm)).
		Set("key_signature", keySigToNull(t.Metrics.KeySignature)).
		Set("metrics_flags", flags).
		Set("recorded_at", nullableInt64(t.RecordedAt)).
		Set("released_at", nullableInt64(t.ReleasedAt)).
		Set("released_orig_at", nullableInt64(t.ReleasedOrigAt)).
		Set("publisher", t.Publisher).
		Set("copyright", t.Copyright).
		Set("advisory_rating", nullableInt(t.AdvisoryRating)).
		Set("last_synchronized_rev", revisionToNull(t.LastSynchronizedRev)).
		Where(sq.Eq{"uid": uid.String()}).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return cerr.Wrap(cerr.KindIO, err, "update track")
	}
	return nil
}

func (s *Store) replaceTrackChildren(ctx context.Context, tx *sql.Tx, t domain.Track) error {
	uid := t.Header.Uid.String()
	for _, title := range t.Titles.Items() {
		if err := insertTitle(ctx, tx, uid, title); err != nil {
			return err
		}
	}
	for _, title := range t.Album.Titles.Items() {
		if err := insertTitle(ctx, tx, uid, title); err != nil {
			return err
		}
	}
	for _, actor := range t.Actors.Items() {
		if err := insertActor(ctx, tx, uid, actor); err != nil {
			return err
		}
	}
	for _, actor := range t.Album.Actors.Items() {
		if err := insertActor(ctx, tx, uid, actor); err != nil {
			return err
		}
	}
	for _, tag := range t.Tags.Items() {
		if _, err := Builder.Insert("track_tags").Columns("track_uid", "facet", "label", "score").
			Values(uid, tag.Facet, tag.Label, tag.Score).RunWith(tx).ExecContext(ctx); err != nil {
			return cerr.Wrap(cerr.KindIO, err, "insert tag")
		}
	}
	for _, cue := range t.Cues.Items() {
		if _, err := Builder.Insert("track_cues").
			Columns("track_uid", "bank_idx", "slot_idx", "in_position_ms", "out_position_ms", "kind", "label", "color").
			Values(uid, cue.BankIdx, cue.SlotIdx, nullableInt64(cue.InPositionMs), nullableInt64(cue.OutPositionMs), string(cue.Kind), cue.Label, nullableUint32(cue.Color)).
			RunWith(tx).ExecContext(ctx); err != nil {
			return cerr.Wrap(cerr.KindIO, err, "insert cue")
		}
	}
	return nil
}

func insertTitle(ctx context.Context, tx *sql.Tx, uid string, t domain.Title) error {
	_, err := Builder.Insert("track_titles").Columns("track_uid", "scope", "kind", "name").
		Values(uid, int(t.Scope), int(t.Kind), t.Name).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return cerr.Wrap(cerr.KindIO, err, "insert title")
	}
	return nil
}

func insertActor(ctx context.Context, tx *sql.Tx, uid string, a domain.Actor) error {
	_, err := Builder.Insert("track_actors").Columns("track_uid", "scope", "role", "kind", "name").
		Values(uid, int(a.Scope), int(a.Role), int(a.Kind), a.Name).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return cerr.Wrap(cerr.KindIO, err, "insert actor")
	}
	return nil
}

func keySigToNull(v *int16) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func revisionToNull(v *domain.Revision) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// FindUnsynchronizedTracks lists tracks in collectionID satisfying §4.5
// "Finding unsynchronized tracks".
func (s *Store) FindUnsynchronizedTracks(ctx context.Context, collectionID int64) ([]domain.Uid, error) {
	var out []domain.Uid
	err := s.withRead(ctx, func() error {
		rows, err := Builder.Select("t.uid").From("tracks t").
			Join("media_sources ms ON ms.id = t.media_source_id").
			Where(sq.Eq{"t.collection_id": collectionID}).
			Where(sq.Or{
				sq.Eq{"ms.content_revision": nil},
				sq.Eq{"t.last_synchronized_rev": nil},
				sq.Expr("t.last_synchronized_rev <> t.revision"),
			}).
			RunWith(s.db).QueryContext(ctx)
		if err != nil {
			return cerr.Wrap(cerr.KindIO, err, "query unsynchronized tracks")
		}
		defer rows.Close()
		for rows.Next() {
			var uidStr string
			if err := rows.Scan(&uidStr); err != nil {
				return cerr.Wrap(cerr.KindIO, err, "scan unsynchronized track uid")
			}
			uid, perr := domain.ParseUid(uidStr)
			if perr != nil {
				return cerr.Wrap(cerr.KindInternal, perr, "parse stored track uid")
			}
			out = append(out, uid)
		}
		return rows.Err()
	})
	return out, err
}
