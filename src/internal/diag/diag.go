// Package diag reports library-health diagnostics over the catalogue store:
// the Go-native analogue of the teacher's content.go
// AlbumsWithInconsistentTrackNumbers/InconsistentAlbums family and the
// tempo/loudness distribution report named in SPEC_FULL.md's DOMAIN STACK,
// operating on catalogue query results instead of an in-memory content tree.
package diag

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/search"
)

// Store is the subset of *store.Store diagnostics need: loading one track
// body by uid (the list of uids comes from search.Execute). Declared as an
// interface here so diag does not import store.
type Store interface {
	GetTrackByUid(ctx context.Context, uid domain.Uid) (domain.Track, error)
}

func allTracks(ctx context.Context, db search.Queryer, st Store) ([]domain.Track, error) {
	results, err := search.Execute(ctx, db, search.Query{Filter: search.AllFilter{}})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Track, 0, len(results))
	for _, r := range results {
		t, err := st.GetTrackByUid(ctx, r.Uid)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// MetricsDistribution summarizes a numeric metric (tempo or loudness) across
// the whole catalogue using montanaflynn/stats, mirroring the teacher's
// plain-text report style (content.go's space-padded column reports) but for
// a distribution rather than a per-row listing.
type MetricsDistribution struct {
	Metric       string
	SampleCount  int
	Mean, Median float64
	StdDev       float64
	Min, Max     float64
}

func distribution(metric string, samples []float64) (MetricsDistribution, error) {
	d := MetricsDistribution{Metric: metric, SampleCount: len(samples)}
	if len(samples) == 0 {
		return d, nil
	}
	var err error
	if d.Mean, err = stats.Mean(samples); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(samples); err != nil {
		return d, err
	}
	if d.StdDev, err = stats.StandardDeviation(samples); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(samples); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(samples); err != nil {
		return d, err
	}
	return d, nil
}

// TempoDistribution reports the tempo_bpm distribution across every track
// that carries one.
func TempoDistribution(ctx context.Context, db search.Queryer, st Store) (MetricsDistribution, error) {
	tracks, err := allTracks(ctx, db, st)
	if err != nil {
		return MetricsDistribution{}, err
	}
	var samples []float64
	for _, t := range tracks {
		if t.Metrics.TempoBpm != nil {
			samples = append(samples, *t.Metrics.TempoBpm)
		}
	}
	return distribution("tempo_bpm", samples)
}

// LoudnessDistribution reports the audio.loudness_lufs distribution across
// every media source that carries a measured value.
func LoudnessDistribution(ctx context.Context, db search.Queryer, st Store) (MetricsDistribution, error) {
	tracks, err := allTracks(ctx, db, st)
	if err != nil {
		return MetricsDistribution{}, err
	}
	var samples []float64
	for _, t := range tracks {
		if t.MediaSource.Audio.LoudnessLUFS != nil {
			samples = append(samples, *t.MediaSource.Audio.LoudnessLUFS)
		}
	}
	return distribution("loudness_lufs", samples)
}

// InconsistentTrackNumbering identifies an AlbumTrackNumbers key whose set of
// track numbers either repeats a number or has a gap, grounded on the
// teacher's AlbumsWithInconsistentTrackNumbers (content.go).
type InconsistentTrackNumbering struct {
	AlbumKey  string
	TrackUids []domain.Uid
}

// FindInconsistentTrackNumbering groups tracks by (album artist summary,
// album title) and flags groups whose track.indexes.track.n values overlap
// or skip, the same two checks as the teacher's loop over nums[t.trackNo].
func FindInconsistentTrackNumbering(ctx context.Context, db search.Queryer, st Store) ([]InconsistentTrackNumbering, error) {
	tracks, err := allTracks(ctx, db, st)
	if err != nil {
		return nil, err
	}

	type group struct {
		uids []domain.Uid
		nums map[int][]domain.Uid
	}
	groups := map[string]*group{}
	var order []string

	for _, t := range tracks {
		n := t.Indexes.Track.Number
		if n == nil {
			continue
		}
		artist := domain.Summary(t.Album.Actors, domain.ScopeAlbum, domain.RoleArtist, ", ")
		album := albumTitle(t)
		key := fmt.Sprintf("%s|%s", artist, album)
		g, ok := groups[key]
		if !ok {
			g = &group{nums: map[int][]domain.Uid{}}
			groups[key] = g
			order = append(order, key)
		}
		g.uids = append(g.uids, t.Header.Uid)
		g.nums[*n] = append(g.nums[*n], t.Header.Uid)
	}

	var out []InconsistentTrackNumbering
	for _, key := range order {
		g := groups[key]
		inconsistent := false
		for _, uids := range g.nums {
			if len(uids) > 1 {
				inconsistent = true
				break
			}
		}
		if !inconsistent {
			for i := 1; i <= len(g.nums); i++ {
				if _, ok := g.nums[i]; !ok {
					inconsistent = true
					break
				}
			}
		}
		if inconsistent {
			out = append(out, InconsistentTrackNumbering{AlbumKey: key, TrackUids: g.uids})
		}
	}
	return out, nil
}

func albumTitle(t domain.Track) string {
	for _, title := range t.Album.Titles.Items() {
		if title.Kind == domain.TitleMain {
			return title.Name
		}
	}
	return ""
}
