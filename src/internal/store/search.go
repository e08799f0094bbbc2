package store

import (
	"context"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/search"
)

// SearchTracks compiles and runs q (C4) under the store's read gate, then
// resolves each matching row into a full track body. Search selects which
// rows match; loading stays the store's job, same division of labor as
// §2's dataflow note ("C4 is consulted by read paths only").
func (s *Store) SearchTracks(ctx context.Context, q search.Query) ([]domain.Track, error) {
	var out []domain.Track
	err := s.withRead(ctx, func() error {
		results, err := search.Execute(ctx, s.db, q)
		if err != nil {
			return err
		}
		out = make([]domain.Track, 0, len(results))
		for _, r := range results {
			t, err := s.loadTrackTx(ctx, s.db, r.Uid)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	return out, err
}

// CountTracks is the mirror count query (§4.4 "Pagination").
func (s *Store) CountTracks(ctx context.Context, q search.Query) (int64, error) {
	var n int64
	err := s.withRead(ctx, func() error {
		var err error
		n, err = search.Count(ctx, s.db, q)
		return err
	})
	return n, err
}
