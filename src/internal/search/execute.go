package search

import (
	"context"
	"database/sql"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// Queryer is satisfied by *sql.DB and *sql.Tx; Execute and Count only read,
// so it asks for nothing more than QueryContext and QueryRowContext.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Result is one row of a compiled search, carrying just enough of
// view_track_search to resolve the full track by uid afterward — the
// compiler's job is selecting which tracks match, not reloading every
// child collection for each one (§4.4 is "consulted by read paths only").
type Result struct {
	RowID    int64
	Uid      domain.Uid
	Revision domain.Revision
}

// Execute runs q against db (typically the store's connection) and returns
// the matching rows in sorted/paginated order.
func Execute(ctx context.Context, db Queryer, q Query) ([]Result, error) {
	sel, err := Compile(q)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := sel.ToSql()
	if err != nil {
		return nil, cerr.Wrap(cerr.KindInternal, err, "build search query")
	}
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, cerr.Wrap(cerr.KindIO, err, "execute search query")
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var uidStr string
		var revision int64
		dst := make([]any, 24)
		dst[0] = &r.RowID
		dst[1] = &uidStr
		dst[2] = &revision
		for i := 3; i < len(dst); i++ {
			var discard sql.NullString
			dst[i] = &discard
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, cerr.Wrap(cerr.KindIO, err, "scan search row")
		}
		uid, perr := domain.ParseUid(uidStr)
		if perr != nil {
			return nil, cerr.Wrap(cerr.KindInternal, perr, "parse stored track uid")
		}
		r.Uid = uid
		r.Revision = domain.Revision(revision)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count runs the COUNT(*) mirror of q (§4.4 "Pagination").
func Count(ctx context.Context, db Queryer, q Query) (int64, error) {
	sel, err := CompileCount(q)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sel.ToSql()
	if err != nil {
		return 0, cerr.Wrap(cerr.KindInternal, err, "build count query")
	}
	var n int64
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, cerr.Wrap(cerr.KindIO, err, "execute count query")
	}
	return n, nil
}
