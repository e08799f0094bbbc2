package search

import (
	"fmt"
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/crateline/crateline/src/internal/cerr"
	"github.com/crateline/crateline/src/internal/domain"
)

// likeEscape is the escape character §4.4 "String predicate decomposition"
// names explicitly; '%' and '\' in user input are escaped with it before
// being wrapped in LIKE wildcards.
const likeEscape = `\`

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, likeEscape, likeEscape+likeEscape)
	s = strings.ReplaceAll(s, "%", likeEscape+"%")
	s = strings.ReplaceAll(s, "_", likeEscape+"_")
	return s
}

// stringFieldColumns covers the direct view_track_search columns §4.4 names
// ("String fields include ContentPath, ContentType, Copyright, Publisher").
var stringFieldColumns = map[StringField]string{
	FieldContentPath: "content_path",
	FieldContentType: "content_type",
	FieldCopyright:   "copyright",
	FieldPublisher:   "publisher",
}

// titleScopedStringFields covers the two title-backed phrase fields (§8
// scenario 5 uses Phrase{fields:[TrackTitle]}): these resolve through a
// track_titles subselect rather than a direct view_track_search column.
var titleScopedStringFields = map[StringField]domain.Scope{
	FieldTrackTitle: domain.ScopeTrack,
	FieldAlbumTitle: domain.ScopeAlbum,
}

var numericFieldColumns = map[NumericField]string{
	FieldAudioDurationMs:   "audio_duration_ms",
	FieldAudioBitrateBps:   "audio_bitrate_bps",
	FieldAudioSampleRateHz: "audio_sample_rate_hz",
	FieldAudioChannels:     "audio_channels",
	FieldAudioLoudnessLUFS: "audio_loudness_lufs",
	FieldAdvisoryRating:    "advisory_rating",
	FieldTrackNumber:       "track_number",
	FieldTrackTotal:        "track_total",
	FieldDiscNumber:        "disc_number",
	FieldDiscTotal:         "disc_total",
	FieldMusicTempoBpm:     "tempo_bpm",
	FieldMusicKeySignature: "key_signature",
}

var dateTimeFieldColumns = map[DateTimeField]string{
	FieldRecordedAt:     "recorded_at",
	FieldReleasedAt:     "released_at",
	FieldReleasedOrigAt: "released_orig_at",
}

var sortFieldColumns = map[SortField]string{
	SortAudioDurationMs:    "audio_duration_ms",
	SortAudioBitrateBps:    "audio_bitrate_bps",
	SortAudioSampleRateHz:  "audio_sample_rate_hz",
	SortAudioChannels:      "audio_channels",
	SortAudioLoudnessLUFS:  "audio_loudness_lufs",
	SortTrackNumber:        "track_number",
	SortDiscNumber:         "disc_number",
	SortRecordedAt:         "recorded_at",
	SortReleasedAt:         "released_at",
	SortReleasedOrigAt:     "released_orig_at",
	SortMusicTempoBpm:      "tempo_bpm",
	SortMusicKeySignature:  "key_signature",
	SortContentPath:        "content_path",
	SortContentType:        "content_type",
	SortPublisher:          "publisher",
	SortCopyright:          "copyright",
	SortCollectedAt:        "collected_at",
}

// sentinelFor returns the NULL-coalescing sentinel for a numeric field and
// predicate direction, per §4.4's per-field documentation: 0 for indices,
// MAX_i16 for key-code when searching ≤, −1 when searching >. Fields with no
// documented sentinel coalesce to 0, the conservative "outside any
// meaningful positive range" default.
func sentinelFor(field NumericField, op NumericOp) float64 {
	switch field {
	case FieldTrackNumber, FieldTrackTotal, FieldDiscNumber, FieldDiscTotal:
		return 0
	case FieldMusicKeySignature:
		if op == OpLess || op == OpLessOrEqual {
			return math.MaxInt16
		}
		return -1
	default:
		return 0
	}
}

// Compile builds a SelectBuilder against view_track_search for q, selecting
// every column search results need plus a deterministic tie-break.
func Compile(q Query) (sq.SelectBuilder, error) {
	sel := sq.StatementBuilder.PlaceholderFormat(sq.Question).
		Select(
			"row_id", "uid", "revision", "collection_id", "content_path", "content_type",
			"content_revision", "collected_at", "album_kind", "track_number", "track_total",
			"disc_number", "disc_total", "movement_number", "movement_total", "tempo_bpm",
			"key_signature", "recorded_at", "released_at", "released_orig_at", "publisher",
			"copyright", "advisory_rating", "last_synchronized_rev",
		).From("view_track_search")

	if q.Filter != nil {
		pred, err := compileFilter(q.Filter)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		if pred != nil {
			sel = sel.Where(pred)
		}
	}

	sel = applySortAndPage(sel, q)
	return sel, nil
}

// CompileCount builds the mirror COUNT(*) query for q, without ordering
// (§4.4 "Pagination": "Count queries mirror the same Filter but select
// COUNT(*) without ordering").
func CompileCount(q Query) (sq.SelectBuilder, error) {
	sel := sq.StatementBuilder.PlaceholderFormat(sq.Question).
		Select("COUNT(*)").From("view_track_search")
	if q.Filter != nil {
		pred, err := compileFilter(q.Filter)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		if pred != nil {
			sel = sel.Where(pred)
		}
	}
	return sel, nil
}

func applySortAndPage(sel sq.SelectBuilder, q Query) sq.SelectBuilder {
	for _, so := range q.Sort {
		col, ok := sortFieldColumns[so.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if so.Direction == Desc {
			dir = "DESC"
		}
		sel = sel.OrderBy(fmt.Sprintf("%s %s", col, dir))
	}
	// Tie-breaker (§4.4 "Composition"): always append row_id asc so paging
	// is deterministic even with no sort, or ties in the explicit sort.
	sel = sel.OrderBy("row_id ASC")

	if q.Pagination.Limit != nil {
		sel = sel.Limit(*q.Pagination.Limit)
	}
	if q.Pagination.Offset != nil {
		sel = sel.Offset(*q.Pagination.Offset)
	}
	return sel
}

func compileFilter(f Filter) (sq.Sqlizer, error) {
	switch v := f.(type) {
	case PhraseFilter:
		return compilePhrase(v.F)
	case NumericFilterNode:
		return compileNumeric(numericFieldColumns, v.F.Field, v.F.Predicate, sentinelFor(v.F.Field, v.F.Predicate.Op))
	case DateTimeFilterNode:
		return compileNumeric(dateTimeFieldColumns, v.F.Field, v.F.Predicate, 0)
	case ConditionFilterNode:
		return compileCondition(v.F)
	case TagFilterNode:
		return compileTagFilter(v.F)
	case CueLabelFilter:
		return compileCueLabel(v.F)
	case ActorPhraseFilterNode:
		return compileActorPhrase(v.F)
	case TitlePhraseFilterNode:
		return compileTitlePhrase(v.F)
	case AnyTrackUidFilter:
		strs := make([]string, len(v.Uids))
		for i, u := range v.Uids {
			strs[i] = u.String()
		}
		return sq.Eq{"uid": strs}, nil
	case AnyPlaylistUidFilter:
		strs := make([]string, len(v.Uids))
		for i, u := range v.Uids {
			strs[i] = u.String()
		}
		sub := sq.Select("track_uid").From("playlist_entries").
			Join("playlists ON playlists.uid = playlist_entries.playlist_uid").
			Where(sq.Eq{"playlists.uid": strs})
		return inSubquery("uid", sub, false)
	case AllFilter:
		return compileAll(v.Children)
	case AnyFilter:
		return compileAny(v.Children)
	case NotFilter:
		inner, err := compileFilter(v.Child)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			// Not(All([])) == Not(true) == false: Any([]) identity.
			return sq.Expr("1 = 0"), nil
		}
		sqlStr, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("NOT (%s)", sqlStr), args...), nil
	default:
		return nil, cerr.New(cerr.KindInternal, "search: unknown filter node %T", f)
	}
}

// compileAll folds children with AND; identity (no children) is "true"
// (§4.4 "Composition").
func compileAll(children []Filter) (sq.Sqlizer, error) {
	if len(children) == 0 {
		return nil, nil // no predicate contributes => match every row
	}
	and := sq.And{}
	for _, c := range children {
		p, err := compileFilter(c)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		and = append(and, p)
	}
	if len(and) == 0 {
		return nil, nil
	}
	return and, nil
}

// compileAny folds children with OR; identity (no children) is "false"
// (§4.4 "Composition").
func compileAny(children []Filter) (sq.Sqlizer, error) {
	if len(children) == 0 {
		return sq.Expr("1 = 0"), nil
	}
	or := sq.Or{}
	for _, c := range children {
		p, err := compileFilter(c)
		if err != nil {
			return nil, err
		}
		if p == nil {
			// a child that matches everything makes the whole Any true
			return nil, nil
		}
		or = append(or, p)
	}
	return or, nil
}

func compilePhrase(f PhraseFieldFilter) (sq.Sqlizer, error) {
	fields := f.Fields
	if len(fields) == 0 {
		fields = []StringField{FieldContentPath, FieldContentType, FieldCopyright, FieldPublisher}
	}

	var pattern string
	if len(f.Terms) > 0 {
		pattern = "%"
		for _, term := range f.Terms {
			pattern += escapeLike(term) + "%"
		}
	}

	or := sq.Or{}
	for _, sf := range fields {
		if col, ok := stringFieldColumns[sf]; ok {
			if len(f.Terms) == 0 {
				// §4.4: empty terms matches rows where the selected field
				// is null or empty, never others.
				or = append(or, sq.Or{sq.Eq{col: nil}, sq.Eq{col: ""}})
				continue
			}
			or = append(or, sq.Expr(fmt.Sprintf("%s LIKE ? ESCAPE '%s'", col, likeEscape), pattern))
			continue
		}
		if scope, ok := titleScopedStringFields[sf]; ok {
			sub := sq.Select("track_uid").From("track_titles").Where(sq.Eq{"scope": int(scope)})
			if len(f.Terms) == 0 {
				sub = sub.Where(sq.Eq{"name": ""})
			} else {
				sub = sub.Where(sq.Expr(fmt.Sprintf("name LIKE ? ESCAPE '%s'", likeEscape), pattern))
			}
			pred, err := inSubquery("uid", sub, false)
			if err != nil {
				return nil, err
			}
			or = append(or, pred)
		}
	}
	if len(or) == 0 {
		return sq.Expr("1 = 0"), nil
	}
	return or, nil
}

func compileNumeric[F comparable](cols map[F]string, field F, pred NumericPredicate, sentinel float64) (sq.Sqlizer, error) {
	col, ok := cols[field]
	if !ok {
		return nil, cerr.New(cerr.KindInput, "search: unknown field")
	}
	switch pred.Op {
	case OpEqual:
		if pred.Value == nil {
			return sq.Eq{col: nil}, nil
		}
		return sq.Eq{col: *pred.Value}, nil
	case OpNotEqual:
		if pred.Value == nil {
			return sq.NotEq{col: nil}, nil
		}
		return sq.NotEq{col: *pred.Value}, nil
	}
	if pred.Value == nil {
		return nil, cerr.New(cerr.KindInput, "search: comparison predicate requires a value")
	}
	coalesced := fmt.Sprintf("COALESCE(%s, ?)", col)
	switch pred.Op {
	case OpLess:
		return sq.Expr(coalesced+" < ?", sentinel, *pred.Value), nil
	case OpLessOrEqual:
		return sq.Expr(coalesced+" <= ?", sentinel, *pred.Value), nil
	case OpGreater:
		return sq.Expr(coalesced+" > ?", sentinel, *pred.Value), nil
	case OpGreaterOrEqual:
		return sq.Expr(coalesced+" >= ?", sentinel, *pred.Value), nil
	default:
		return nil, cerr.New(cerr.KindInternal, "search: unknown numeric op")
	}
}

func compileCondition(f ConditionFilter) (sq.Sqlizer, error) {
	switch f.Kind {
	case ConditionSourceTracked:
		return sq.NotEq{"content_revision": nil}, nil
	case ConditionSourceUntracked:
		return sq.Eq{"content_revision": nil}, nil
	default:
		return nil, cerr.New(cerr.KindInternal, "search: unknown condition kind")
	}
}

func compileStringPredicate(col string, p StringPredicate) sq.Sqlizer {
	var inner sq.Sqlizer
	switch p.Mode {
	case CompareEquals:
		inner = sq.Eq{col: p.Value}
	case ComparePrefix:
		inner = sq.Expr(fmt.Sprintf("substr(%s, 1, ?) = ?", col), len(p.Value), p.Value)
	case CompareStartsWith:
		inner = sq.Expr(fmt.Sprintf("%s LIKE ? ESCAPE '%s'", col, likeEscape), escapeLike(p.Value)+"%")
	case CompareEndsWith:
		inner = sq.Expr(fmt.Sprintf("%s LIKE ? ESCAPE '%s'", col, likeEscape), "%"+escapeLike(p.Value))
	case CompareContains, CompareMatches:
		inner = sq.Expr(fmt.Sprintf("%s LIKE ? ESCAPE '%s'", col, likeEscape), "%"+escapeLike(p.Value)+"%")
	default:
		inner = sq.Eq{col: p.Value}
	}
	if p.Include {
		return inner
	}
	sqlStr, args, err := inner.ToSql()
	if err != nil {
		return inner
	}
	return sq.Expr(fmt.Sprintf("NOT (%s)", sqlStr), args...)
}

func compileTagFilter(f TagFilter) (sq.Sqlizer, error) {
	sub := sq.Select("track_tags.track_uid").From("track_tags")
	and := sq.And{}
	if len(f.Facets) > 0 {
		and = append(and, sq.Eq{"track_tags.facet": f.Facets})
	}
	if f.Label != nil {
		and = append(and, compileStringPredicate("track_tags.label", *f.Label))
	}
	if f.Score != nil {
		p, err := compileNumeric(map[string]string{"score": "track_tags.score"}, "score", *f.Score, 0)
		if err != nil {
			return nil, err
		}
		and = append(and, p)
	}
	if len(and) > 0 {
		sub = sub.Where(and)
	}
	return inSubquery("uid", sub, f.Modifier == ModifierComplement)
}

func compileCueLabel(p StringPredicate) (sq.Sqlizer, error) {
	sub := sq.Select("track_uid").From("track_cues").Where(compileStringPredicate("label", StringPredicate{Value: p.Value, Mode: p.Mode, Include: true}))
	return inSubquery("uid", sub, !p.Include)
}

func compileActorPhrase(f ActorPhraseFilter) (sq.Sqlizer, error) {
	sub := sq.Select("track_actors.track_uid").From("track_actors")
	and := sq.And{}
	if f.Scope != nil {
		and = append(and, sq.Eq{"track_actors.scope": int(*f.Scope)})
	}
	if len(f.Roles) > 0 {
		vals := make([]int, len(f.Roles))
		for i, r := range f.Roles {
			vals[i] = int(r)
		}
		and = append(and, sq.Eq{"track_actors.role": vals})
	}
	if len(f.Kinds) > 0 {
		vals := make([]int, len(f.Kinds))
		for i, k := range f.Kinds {
			vals[i] = int(k)
		}
		and = append(and, sq.Eq{"track_actors.kind": vals})
	}
	if len(f.NameTerms) > 0 {
		pattern := "%"
		for _, t := range f.NameTerms {
			pattern += escapeLike(t) + "%"
		}
		and = append(and, sq.Expr(fmt.Sprintf("track_actors.name LIKE ? ESCAPE '%s'", likeEscape), pattern))
	}
	if len(and) > 0 {
		sub = sub.Where(and)
	}
	return inSubquery("uid", sub, f.Modifier == ModifierComplement)
}

func compileTitlePhrase(f TitlePhraseFilter) (sq.Sqlizer, error) {
	sub := sq.Select("track_titles.track_uid").From("track_titles")
	and := sq.And{}
	if f.Scope != nil {
		and = append(and, sq.Eq{"track_titles.scope": int(*f.Scope)})
	}
	if len(f.Kinds) > 0 {
		vals := make([]int, len(f.Kinds))
		for i, k := range f.Kinds {
			vals[i] = int(k)
		}
		and = append(and, sq.Eq{"track_titles.kind": vals})
	}
	if len(f.NameTerms) > 0 {
		pattern := "%"
		for _, t := range f.NameTerms {
			pattern += escapeLike(t) + "%"
		}
		and = append(and, sq.Expr(fmt.Sprintf("track_titles.name LIKE ? ESCAPE '%s'", likeEscape), pattern))
	}
	if len(and) > 0 {
		sub = sub.Where(and)
	}
	return inSubquery("uid", sub, f.Modifier == ModifierComplement)
}

// inSubquery implements §4.3's eq_any(subselect)/ne_all(subselect) pair: the
// outer column is tested for membership in sub's result set, or its
// complement when negate is set (TagFilter/ActorPhraseFilter/
// TitlePhraseFilter "modifier=Complement flips eq_any to ne_all").
func inSubquery(col string, sub sq.SelectBuilder, negate bool) (sq.Sqlizer, error) {
	sqlStr, args, err := sub.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	op := "IN"
	if negate {
		op = "NOT IN"
	}
	return sq.Expr(fmt.Sprintf("%s %s (%s)", col, op, sqlStr), args...), nil
}
