// Package search is the track search compiler (C4, §4.4): it turns a
// structured Filter/SortOrder expression into an executable query against
// view_track_search, built with github.com/Masterminds/squirrel like the
// store package (C3); it configures its own sq.StatementBuilder with '?'
// placeholders rather than using store's Builder.
package search

import "github.com/crateline/crateline/src/internal/domain"

// StringField enumerates the phrase-searchable string columns (§4.4
// PhraseFieldFilter).
type StringField int

const (
	FieldContentPath StringField = iota
	FieldContentType
	FieldCopyright
	FieldPublisher
	FieldTrackTitle
	FieldAlbumTitle
)

// NumericField enumerates the numeric columns a NumericFieldFilter may
// target (§4.4).
type NumericField int

const (
	FieldAudioDurationMs NumericField = iota
	FieldAudioBitrateBps
	FieldAudioSampleRateHz
	FieldAudioChannels
	FieldAudioLoudnessLUFS
	FieldAdvisoryRating
	FieldTrackNumber
	FieldTrackTotal
	FieldDiscNumber
	FieldDiscTotal
	FieldMusicTempoBpm
	FieldMusicKeySignature
)

// DateTimeField enumerates the three YYYYMMDD-derived epoch-millisecond
// date columns (§4.4 DateTimeFieldFilter).
type DateTimeField int

const (
	FieldRecordedAt DateTimeField = iota
	FieldReleasedAt
	FieldReleasedOrigAt
)

// ConditionKind is the boolean-valued condition vocabulary (§4.4
// ConditionFilter).
type ConditionKind int

const (
	ConditionSourceTracked ConditionKind = iota
	ConditionSourceUntracked
)

// NumericOp is the comparison vocabulary over a NumericFieldFilter /
// DateTimeFieldFilter (§4.4).
type NumericOp int

const (
	OpLess NumericOp = iota
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpEqual    // value may be nil -> IS NULL
	OpNotEqual // value may be nil -> IS NOT NULL
)

// NumericPredicate pairs an operator with an optional value; a nil Value
// with OpEqual/OpNotEqual tests nullity directly (§4.4).
type NumericPredicate struct {
	Op    NumericOp
	Value *float64 // nil only valid with OpEqual/OpNotEqual
}

// NumericFieldFilter ANDs a single comparison against field (§4.4).
type NumericFieldFilter struct {
	Field     NumericField
	Predicate NumericPredicate
}

// DateTimeFieldFilter is the epoch-millisecond analogue of NumericFieldFilter.
type DateTimeFieldFilter struct {
	Field     DateTimeField
	Predicate NumericPredicate
}

// ConditionFilter selects a boolean-valued condition (§4.4).
type ConditionFilter struct {
	Kind ConditionKind
}

// PhraseFieldFilter is an order-preserving multi-term substring match across
// one or more string fields (§4.4). Empty Terms matches null/empty fields;
// empty Fields means the four direct columns FieldContentPath,
// FieldContentType, FieldCopyright and FieldPublisher; track and album
// titles are searched only when named in Fields.
type PhraseFieldFilter struct {
	Terms  []string
	Fields []StringField
}

// Modifier flips a filter's outer predicate from eq_any to ne_all (§4.4
// TagFilter/ActorPhraseFilter/TitlePhraseFilter "modifier").
type Modifier int

const (
	ModifierNone Modifier = iota
	ModifierComplement
)

// TagFilter selects track ids via a subselect over track_tags with the
// facet/label/score predicates ANDed (§4.4).
type TagFilter struct {
	Modifier Modifier
	Facets   []string
	Label    *StringPredicate
	Score    *NumericPredicate
}

// ActorPhraseFilter is a subselect over track_actors (§4.4).
type ActorPhraseFilter struct {
	Modifier  Modifier
	Scope     *domain.Scope
	Roles     []domain.ActorRole
	Kinds     []domain.ActorKind
	NameTerms []string
}

// TitlePhraseFilter is a subselect over track_titles (§4.4).
type TitlePhraseFilter struct {
	Modifier  Modifier
	Scope     *domain.Scope
	Kinds     []domain.TitleKind
	NameTerms []string
}

// CompareMode is the string-predicate decomposition vocabulary (§4.4
// "String predicate decomposition").
type CompareMode int

const (
	CompareEquals CompareMode = iota
	ComparePrefix
	CompareStartsWith
	CompareEndsWith
	CompareContains
	CompareMatches
)

// StringPredicate is the decomposed (value, compare_mode, include_flag)
// triple from §4.4.
type StringPredicate struct {
	Value   string
	Mode    CompareMode
	Include bool // false negates the predicate
}

// Filter is the recursive expression tree compiled by Compile (§4.4).
type Filter interface{ isFilter() }

type PhraseFilter struct{ F PhraseFieldFilter }
type NumericFilterNode struct{ F NumericFieldFilter }
type DateTimeFilterNode struct{ F DateTimeFieldFilter }
type ConditionFilterNode struct{ F ConditionFilter }
type TagFilterNode struct{ F TagFilter }
type CueLabelFilter struct{ F StringPredicate }
type ActorPhraseFilterNode struct{ F ActorPhraseFilter }
type TitlePhraseFilterNode struct{ F TitlePhraseFilter }
type AnyTrackUidFilter struct{ Uids []domain.Uid }
type AnyPlaylistUidFilter struct{ Uids []domain.Uid }
type AllFilter struct{ Children []Filter }
type AnyFilter struct{ Children []Filter }
type NotFilter struct{ Child Filter }

func (PhraseFilter) isFilter()          {}
func (NumericFilterNode) isFilter()     {}
func (DateTimeFilterNode) isFilter()    {}
func (ConditionFilterNode) isFilter()   {}
func (TagFilterNode) isFilter()         {}
func (CueLabelFilter) isFilter()        {}
func (ActorPhraseFilterNode) isFilter() {}
func (TitlePhraseFilterNode) isFilter() {}
func (AnyTrackUidFilter) isFilter()     {}
func (AnyPlaylistUidFilter) isFilter()  {}
func (AllFilter) isFilter()             {}
func (AnyFilter) isFilter()             {}
func (NotFilter) isFilter()             {}

// SortField enumerates every column a SortOrder may name: the audio
// properties, track and disc numbers, the three dates, tempo, key, content
// path and type, publisher, copyright and collected_at. Track and disc
// totals and the advisory rating can be filtered on but have no SortField.
type SortField int

const (
	SortAudioDurationMs SortField = iota
	SortAudioBitrateBps
	SortAudioSampleRateHz
	SortAudioChannels
	SortAudioLoudnessLUFS
	SortTrackNumber
	SortDiscNumber
	SortRecordedAt
	SortReleasedAt
	SortReleasedOrigAt
	SortMusicTempoBpm
	SortMusicKeySignature
	SortContentPath
	SortContentType
	SortPublisher
	SortCopyright
	SortCollectedAt
)

// SortDirection is asc|desc (§4.4 SortOrder).
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

// SortOrder is one entry in the ORDER BY list (§4.4).
type SortOrder struct {
	Field     SortField
	Direction SortDirection
}

// Pagination is the offset-based paging input (§4.4 "Pagination").
type Pagination struct {
	Limit  *uint64
	Offset *uint64
}

// Query is the full compiled-query input: a filter, a sort order, and
// pagination (§4.4).
type Query struct {
	Filter     Filter
	Sort       []SortOrder
	Pagination Pagination
}
