// Package tagcodec defines the shared contract for the three container
// codecs (ID3v2.4, MP4/iTunes atoms, Vorbis comments): import a container's
// native tag model into a domain.Track partial, and export a domain.Track
// back into the container, round-tripping per §4.2.
package tagcodec

import (
	"github.com/crateline/crateline/src/internal/domain"
)

// ImportFlag enumerates the import configuration options from §4.2
// ("Import configuration options").
type ImportFlag int

const (
	// FlagEmbeddedArtwork extracts embedded artwork.
	FlagEmbeddedArtwork ImportFlag = iota
	// FlagArtworkDigest computes a digest for the chosen artwork.
	FlagArtworkDigest
	// FlagArtworkDigestSHA256 forces the SHA-256 variant for back-compat
	// call sites that still name the algorithm explicitly.
	FlagArtworkDigestSHA256
	// FlagMixxxCustomTags honors the Mixxx GEOB/atom custom-tags blob.
	FlagMixxxCustomTags
	// FlagAoideTags honors the engine-native tag blob.
	FlagAoideTags
	// FlagSeratoTags decodes Serato Markers/Markers2 sidecar blobs.
	FlagSeratoTags
	// FlagItunesGroupingMovementWork selects the iTunes >=12.5.4 TIT1
	// migration (Work) over the legacy meaning (Grouping), per §4.2.3.
	FlagItunesGroupingMovementWork
)

// Config is the shared import/export configuration threaded through all
// three codecs.
type Config struct {
	Flags map[ImportFlag]bool

	// FacetSeparator maps a facet name to a join separator (§4.2 behavioral
	// contract 1), read through Separator; empty facet key is the default
	// for unfaceted joins. None of the three codecs' writers calls
	// Separator, so it does not change what they write.
	FacetSeparator map[string]string
}

// Has reports whether a flag is set.
func (c Config) Has(f ImportFlag) bool { return c.Flags != nil && c.Flags[f] }

// Separator returns the configured join separator for facet, falling back
// to def.
func (c Config) Separator(facet, def string) string {
	if c.FacetSeparator != nil {
		if s, ok := c.FacetSeparator[facet]; ok {
			return s
		}
	}
	return def
}

// ImportResult is the outcome of importing one container: a track partial
// plus any non-fatal per-field issues (§7 propagation policy).
type ImportResult struct {
	Track  domain.Track
	Issues []Issue
}

// Issue is a non-fatal parse problem collected during import; it does not
// fail the file (§7).
type Issue struct {
	Offender string // offending frame/atom/key identity
	Message  string
}

// ExportOutcome distinguishes a rewritten file from a no-op export (§4.2
// behavioral contract 7, "container equality short-circuit").
type ExportOutcome int

const (
	ExportModified ExportOutcome = iota
	ExportNotModified
)

// Codec is implemented by each of the three container-specific packages.
type Codec interface {
	// Import decodes a container's native tag model into a track partial.
	Import(cfg Config, raw []byte) (ImportResult, error)
	// Export merges t into the container's native tag model and
	// serializes it back out. It must return ExportNotModified without
	// rewriting raw when the serialized result would be byte-identical.
	Export(cfg Config, t domain.Track, raw []byte) ([]byte, ExportOutcome, error)
}
