// Package syncengine is the sync engine (C6, §4.5): it orchestrates
// scan -> import -> replace -> purge as a single cancellable batch,
// invoking C2 (tagcodec) to decode each classified file and C3 (store) to
// persist the result. Grounded on mipimipi-muserv's content/scanner.go
// worker/ticker loop, generalized from a periodic local rescan into the
// parametrized synchronize_collection_vfs operation §4.5 specifies.
package syncengine

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/clock"
	"github.com/sirupsen/logrus"

	"github.com/crateline/crateline/src/internal/mediatracker"
	"github.com/crateline/crateline/src/internal/store"
	"github.com/crateline/crateline/src/internal/tagcodec"
	"github.com/crateline/crateline/src/internal/tagcodec/id3"
	"github.com/crateline/crateline/src/internal/tagcodec/mp4"
	"github.com/crateline/crateline/src/internal/tagcodec/vorbis"
)

var log = logrus.WithField("pkg", "syncengine")

// SyncMode selects which already-tracked files get re-imported (§4.5).
type SyncMode int

const (
	SyncAlways SyncMode = iota
	SyncModified
	SyncOnce
)

// FindOrPurge is the two-valued disposition shared by several §4.5 knobs.
type FindOrPurge int

const (
	Find FindOrPurge = iota
	Purge
)

// SkipOrFind is the two-valued disposition for the remaining §4.5 knobs.
type SkipOrFind int

const (
	Skip SkipOrFind = iota
	FindEntries
)

// Params parametrizes synchronize_collection_vfs (§4.5).
type Params struct {
	SyncMode               SyncMode
	UntrackedMediaSources  FindOrPurge
	OrphanedMediaSources    FindOrPurge
	UntrackedFiles          SkipOrFind
	UnsynchronizedTracks    SkipOrFind
	ImportTrackConfig       tagcodec.Config
	MinProgressInterval     time.Duration
	OnProgress              mediatracker.ProgressFunc
}

// ImportFailure records one file that failed to import (§4.5 Summary).
type ImportFailure struct {
	Path     string
	Messages []string
}

// Summary is the structured batch outcome (§4.5).
type Summary struct {
	Scanned       int
	ImportedOK    int
	ImportedFailed []ImportFailure
	Untracked     []string
	Orphaned      []string
	Purged        int
}

// Result pairs a Summary with the batch's terminal Completion (§4.5, §7
// "Aborted is reported as a terminal state, not an error").
type Result struct {
	Summary    Summary
	Completion mediatracker.Completion
}

var codecsByExt = map[string]tagcodec.Codec{
	".mp3":  id3.Codec{},
	".wav":  id3.Codec{},
	".m4a":  mp4.Codec{},
	".m4b":  mp4.Codec{},
	".mp4":  mp4.Codec{},
	".ogg":  vorbis.Codec{},
	".oga":  vorbis.Codec{},
	".flac": vorbis.Codec{},
}

func codecFor(path string) (tagcodec.Codec, bool) {
	c, ok := codecsByExt[strings.ToLower(filepath.Ext(path))]
	return c, ok
}

// IsAudioFile reports whether path carries an extension one of the three
// codec families understands; it is the default mediatracker.Options
// filter a collection sync installs.
func IsAudioFile(path string) bool {
	_, ok := codecFor(path)
	return ok
}

// Engine runs synchronize_collection_vfs batches against a store.
type Engine struct {
	Store *store.Store
	Clock clock.Clock // nil means clock.New(); swap for clock.NewMock() in tests
}

func (e *Engine) now() int64 {
	if e.Clock != nil {
		return e.Clock.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// Synchronize runs one batch for collectionID rooted at rootDir (a local
// filesystem path derived from the collection's VFS root URL), per §4.5.
// abort is polled at file/directory boundaries (§5 "Cancellation").
func (e *Engine) Synchronize(ctx context.Context, collectionID int64, rootDir string, excludedPaths []string, params Params, abort *mediatracker.AbortFlag) (Result, error) {
	known, err := e.Store.LoadMediaTrackerCheckpoint(ctx, collectionID)
	if err != nil {
		return Result{}, err
	}

	entries, completion, err := mediatracker.Scan(ctx, rootDir, known, mediatracker.Options{
		ExcludedPaths:        excludedPaths,
		MinProgressInterval:  params.MinProgressInterval,
		OnProgress:           params.OnProgress,
		IsAudioFile:          IsAudioFile,
	}, abort)
	if err != nil {
		return Result{}, err
	}

	summary := Summary{}
	resolved := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if abort != nil && abort.IsSet() {
			completion = mediatracker.Aborted
			break
		}
		switch entry.Status {
		case mediatracker.StatusOrphaned:
			summary.Orphaned = append(summary.Orphaned, entry.Path)
			delete(known, entry.Path)
			continue
		case mediatracker.StatusCurrent:
			resolved[entry.Path] = true
			if params.SyncMode != SyncAlways && params.UnsynchronizedTracks == Skip {
				continue
			}
		case mediatracker.StatusAdded:
			if params.UntrackedFiles == Skip {
				resolved[entry.Path] = true
				continue
			}
		}
		resolved[entry.Path] = true
		summary.Scanned++

		if entry.Status == mediatracker.StatusCurrent && params.SyncMode == SyncOnce {
			continue
		}

		outcome, messages := e.importOne(ctx, collectionID, rootDir, entry, params)
		if len(messages) > 0 && outcome == nil {
			summary.ImportedFailed = append(summary.ImportedFailed, ImportFailure{Path: entry.Path, Messages: messages})
			continue
		}
		if outcome != nil {
			summary.ImportedOK++
		}
		if entry.Fingerprint != nil {
			known[entry.Path] = mediatracker.KnownSource{Path: entry.Path, Fingerprint: *entry.Fingerprint}
		}
	}

	if err := e.Store.SaveMediaTrackerCheckpoint(ctx, collectionID, known); err != nil {
		return Result{Summary: summary, Completion: completion}, err
	}

	if params.UnsynchronizedTracks == FindEntries {
		uids, err := e.Store.FindUnsynchronizedTracks(ctx, collectionID)
		if err != nil {
			return Result{Summary: summary, Completion: completion}, err
		}
		for _, uid := range uids {
			summary.Untracked = append(summary.Untracked, uid.String())
		}
	}

	if params.OrphanedMediaSources == Purge {
		n, err := e.Store.PurgeOrphanedMediaSources(ctx, collectionID)
		if err != nil {
			return Result{Summary: summary, Completion: completion}, err
		}
		summary.Purged += int(n)
	}
	if params.UntrackedMediaSources == Purge {
		n, err := e.Store.PurgeUntrackedMediaSources(ctx, collectionID, "", resolved)
		if err != nil {
			return Result{Summary: summary, Completion: completion}, err
		}
		summary.Purged += int(n)
	}

	return Result{Summary: summary, Completion: completion}, nil
}

// importOne decodes and replaces a single classified file. A nil outcome
// with non-empty messages means the file failed (§7: "a file that cannot be
// opened or whose container header is corrupt fails the file, not the
// batch"); per-field parse issues never produce a nil outcome.
func (e *Engine) importOne(ctx context.Context, collectionID int64, rootDir string, entry mediatracker.Entry, params Params) (*store.ReplaceOutcome, []string) {
	fullPath := filepath.Join(rootDir, entry.Path)
	codec, ok := codecFor(entry.Path)
	if !ok {
		return nil, []string{"unsupported container"}
	}
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, []string{err.Error()}
	}
	result, err := codec.Import(params.ImportTrackConfig, raw)
	if err != nil {
		return nil, []string{err.Error()}
	}

	var messages []string
	for _, issue := range result.Issues {
		log.WithField("path", entry.Path).Warnf("%s: %s", issue.Offender, issue.Message)
		messages = append(messages, issue.Offender+": "+issue.Message)
	}

	track := result.Track
	track.MediaSource.CollectionID = collectionID
	track.MediaSource.ContentLink.Path = entry.Path
	if entry.Fingerprint != nil {
		track.MediaSource.ContentLink.Revision = entry.Fingerprint
	}
	if track.MediaSource.ContentType == "" {
		track.MediaSource.ContentType = mime.TypeByExtension(filepath.Ext(entry.Path))
	}

	_, replaceOutcome, err := e.Store.ReplaceTrackByContentPath(ctx, track, store.ReplaceParams{
		Mode:                      store.ReplaceUpdateOrCreate,
		PreserveCollectedAt:       true,
		UpdateLastSynchronizedRev: true,
	}, e.now())
	if err != nil {
		return nil, append(messages, err.Error())
	}
	return &replaceOutcome, messages
}
