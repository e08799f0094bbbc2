package collectionfsm

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/clock"
	"github.com/sirupsen/logrus"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/mediatracker"
	"github.com/crateline/crateline/src/internal/store"
	"github.com/crateline/crateline/src/internal/syncengine"
)

var log = logrus.WithField("pkg", "collectionfsm")

// Machine drives one collection's lifecycle (§4.6). Every exported method
// either completes synchronously (State, Wait, RequestAbort, Reset) or
// kicks off a supervised background task that eventually calls
// state.Modify (RestoreFromMusicDirectory, LoadFromDatabase, Synchronize);
// callers observe progress via State and Wait.
type Machine struct {
	state *Observable[State]

	Store *store.Store
	Sync  *syncengine.Engine
	Clock clock.Clock // nil means clock.New(); swap for clock.NewMock() in tests
	Abort *mediatracker.AbortFlag

	CollectionID int64
	RootDir      string // local filesystem path corresponding to the collection's VFS root
}

// New creates a Machine in the Void state.
func New(st *store.Store, eng *syncengine.Engine) *Machine {
	return &Machine{
		state: NewObservable(State{Phase: PhaseVoid}),
		Store: st,
		Sync:  eng,
		Abort: &mediatracker.AbortFlag{},
	}
}

func (m *Machine) now() time.Time {
	if m.Clock != nil {
		return m.Clock.Now()
	}
	return time.Now()
}

// State returns the current snapshot (§9 "the reader always sees a
// consistent snapshot").
func (m *Machine) State() Snapshot[State] { return m.state.Get() }

// Wait blocks until the state's version changes from since or done fires.
func (m *Machine) Wait(since uint64, done <-chan struct{}) (Snapshot[State], bool) {
	return m.state.Wait(since, done)
}

// beginPending installs a Pending state and returns the pending_since token
// the eventual continuation must present unchanged (§4.6 "Transition
// discipline", §9 "Task supervision").
func (m *Machine) beginPending(phase Phase, restoreCtx *RestoringFromMusicDirectoryContext) time.Time {
	since := m.now()
	m.state.Modify(func(State) State {
		return State{Phase: phase, PendingKind: Pending, PendingSince: since, RestoreCtx: restoreCtx}
	})
	return since
}

// joinIfCurrent applies fn only if the state is still the Pending transition
// identified by (phase, since) — otherwise the continuation is dropped
// per the stale-context discipline (§8 "A joined task whose (context,
// pending_since) no longer matches the current state leaves the state
// unchanged").
func (m *Machine) joinIfCurrent(phase Phase, since time.Time, fn func(State) State) bool {
	applied := false
	m.state.Modify(func(cur State) State {
		if cur.Phase != phase || cur.PendingKind != Pending || !cur.PendingSince.Equal(since) {
			return cur
		}
		applied = true
		return fn(cur)
	})
	return applied
}

// RestoreFromMusicDirectory starts the restore transition (§4.6). The
// worker and supervisor are collapsed into one goroutine, as §9 permits;
// the stale-continuation check still guards the final Modify.
func (m *Machine) RestoreFromMusicDirectory(ctx context.Context, rctx RestoringFromMusicDirectoryContext) {
	since := m.beginPending(PhaseRestoringFromMusicDirectory, &rctx)
	go func() {
		outcome, summary := m.resolveRestore(ctx, rctx)
		m.joinIfCurrent(PhaseRestoringFromMusicDirectory, since, func(State) State {
			if summary != nil {
				return State{Phase: PhaseReady, Ready: summary}
			}
			return State{
				Phase:          PhaseRestoringFromMusicDirectory,
				PendingKind:    FinishedPhase,
				PendingSince:   since,
				RestoreCtx:     &rctx,
				RestoreOutcome: outcome,
			}
		})
	}()
}

// pickRestoreCandidate implements the pure part of §4.6 "Restore
// resolution" steps 1-3 over an already-loaded collection list, so it can
// be exercised without a store.
func pickRestoreCandidate(all []domain.Collection, rctx RestoringFromMusicDirectoryContext) (best *domain.Collection, nested []domain.Uid) {
	target := normalizeDirURL(rctx.MusicDir)

	// Step 1: every collection whose own VFS root is a prefix of (or equal
	// to) music_dir — i.e. music_dir names that collection itself or a
	// subdirectory already inside it.
	var containing []domain.Collection
	for _, c := range all {
		if rctx.Kind != nil && c.Kind != *rctx.Kind {
			continue
		}
		root := normalizeDirURL(c.MediaSource.RootURL)
		if strings.HasPrefix(target, root) {
			containing = append(containing, c)
		}
	}
	if len(containing) > 0 {
		// Step 2: longest (closest) VFS root wins.
		sort.Slice(containing, func(i, j int) bool {
			return len(containing[i].MediaSource.RootURL) > len(containing[j].MediaSource.RootURL)
		})
		return &containing[0], nil
	}

	if rctx.NestedMusicDirs == Deny {
		for _, c := range all {
			if rctx.Kind != nil && c.Kind != *rctx.Kind {
				continue
			}
			root := normalizeDirURL(c.MediaSource.RootURL)
			if strings.HasPrefix(root, target) && root != target {
				nested = append(nested, c.Header.Uid)
			}
		}
	}
	return nil, nested
}

// resolveRestore implements §4.6 "Restore resolution" steps 1-4.
func (m *Machine) resolveRestore(ctx context.Context, rctx RestoringFromMusicDirectoryContext) (*RestoreOutcome, *Summary) {
	all, err := m.Store.ListCollections(ctx)
	if err != nil {
		reason := ReasonOther
		return &RestoreOutcome{Failed: &reason}, nil
	}

	best, nested := pickRestoreCandidate(all, rctx)
	if best != nil {
		sum, err := m.summaryFor(ctx, *best)
		if err != nil {
			reason := ReasonOther
			return &RestoreOutcome{Failed: &reason}, nil
		}
		return &RestoreOutcome{Ready: sum}, sum
	}
	if len(nested) > 0 {
		return &RestoreOutcome{NestedConflict: nested}, nil
	}

	if rctx.RestoreEntity == Load {
		reason := ReasonEntityNotFound
		return &RestoreOutcome{Failed: &reason}, nil
	}

	kind := domain.CollectionKind("")
	if rctx.Kind != nil {
		kind = *rctx.Kind
	}
	created, err := m.Store.CreateCollection(ctx, domain.Collection{
		Header: domain.NewEntityHeader(),
		Title:  deriveTitleFromDir(rctx.MusicDir),
		Kind:   kind,
		MediaSource: domain.MediaSourceConfig{
			Kind:    domain.ContentPathVirtualFilePath,
			RootURL: rctx.MusicDir,
		},
	})
	if err != nil {
		reason := ReasonOther
		return &RestoreOutcome{Failed: &reason}, nil
	}
	rowID, err := m.Store.CollectionRowID(ctx, created.Header.Uid)
	if err != nil {
		reason := ReasonOther
		return &RestoreOutcome{Failed: &reason}, nil
	}
	m.CollectionID = rowID
	m.RootDir = strings.TrimPrefix(rctx.MusicDir, "file://")
	sum := &Summary{Entity: created, Tracks: 0}
	return &RestoreOutcome{Ready: sum}, sum
}

// summaryFor resolves c's row id and track count, caching the row id on the
// machine for subsequent Synchronize/LoadFromDatabase calls.
func (m *Machine) summaryFor(ctx context.Context, c domain.Collection) (*Summary, error) {
	rowID, err := m.Store.CollectionRowID(ctx, c.Header.Uid)
	if err != nil {
		return nil, err
	}
	n, err := m.Store.CountTracksInCollection(ctx, rowID)
	if err != nil {
		return nil, err
	}
	m.CollectionID = rowID
	m.RootDir = strings.TrimPrefix(c.MediaSource.RootURL, "file://")
	return &Summary{Entity: c, Tracks: n}, nil
}

// LoadFromDatabase transitions into Ready by uid, bypassing restore
// resolution (§4.6 second arm).
func (m *Machine) LoadFromDatabase(ctx context.Context, uid domain.Uid) {
	since := m.beginPending(PhaseLoadingFromDatabase, nil)
	go func() {
		sum, err := m.loadSummary(ctx, uid)
		m.joinIfCurrent(PhaseLoadingFromDatabase, since, func(State) State {
			if err != nil {
				return State{Phase: PhaseLoadingFromDatabase, PendingKind: FinishedPhase, PendingSince: since}
			}
			return State{Phase: PhaseReady, Ready: sum}
		})
	}()
}

func (m *Machine) loadSummary(ctx context.Context, uid domain.Uid) (*Summary, error) {
	c, err := m.Store.GetCollection(ctx, uid)
	if err != nil {
		return nil, err
	}
	return m.summaryFor(ctx, c)
}

// Synchronize starts synchronize_collection_vfs from Ready (§4.6 third
// arm). It is a no-op (returns false) if the machine is not currently
// Ready, per "operations are serialized by the state machine".
func (m *Machine) Synchronize(ctx context.Context, params syncengine.Params) bool {
	cur := m.state.Get().Value
	if cur.Phase != PhaseReady {
		return false
	}
	m.Abort.Reset()
	since := m.beginPending(PhaseSynchronizingVfs, nil)
	go func() {
		result, err := m.Sync.Synchronize(ctx, m.CollectionID, m.RootDir, cur.Ready.Entity.MediaSource.ExcludedPaths, params, m.Abort)

		outcome := &SyncOutcome{Summary: result.Summary, Err: err}
		switch {
		case err != nil:
			outcome.Kind = SyncFailed
		case result.Completion == mediatracker.Aborted:
			outcome.Kind = SyncAborted
		default:
			outcome.Kind = SyncSucceeded
		}

		applied := m.joinIfCurrent(PhaseSynchronizingVfs, since, func(State) State {
			return State{Phase: PhaseSynchronizingVfs, PendingKind: FinishedPhase, PendingSince: since, SyncOutcome: outcome}
		})
		if !applied {
			log.WithField("collection_id", m.CollectionID).Warn("sync outcome dropped: stale continuation")
			return
		}

		// §4.6: SynchronizingVfs -> LoadingFromDatabase -> Ready, regardless
		// of outcome kind, so a Failed/Aborted sync still reconciles the
		// in-memory Ready summary with whatever the batch managed to commit.
		m.LoadFromDatabase(ctx, cur.Ready.Entity.Header.Uid)
	}()
	return true
}

// RequestAbort requests cancellation of any running SynchronizingVfs batch (§5
// "Cancellation").
func (m *Machine) RequestAbort() { m.Abort.Set() }

// Reset drops back to Void unconditionally, abandoning any Pending
// transition (§8 "eventually transitions to a Finished variant or to Void
// (on reset)").
func (m *Machine) Reset() {
	m.state.Modify(func(State) State { return State{Phase: PhaseVoid} })
}

func normalizeDirURL(u string) string {
	u = strings.TrimSpace(u)
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

func deriveTitleFromDir(dirURL string) string {
	trimmed := strings.TrimSuffix(dirURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx+1 < len(trimmed) {
		return trimmed[idx+1:]
	}
	return trimmed
}
