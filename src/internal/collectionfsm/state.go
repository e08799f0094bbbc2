// Package collectionfsm is the per-collection lifecycle state machine (C7,
// §4.6): void -> restoring -> loading -> ready -> synchronizing, exposed as
// a single-writer/many-reader observable value (§9 "Observable state").
package collectionfsm

import (
	"time"

	"github.com/crateline/crateline/src/internal/domain"
	"github.com/crateline/crateline/src/internal/syncengine"
)

// Phase tags which variant of State is populated.
type Phase int

const (
	PhaseVoid Phase = iota
	PhaseRestoringFromMusicDirectory
	PhaseLoadingFromDatabase
	PhaseReady
	PhaseSynchronizingVfs
)

// PendingKind distinguishes a transition's still-running vs joined form.
type PendingKind int

const (
	Pending PendingKind = iota
	FinishedPhase
)

// RestoreEntity selects whether a missed restore lookup fails or creates a
// new collection (§4.6 "Restore resolution").
type RestoreEntity int

const (
	Load RestoreEntity = iota
	LoadOrCreateNew
)

// NestedMusicDirs selects whether a nested-directory conflict is reported
// or silently permitted (§4.6).
type NestedMusicDirs int

const (
	Deny NestedMusicDirs = iota
	Permit
)

// RestoringFromMusicDirectoryContext is the input to a restore transition
// (§4.6).
type RestoringFromMusicDirectoryContext struct {
	Kind            *domain.CollectionKind
	MusicDir        string // file:// URL
	RestoreEntity   RestoreEntity
	NestedMusicDirs NestedMusicDirs
}

// RestoreFailureReason is why a Finished(Failed) restore did not produce a
// Ready state.
type RestoreFailureReason int

const (
	ReasonEntityNotFound RestoreFailureReason = iota
	ReasonOther
)

// RestoreOutcome is the terminal value of a restore transition.
type RestoreOutcome struct {
	// Exactly one of these is populated.
	Ready              *Summary
	Failed             *RestoreFailureReason
	NestedConflict     []domain.Uid // candidate collection uids
}

// Summary mirrors §3 GLOSSARY "Summary (of a collection)": aggregate counts
// associated with a ready collection.
type Summary struct {
	Entity domain.Collection
	Tracks int64
}

// SyncOutcomeKind is the terminal disposition of a SynchronizingVfs
// transition (§4.6).
type SyncOutcomeKind int

const (
	SyncSucceeded SyncOutcomeKind = iota
	SyncFailed
	SyncAborted
)

// SyncOutcome carries the sync engine's structured result once a
// SynchronizingVfs transition joins.
type SyncOutcome struct {
	Kind    SyncOutcomeKind
	Summary syncengine.Summary
	Err     error
}

// State is the tagged union of every lifecycle phase (§4.6). Only the field
// matching Phase is meaningful.
type State struct {
	Phase Phase

	// Bookkeeping shared by every Pending phase (§9 "Task supervision":
	// "the stale-continuation check (context, pending_since)").
	PendingSince time.Time
	PendingKind  PendingKind

	RestoreCtx     *RestoringFromMusicDirectoryContext
	RestoreOutcome *RestoreOutcome

	Ready *Summary

	SyncOutcome *SyncOutcome
}

// IsPending reports whether the state is one of the three Pending phases.
func (s State) IsPending() bool {
	return (s.Phase == PhaseRestoringFromMusicDirectory || s.Phase == PhaseLoadingFromDatabase || s.Phase == PhaseSynchronizingVfs) &&
		s.PendingKind == Pending
}
