package collectionfsm

import (
	"testing"
	"time"

	"github.com/fwojciec/clock"
)

// TestJoinIfCurrentDropsStaleContinuation exercises §8 "A joined task whose
// (context, pending_since) no longer matches the current state leaves the
// state unchanged": a continuation racing a newer transition must not
// clobber it.
func TestJoinIfCurrentDropsStaleContinuation(t *testing.T) {
	mc := clock.NewMock()
	m := &Machine{state: NewObservable(State{Phase: PhaseVoid}), Clock: mc}

	since := m.beginPending(PhaseLoadingFromDatabase, nil)

	// A second, newer transition starts (e.g. the user issued another
	// restore) before the first continuation runs.
	mc.Add(time.Second)
	newerSince := m.beginPending(PhaseRestoringFromMusicDirectory, &RestoringFromMusicDirectoryContext{MusicDir: "file:///music/"})

	applied := m.joinIfCurrent(PhaseLoadingFromDatabase, since, func(State) State {
		t.Fatal("stale continuation must not be applied")
		return State{}
	})
	if applied {
		t.Fatal("expected stale continuation to be dropped")
	}

	cur := m.State().Value
	if cur.Phase != PhaseRestoringFromMusicDirectory || !cur.PendingSince.Equal(newerSince) {
		t.Fatalf("expected the newer transition to remain current, got %+v", cur)
	}
}

func TestJoinIfCurrentAppliesMatchingContinuation(t *testing.T) {
	mc := clock.NewMock()
	m := &Machine{state: NewObservable(State{Phase: PhaseVoid}), Clock: mc}

	since := m.beginPending(PhaseLoadingFromDatabase, nil)
	applied := m.joinIfCurrent(PhaseLoadingFromDatabase, since, func(State) State {
		return State{Phase: PhaseReady, Ready: &Summary{Tracks: 3}}
	})
	if !applied {
		t.Fatal("expected a matching continuation to apply")
	}
	if got := m.State().Value; got.Phase != PhaseReady || got.Ready.Tracks != 3 {
		t.Fatalf("unexpected state after join: %+v", got)
	}
}

func TestResetDropsToVoid(t *testing.T) {
	m := &Machine{state: NewObservable(State{Phase: PhaseReady, Ready: &Summary{}})}
	m.Reset()
	if m.State().Value.Phase != PhaseVoid {
		t.Fatalf("expected Reset to force Void, got %v", m.State().Value.Phase)
	}
}
