package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crateline/crateline/src/internal/cerr"
)

// Concurrency model (§5): many concurrent readers may run against the
// catalogue, but at most one batch write (a directory synchronization) runs
// at a time. Acquiring a read lock while a write is in flight sets the
// write's abort flag, so long scans yield to interactive reads instead of
// starving them; the write itself decides how and when to check the flag.
const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
)

type gate struct {
	mu    sync.RWMutex
	abort atomic.Bool
}

func newGate() *gate { return &gate{} }

// requestAbort is called whenever a reader wants to acquire the lock while
// a writer may be holding it; the writer observes Aborted() at its next
// directory/file boundary and unwinds early.
func (g *gate) requestAbort() { g.abort.Store(true) }

// Aborted reports whether the current batch write has been asked to cancel.
func (g *gate) Aborted() bool { return g.abort.Load() }

func (g *gate) clearAbort() { g.abort.Store(false) }

// acquireRead blocks for up to readTimeout waiting for any in-flight write
// to release the lock, requesting its abort so it doesn't starve the
// reader. Returns a release function.
func (g *gate) acquireRead(ctx context.Context) (func(), error) {
	g.requestAbort()
	done := make(chan struct{})
	go func() {
		g.mu.RLock()
		close(done)
	}()
	select {
	case <-done:
		return g.mu.RUnlock, nil
	case <-time.After(readTimeout):
		return nil, cerr.New(cerr.KindTimeout, "catalogue database is locked")
	case <-ctx.Done():
		return nil, cerr.Wrap(cerr.KindAborted, ctx.Err(), "read lock acquisition cancelled")
	}
}

// acquireWrite blocks for up to writeTimeout waiting for all readers (and
// any other writer) to release the lock. Only one batch write may hold it
// at a time.
func (g *gate) acquireWrite(ctx context.Context) (func(), error) {
	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		close(done)
	}()
	select {
	case <-done:
		g.clearAbort()
		return func() { g.clearAbort(); g.mu.Unlock() }, nil
	case <-time.After(writeTimeout):
		return nil, cerr.New(cerr.KindTimeout, "catalogue database is locked")
	case <-ctx.Done():
		return nil, cerr.Wrap(cerr.KindAborted, ctx.Err(), "write lock acquisition cancelled")
	}
}

// withRead runs fn while holding the read lock.
func (s *Store) withRead(ctx context.Context, fn func() error) error {
	release, err := s.gate.acquireRead(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// withWrite runs fn while holding the exclusive write lock.
func (s *Store) withWrite(ctx context.Context, fn func() error) error {
	release, err := s.gate.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
