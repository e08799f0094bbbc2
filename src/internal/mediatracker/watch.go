package mediatracker

import (
	"github.com/rjeczalik/notify"
)

// Watcher supplements the walk-based Scan with an fsnotify-driven trigger
// (SPEC_FULL.md DOMAIN STACK): instead of a full rescan on a timer, a
// running sync engine can re-arm itself the moment the filesystem changes
// under rootDir. Grounded on the teacher's own use of
// github.com/rjeczalik/notify for its (desktop-facing) directory watch.
type Watcher struct {
	events chan notify.EventInfo
	root   string
}

// Watch begins watching rootDir (recursively) for create/write/remove/
// rename events. Callers read Watcher.Changed() and trigger a Scan in
// response; Watch itself never scans.
func Watch(rootDir string) (*Watcher, error) {
	w := &Watcher{events: make(chan notify.EventInfo, 64), root: rootDir}
	if err := notify.Watch(rootDir+"/...", w.events,
		notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return nil, err
	}
	return w, nil
}

// Changed is a receive-only channel of filesystem change notifications; a
// single received event is a hint to re-scan, not an authoritative
// per-file classification — Scan remains the source of truth.
func (w *Watcher) Changed() <-chan notify.EventInfo { return w.events }

// Close stops the underlying watch and releases its OS resources.
func (w *Watcher) Close() {
	notify.Stop(w.events)
	close(w.events)
}
