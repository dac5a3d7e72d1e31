// Package watcher implements the directory watcher external collaborator:
// it observes a single flat directory via fsnotify, applies the configured
// extension allowlist, and publishes fsevent.Events to the bus. It never
// blocks the core — a full bus only increments the bus's own drop counter.
//
// Grounded on the fsnotify-based watch loop shape used across the pack
// (event channel + error channel select, one goroutine per watched root),
// adapted here to pair fsnotify's separate Rename/Create notifications into
// a single fsevent.Renamed event.
package watcher

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/otus-labs/logwatch-agent/internal/fsevent"
	"github.com/otus-labs/logwatch-agent/internal/log"
)

// Bus is the subset of eventbus.Bus[fsevent.Event] the watcher depends on.
type Bus interface {
	Publish(ev fsevent.Event) bool
}

// DefaultRenamePairWindow bounds how long the watcher waits after an
// fsnotify Rename op for a matching Create before giving up and reporting
// the source path as simply deleted.
const DefaultRenamePairWindow = 50 * time.Millisecond

// Watcher watches one flat directory (no recursion, no symlink traversal)
// and publishes Created/Modified/Deleted/Renamed events.
type Watcher struct {
	fsw              *fsnotify.Watcher
	bus              Bus
	allowlist        map[string]struct{}
	renamePairWindow time.Duration

	pendingMu     sync.Mutex
	pendingRename string
	pendingTimer  *time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a Watcher publishing to bus. An empty extensionAllowlist means
// every file is processable; otherwise only paths whose extension (matched
// case-insensitively, including the leading dot) appears in the list are
// marked Processable.
func New(bus Bus, extensionAllowlist []string, renamePairWindow time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if renamePairWindow <= 0 {
		renamePairWindow = DefaultRenamePairWindow
	}
	allow := make(map[string]struct{}, len(extensionAllowlist))
	for _, ext := range extensionAllowlist {
		allow[strings.ToLower(ext)] = struct{}{}
	}
	return &Watcher{
		fsw:              fsw,
		bus:              bus,
		allowlist:        allow,
		renamePairWindow: renamePairWindow,
		stopCh:           make(chan struct{}),
	}, nil
}

// Watch adds dir to the set of watched directories.
func (w *Watcher) Watch(dir string) error {
	return w.fsw.Add(dir)
}

// Start launches the watch loop in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop closes the underlying fsnotify watcher and joins the watch loop.
// Idempotent.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.GetLogger().WithError(err).Warn("watcher observed an fsnotify error")
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Rename != 0:
		w.armPendingRename(ev.Name)
	case ev.Op&fsnotify.Create != 0:
		if old, ok := w.takePendingRenameIfDistinct(ev.Name); ok {
			w.publish(fsevent.Event{
				Kind:        fsevent.Renamed,
				OldPath:     old,
				Path:        ev.Name,
				ObservedAt:  time.Now(),
				Processable: w.processable(ev.Name),
			})
			return
		}
		w.publish(fsevent.Event{
			Kind:        fsevent.Created,
			Path:        ev.Name,
			ObservedAt:  time.Now(),
			Processable: w.processable(ev.Name),
		})
	case ev.Op&fsnotify.Write != 0:
		w.publish(fsevent.Event{
			Kind:        fsevent.Modified,
			Path:        ev.Name,
			ObservedAt:  time.Now(),
			Processable: w.processable(ev.Name),
		})
	case ev.Op&fsnotify.Remove != 0:
		w.publish(fsevent.Event{
			Kind:       fsevent.Deleted,
			Path:       ev.Name,
			ObservedAt: time.Now(),
		})
	}
}

// armPendingRename remembers that path just received an fsnotify Rename op
// (the OS-level notification fsnotify emits for the path being moved away
// from) and starts a bounded wait for a paired Create at the new path. If
// the window elapses with no Create, the rename is reported as a Deleted
// event for path.
func (w *Watcher) armPendingRename(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
		w.flushPendingAsDeleteLocked()
	}

	w.pendingRename = path
	w.pendingTimer = time.AfterFunc(w.renamePairWindow, func() {
		w.pendingMu.Lock()
		defer w.pendingMu.Unlock()
		w.flushPendingAsDeleteLocked()
	})
}

func (w *Watcher) flushPendingAsDeleteLocked() {
	if w.pendingRename == "" {
		return
	}
	path := w.pendingRename
	w.pendingRename = ""
	w.pendingTimer = nil
	w.publish(fsevent.Event{Kind: fsevent.Deleted, Path: path, ObservedAt: time.Now()})
}

// takePendingRenameIfDistinct consumes a pending rename if one is armed and
// newPath differs from it, pairing them into a single rename. It returns
// false if there is no pending rename to pair with.
func (w *Watcher) takePendingRenameIfDistinct(newPath string) (string, bool) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pendingRename == "" || w.pendingRename == newPath {
		return "", false
	}
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
		w.pendingTimer = nil
	}
	old := w.pendingRename
	w.pendingRename = ""
	return old, true
}

func (w *Watcher) processable(path string) bool {
	if len(w.allowlist) == 0 {
		return true
	}
	_, ok := w.allowlist[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (w *Watcher) publish(ev fsevent.Event) {
	w.bus.Publish(ev)
}
