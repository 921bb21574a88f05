// Package watch implements the platform-abstracted file-modification
// notifier (spec §4.B) on top of fsnotify, whose backends already match the
// spec's platform split: inotify and kqueue watch files directly, while the
// Windows backend only watches directories. Grounded on the recursive
// fsnotify watcher in the retrieval pack (traiproject-same's
// internal/adapters/watcher), adapted from "watch a whole tree" to "watch
// an explicit file set, with the directory-rooting trick needed on
// Windows".
package watch

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/nativebuild/nbs/internal/model"
)

// Watcher notifies on modification of an explicit set of registered files.
// Creation/deletion events are not reported (spec §4.B "Event filter").
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]struct{} // absolute paths registered via AddFile
	pending map[string]struct{} // modified paths not yet drained
	changed chan struct{}       // buffered(1) "something changed" flag

	// platformState is filled in by the platform-specific addFile
	// implementation (watch_windows.go / watch_other.go).
	platformState any
}

// New creates a Watcher. Its file descriptors/handles are released by
// Close (spec §4.B "Resource lifecycle").
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &model.WatcherError{Reason: "failed to initialize notification backend", Err: err}
	}
	w := &Watcher{
		fsw:     fsw,
		files:   make(map[string]struct{}),
		pending: make(map[string]struct{}),
		changed: make(chan struct{}, 1),
	}
	go w.pump()
	return w, nil
}

// AddFile registers path for modification notifications (spec §4.B).
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()
	return w.addFile(abs)
}

// pump drains fsnotify's event/error channels into the Watcher's own
// pending set for the lifetime of the watcher.
func (w *Watcher) pump() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == 0 {
				continue // spec §4.B: modification only
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			w.mu.Lock()
			_, tracked := w.files[abs]
			if tracked {
				w.pending[abs] = struct{}{}
			}
			w.mu.Unlock()
			if tracked {
				w.wake()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// fsnotify errors here are typically transient (e.g. a
			// removed watch target) and are not fatal to the loop.
		}
	}
}

// wake performs a non-blocking send on the change flag: if a waiter is
// already parked on it, this unblocks it; if one isn't, the buffered slot
// holds the signal so the next Wait/WaitForChild call returns immediately.
func (w *Watcher) wake() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// ReadChanges drains and returns the set of paths modified since the last
// call, without blocking (spec §4.B).
func (w *Watcher) ReadChanges() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = make(map[string]struct{})
	return out
}

func (w *Watcher) hasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

// Wait blocks until any watched file is reported modified (spec §4.B).
func (w *Watcher) Wait() error {
	w.ensureWatching()
	if w.hasPending() {
		return nil
	}
	<-w.changed
	return nil
}

// WaitForChild blocks until either a watched file is modified or the child
// represented by childDone terminates (spec §4.B "wait(child_pid)").
// childDone must already be registered (a goroutine blocked in
// cmd.Wait() that closes the channel on exit) before this call: the select
// below can never miss a child exit that raced the call, because a closed
// channel is immediately selectable regardless of which branch became
// ready first.
func (w *Watcher) WaitForChild(childDone <-chan struct{}) (childExited bool, err error) {
	w.ensureWatching()
	if w.hasPending() {
		return false, nil
	}
	select {
	case <-childDone:
		return true, nil
	case <-w.changed:
		return false, nil
	}
}

// Close releases the watcher's underlying file descriptors/handles.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// commonAncestor returns the deepest directory that is an ancestor of (or
// equal to) every path given, used by the Windows backend to root a single
// recursive directory watch (spec §4.B, §9).
func commonAncestor(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	best := filepath.Dir(paths[0])
	bestParts := strings.Split(filepath.ToSlash(best), "/")

	for _, p := range paths[1:] {
		dir := filepath.Dir(p)
		parts := strings.Split(filepath.ToSlash(dir), "/")

		n := len(bestParts)
		if len(parts) < n {
			n = len(parts)
		}
		i := 0
		for i < n && bestParts[i] == parts[i] {
			i++
		}
		bestParts = bestParts[:i]
	}

	joined := strings.Join(bestParts, "/")
	if joined == "" {
		return string(filepath.Separator)
	}
	return filepath.FromSlash(joined)
}
