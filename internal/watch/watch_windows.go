//go:build windows

package watch

import (
	"io/fs"
	"path/filepath"
	"sync"
)

// windowsState tracks the deferred, recursion-by-enumeration directory
// watch used on Windows, where fsnotify's backend (ReadDirectoryChangesW)
// only watches the directory it's pointed at, not its subtree (spec §4.B,
// §9: "watches a single recursive directory rooted at the deepest common
// ancestor of registered files").
type windowsState struct {
	once sync.Once
}

func (w *Watcher) state() *windowsState {
	s, _ := w.platformState.(*windowsState)
	if s == nil {
		s = &windowsState{}
		w.platformState = s
	}
	return s
}

// addFile on Windows only records the path; the actual watch is built
// lazily by ensureWatching once every AddFile call for this run has
// happened, since moving the watch root after it's been established would
// mean re-registering the whole tree.
func (w *Watcher) addFile(abs string) error {
	w.state()
	return nil
}

// ensureWatching builds the single recursive watch the first time the
// caller actually waits, after all AddFile calls are expected to have
// completed (spec §4.B).
func (w *Watcher) ensureWatching() {
	w.state().once.Do(func() {
		w.mu.Lock()
		paths := make([]string, 0, len(w.files))
		for p := range w.files {
			paths = append(paths, p)
		}
		w.mu.Unlock()

		root := commonAncestor(paths)
		if root == "" {
			return
		}

		// fsnotify's Windows backend has no native recursive mode, so
		// every subdirectory under root is registered individually.
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			w.fsw.Add(path)
			return nil
		})
	})
}
