//go:build !windows

package watch

// addFile on POSIX backends (inotify, kqueue) adds the file directly:
// both natively support watching individual files (spec §4.B, §9).
func (w *Watcher) addFile(abs string) error {
	return w.fsw.Add(abs)
}

// ensureWatching is a no-op on POSIX: addFile already establishes the
// watch for each file as it's registered.
func (w *Watcher) ensureWatching() {}
