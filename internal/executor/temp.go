package executor

import (
	"os"

	"github.com/nativebuild/nbs/internal/msg"
)

// tempTracker records every temp directory/file an executor run created so
// they can be cleaned up in reverse order regardless of how the run ends
// (spec §5 "Temporary files: tracked in a per-executor list and cleaned up
// in reverse order on exit of the executor").
type tempTracker struct {
	dirs  []string
	files []string
}

func (t *tempTracker) trackDir(path string) {
	t.dirs = append(t.dirs, path)
}

func (t *tempTracker) trackFile(path string) {
	t.files = append(t.files, path)
}

func (t *tempTracker) cleanup() {
	for i := len(t.files) - 1; i >= 0; i-- {
		if err := os.Remove(t.files[i]); err != nil && !os.IsNotExist(err) {
			msg.Warn("failed to remove temporary file %s: %v", t.files[i], err)
		}
	}
	for i := len(t.dirs) - 1; i >= 0; i-- {
		if err := os.RemoveAll(t.dirs[i]); err != nil {
			msg.Warn("failed to remove temporary directory %s: %v", t.dirs[i], err)
		}
	}
}
