// Package uptodate implements the up-to-date check that decides whether a
// cached target artifact can be reused without recompiling (spec §4.D).
package uptodate

import (
	"os"
	"time"

	"github.com/nativebuild/nbs/internal/msg"
)

// Check reports whether targetPath exists and is newer than every path in
// inputs. It never returns an error: a missing input is reported simply as
// "not up to date", letting the subsequent compile attempt fail with a
// clean diagnostic (spec §4.D rule 2) rather than the checker itself
// erroring out.
func Check(targetPath string, inputs []string) bool {
	targetInfo, err := os.Stat(targetPath)
	if err != nil {
		return false // rule 1: target artifact absent
	}
	targetModTime := targetInfo.ModTime()
	now := time.Now()

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return false // rule 2: input absent
		}

		inputModTime := info.ModTime()
		if inputModTime.After(now) {
			// rule 4: future mtime warns but does not force a rebuild by
			// itself; rule 3 below still compares it against the target.
			msg.Warn("input file %s has a modification time in the future; this may indicate clock skew", input)
		}
		if inputModTime.After(targetModTime) {
			return false // rule 3: input newer than target
		}
	}

	return true // rule 5
}
