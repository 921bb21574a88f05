// Package watchloop implements the spawn/observe/rebuild cycle run when a
// build is invoked with both --run and --watch (spec §4.G). It owns
// nothing about compilation itself: the caller supplies a Rebuilder that
// reruns whatever build strategy produced the target the first time.
package watchloop

import (
	"os"
	"os/exec"
	"time"

	"github.com/nativebuild/nbs/internal/model"
	"github.com/nativebuild/nbs/internal/msg"
	"github.com/nativebuild/nbs/internal/watch"
)

// Rebuilder reruns the build for the watched target, returning the error
// the underlying build strategy produced (if any).
type Rebuilder func() error

// Run spawns exePath with runArgs, waits for either the process to exit or
// a watched source file to change, and on change kills the process and
// rebuilds before spawning it again. It returns once the child exits on
// its own, reporting that exit code. The file set watched is exactly
// target's source, import and string-import files (spec §4.G).
func Run(target *model.TargetInfo, exePath string, runArgs []string, rebuild Rebuilder) (exitCode int, err error) {
	w, err := watch.New()
	if err != nil {
		return 0, err
	}
	defer w.Close()

	s := target.BuildSettings
	for _, f := range s.SourceFiles {
		if err := w.AddFile(f); err != nil {
			return 0, &model.WatcherError{Reason: "failed to watch source file " + f, Err: err}
		}
	}
	for _, f := range s.ImportFiles {
		if err := w.AddFile(f); err != nil {
			return 0, &model.WatcherError{Reason: "failed to watch import file " + f, Err: err}
		}
	}
	for _, f := range s.StringImportFiles {
		if err := w.AddFile(f); err != nil {
			return 0, &model.WatcherError{Reason: "failed to watch string import file " + f, Err: err}
		}
	}

	for {
		cmd := exec.Command(exePath, runArgs...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		if err := cmd.Start(); err != nil {
			return 0, err
		}

		childDone := make(chan struct{})
		var waitErr error
		go func() {
			waitErr = cmd.Wait()
			close(childDone)
		}()

		exited, err := w.WaitForChild(childDone)
		if err != nil {
			cmd.Process.Kill()
			<-childDone
			return 0, err
		}

		if exited {
			return exitCodeOf(waitErr), nil
		}

		msg.Info("source changed, rebuilding %s", target.Name())
		if killErr := cmd.Process.Kill(); killErr != nil && cmd.ProcessState == nil {
			msg.Warn("failed to stop running process: %v", killErr)
		}
		<-childDone

		// lets writers finish a multi-file save before the next read.
		time.Sleep(time.Millisecond)
		w.ReadChanges()

		for {
			if err := rebuild(); err == nil {
				break
			} else {
				msg.Error("%v", err)
				if waitErr := w.Wait(); waitErr != nil {
					return 0, waitErr
				}
				w.ReadChanges()
			}
		}
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
