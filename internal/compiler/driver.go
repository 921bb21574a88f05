// Package compiler defines the abstract interface over a native compiler
// (spec §4.A) and a single concrete driver that drives it via flag
// templates keyed by compiler id, grounded on the teacher's compiler
// discovery idiom (internal/builder/cc.go) generalized from "find a C/C++
// compiler on PATH" to "format flags for a known compiler id".
package compiler

import (
	"context"

	"github.com/nativebuild/nbs/internal/model"
)

// InvocationMode selects how PrepareBuildSettings normalizes flags for a
// given call shape (spec §4.A).
type InvocationMode int

const (
	// CommandLine passes all sources to a single compiler invocation.
	CommandLine InvocationMode = iota
	// CommandLineSeparate compiles to one object, then links separately.
	CommandLineSeparate
	// CommandLineSeparateSourceFiles compiles each source file to its own
	// object before a separate link step (the singleFile build mode).
	CommandLineSeparateSourceFiles
)

// Driver is the abstract interface over a native compiler (spec §4.A).
// Concrete drivers translate BuildSettings into argv for one compiler
// family; selection by compiler id happens outside the core.
type Driver interface {
	// PrepareBuildSettings normalizes flags in place for the given
	// invocation mode (e.g. ensuring a single object output for
	// CommandLineSeparate).
	PrepareBuildSettings(settings *model.BuildSettings, mode InvocationMode) error

	// SetTarget points settings at the file the invocation writes. When
	// objPath is non-empty, TargetPath/TargetName are replaced by objPath's
	// directory and base name; otherwise settings are left as they are.
	// The compiler-appropriate output flag is added when the argv is built.
	SetTarget(settings *model.BuildSettings, platform model.Platform, objPath string) error

	// Invoke runs one compile. On non-zero exit with cb == nil, it
	// returns a *model.CompileFailed. With cb != nil, failures are
	// reported to cb instead of returned.
	Invoke(ctx context.Context, settings *model.BuildSettings, platform model.Platform, cb model.CompileCallback) error

	// InvokeLinker links pre-produced object files. Failure policy is
	// identical to Invoke.
	InvokeLinker(ctx context.Context, settings *model.BuildSettings, platform model.Platform, objs []string, cb model.CompileCallback) error

	// ExtractBuildOptions reverse-folds known dflags back into the
	// options bitmask so later stages (build-ID hashing, up-to-date
	// checks) can reason about them structurally instead of as strings.
	ExtractBuildOptions(settings *model.BuildSettings) model.BuildOption
}
