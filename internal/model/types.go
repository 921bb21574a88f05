// Package model defines the data types shared by every stage of the build
// orchestration core: the resolved package graph, the per-target settings
// bag the planner produces, and the generator-wide options the executor and
// watch loop read from.
package model

import "regexp"

// TargetType is the kind of artifact a target produces.
type TargetType int

const (
	TargetAutodetect TargetType = iota
	TargetNone
	TargetExecutable
	TargetLibrary
	TargetStaticLibrary
	TargetDynamicLibrary
	TargetSourceLibrary
	TargetObject
)

func (t TargetType) String() string {
	switch t {
	case TargetAutodetect:
		return "autodetect"
	case TargetNone:
		return "none"
	case TargetExecutable:
		return "executable"
	case TargetLibrary:
		return "library"
	case TargetStaticLibrary:
		return "staticLibrary"
	case TargetDynamicLibrary:
		return "dynamicLibrary"
	case TargetSourceLibrary:
		return "sourceLibrary"
	case TargetObject:
		return "object"
	default:
		return "unknown"
	}
}

// IsBinary reports whether this target type causes the compiler to emit a
// linked artifact, as opposed to being absorbed into a parent target.
func (t TargetType) IsBinary() bool {
	switch t {
	case TargetExecutable, TargetStaticLibrary, TargetDynamicLibrary:
		return true
	default:
		return false
	}
}

// BuildMode selects how the Build Executor dispatches a compiler invocation
// across a target's source files (spec §4.F "Build-mode dispatch").
type BuildMode int

const (
	BuildModeSeparate BuildMode = iota
	BuildModeAllAtOnce
	BuildModeSingleFile
)

// BuildOption is a bitmask of compiler-affecting boolean switches. Only the
// subset named in spec §3/§4.E matters to the core; concrete drivers may
// recognize more bits via ExtractBuildOptions.
type BuildOption uint32

const (
	OptSyntaxOnly BuildOption = 1 << iota
	OptPIC
	OptUnittests
	OptCoverage
	OptDebugInfo
	OptDebugMode
	OptReleaseMode
	OptOptimize
	OptInline
	OptLowmem
	OptIgnoreUnknownPragmas
	OptStackStomping
	OptWarnings
	OptWarningsAsErrors
)

// inheritableOptions is the subset of the options bitmask spec §4.E step 6
// copies downward from parent to child target (PIC alignment, unittest and
// coverage mode, debug info, and related ABI/build-mode flags). Everything
// else (e.g. per-target warning levels) stays local.
const inheritableOptions = OptPIC | OptUnittests | OptCoverage | OptDebugInfo | OptDebugMode | OptReleaseMode | OptLowmem

// Inheritable returns the subset of o that downward inheritance propagates.
func (o BuildOption) Inheritable() BuildOption {
	return o & inheritableOptions
}

// Has reports whether all bits in mask are set in o.
func (o BuildOption) Has(mask BuildOption) bool { return o&mask == mask }

// BuildSettings is the merged, mutable bag of compile/link inputs for one
// target (spec §3). Zero value is an empty settings bag.
type BuildSettings struct {
	TargetType TargetType
	TargetPath string
	TargetName string

	SourceFiles       []string
	ImportFiles       []string
	StringImportFiles []string
	Versions          []string
	DebugVersions     []string
	Dflags            []string
	Lflags            []string
	Libs              []string
	ImportPaths       []string
	StringImportPaths []string
	CopyFiles         []string

	PreBuildCommands    []string
	PostBuildCommands   []string
	PreGenerateCommands []string
	PostGenerateCommands []string

	Options BuildOption

	MainSourceFile   string
	WorkingDirectory string
}

// Clone performs a deep copy so that plan state can never be mutated by a
// later build stage (spec §3 lifecycle invariant).
func (b *BuildSettings) Clone() *BuildSettings {
	if b == nil {
		return nil
	}
	c := *b
	c.SourceFiles = append([]string(nil), b.SourceFiles...)
	c.ImportFiles = append([]string(nil), b.ImportFiles...)
	c.StringImportFiles = append([]string(nil), b.StringImportFiles...)
	c.Versions = append([]string(nil), b.Versions...)
	c.DebugVersions = append([]string(nil), b.DebugVersions...)
	c.Dflags = append([]string(nil), b.Dflags...)
	c.Lflags = append([]string(nil), b.Lflags...)
	c.Libs = append([]string(nil), b.Libs...)
	c.ImportPaths = append([]string(nil), b.ImportPaths...)
	c.StringImportPaths = append([]string(nil), b.StringImportPaths...)
	c.CopyFiles = append([]string(nil), b.CopyFiles...)
	c.PreBuildCommands = append([]string(nil), b.PreBuildCommands...)
	c.PostBuildCommands = append([]string(nil), b.PostBuildCommands...)
	c.PreGenerateCommands = append([]string(nil), b.PreGenerateCommands...)
	c.PostGenerateCommands = append([]string(nil), b.PostGenerateCommands...)
	return &c
}

// addVersion appends ver to Versions if it isn't already present.
func (b *BuildSettings) addVersion(ver string) {
	for _, v := range b.Versions {
		if v == ver {
			return
		}
	}
	b.Versions = append(b.Versions, ver)
}

// AddHaveVersion synthesizes and appends the Have_<sanitized-name> version
// identifier for depName (spec §3 invariant 6, §4.E step 7).
func (b *BuildSettings) AddHaveVersion(depName string) {
	b.addVersion("Have_" + SanitizeVersionName(depName))
}

var sanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// SanitizeVersionName turns an arbitrary package name into an identifier
// fragment suitable for use in a Have_<name> version, collapsing runs of
// non-alphanumeric characters to a single underscore.
func SanitizeVersionName(name string) string {
	return sanitizeRe.ReplaceAllString(name, "_")
}

// DependencySpec is one entry of a Package's dependency map: a version
// constraint string (opaque to the core — resolved before planning runs)
// plus the optional flag spec §3 describes.
type DependencySpec struct {
	Constraint string
	Optional   bool
}

// BuildSettingsFunc produces the BuildSettings for a package under the
// given configuration name. Supplied by the external recipe frontend.
type BuildSettingsFunc func(configuration string) (*BuildSettings, error)

// Package is an external, read-only-to-the-core entity: a resolved node in
// the dependency graph (spec §3). The core never mutates a Package.
type Package struct {
	Name         string
	Version      string
	Path         string
	RecipePath   string
	Dependencies map[string]DependencySpec

	// BuildSettingsFor returns this package's settings for a configuration.
	BuildSettingsFor BuildSettingsFunc

	// Configurations lists the configuration names this package declares
	// (recipe-defined); "" / "default" is always implicitly valid via
	// BuildSettingsFor.
	Configurations []string
}

// Project is the external supplier of the resolved package graph (spec §3,
// "Project (external)"). The core depends only on this interface, never on
// how packages were fetched or parsed.
type Project interface {
	// RootPackage returns the package being built.
	RootPackage() *Package
	// Packages returns every package reachable from the root. The planner
	// runs pre-generate commands in this order; its output does not
	// otherwise depend on the order.
	Packages() []*Package
	// Selected reports whether an optional dependency of pkg named
	// depName was selected for this build (spec §4.E step 5).
	Selected(pkg *Package, depName string) bool
}

// TargetInfo is the per-binary-target descriptor the planner produces
// (spec §3).
type TargetInfo struct {
	RootPackage *Package

	// Packages is the root plus every non-binary dependency absorbed by
	// source inclusion into this target.
	Packages []*Package

	Configuration string
	BuildSettings *BuildSettings

	// Dependencies lists every direct or transitively-absorbed package
	// name reachable from this target (spec §3: "all transitive
	// dependencies by name").
	Dependencies []string

	// LinkDependencies lists the dependencies that are themselves binary
	// targets, ordered so a dependency always appears after everything
	// that depends on it (spec §3 invariant 5).
	LinkDependencies []string
}

// Name returns the target's identifying package name.
func (t *TargetInfo) Name() string { return t.RootPackage.Name }
