package model

// Platform is the platform tuple a GeneratorSettings is resolved for (spec
// §3: "platform tags, architecture tags, compiler id, compiler binary path,
// frontend version").
type Platform struct {
	PlatformTags []string // e.g. ["linux", "posix"]
	ArchTags     []string // e.g. ["x86_64"]
	CompilerID   string   // e.g. "dmd", "ldc2", "gdc"
	CompilerBin  string   // resolved path to the compiler binary
	FrontendVer  string   // frontend version string, e.g. "2.109"
}

// CompileCallback receives the raw combined stdout+stderr of a compile or
// link invocation instead of having the driver fail the build outright
// (spec §4.A: "If cb is provided, capture stdout+stderr and deliver to cb,
// do not throw").
type CompileCallback func(status int, output string)

// RunCallback is invoked after a `run`-requested target executable exits.
type RunCallback func(status int)

// GeneratorSettings bundles everything the Build Executor and Watch Loop
// need beyond the TargetInfo map itself (spec §3).
type GeneratorSettings struct {
	Platform Platform

	Config    string // selected configuration name
	BuildType string // e.g. "debug", "release", "unittest-cov"
	BuildMode BuildMode

	Combined      bool
	Run           bool
	Force         bool
	Direct        bool
	RDMD          bool
	TempBuild     bool
	ParallelBuild bool
	Watch         bool

	RunArgs []string

	OnCompile CompileCallback
	OnLink    CompileCallback
	OnRun     RunCallback
}
