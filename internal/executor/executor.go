// Package executor implements the Build Executor (spec §4.F): it drives
// the per-target compile/link cycle the Target Planner's output describes,
// dispatching each target to a cached, direct, or rdmd build strategy and
// publishing the resulting artifact.
package executor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nativebuild/nbs/internal/buildid"
	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/hooks"
	"github.com/nativebuild/nbs/internal/model"
	"github.com/nativebuild/nbs/internal/msg"
	"github.com/nativebuild/nbs/internal/uptodate"
	"github.com/nativebuild/nbs/internal/watchloop"
)

const cacheDirName = ".buildcache"

// Executor runs the build described by a planned TargetInfo map.
type Executor struct {
	Driver compiler.Driver
	temp   tempTracker
}

// New creates an Executor driving compilation through driver.
func New(driver compiler.Driver) *Executor {
	return &Executor{Driver: driver}
}

// Build drives targets to completion, starting from root, and cleans up
// any temporary directories/files it created regardless of outcome.
func (e *Executor) Build(targets map[string]*model.TargetInfo, root *model.Package, gs model.GeneratorSettings) error {
	defer e.temp.cleanup()

	rootTarget, ok := targets[root.Name]
	if !ok {
		return &model.PlanningError{Package: root.Name, Reason: "root package has no planned target"}
	}

	if gs.RDMD || rootTarget.BuildSettings.TargetType == model.TargetStaticLibrary {
		return e.buildRDMD(rootTarget, gs)
	}

	built := make(map[string]bool)
	if err := e.buildWithDeps(rootTarget.Name(), targets, built, root, gs); err != nil {
		return err
	}

	if gs.Run && rootTarget.BuildSettings.TargetType == model.TargetExecutable {
		return e.postGenerateRun(rootTarget, targets, root, gs)
	}
	return nil
}

// buildWithDeps is the memoized DFS from root, building every
// link-dependency before the target that needs it (spec §4.F step 2).
func (e *Executor) buildWithDeps(name string, targets map[string]*model.TargetInfo, built map[string]bool, root *model.Package, gs model.GeneratorSettings) error {
	if built[name] {
		return nil
	}
	t, ok := targets[name]
	if !ok {
		return &model.PlanningError{Package: name, Reason: "link dependency has no planned target"}
	}
	for _, dep := range t.LinkDependencies {
		if err := e.buildWithDeps(dep, targets, built, root, gs); err != nil {
			return err
		}
	}
	built[name] = true
	return e.buildOne(t, targets, root, gs)
}

// buildOne builds a single target, having already built its dependencies.
func (e *Executor) buildOne(t *model.TargetInfo, targets map[string]*model.TargetInfo, root *model.Package, gs model.GeneratorSettings) error {
	settings := t.BuildSettings.Clone()
	var additionalDepFiles []string

	for _, depName := range t.LinkDependencies {
		dep, ok := targets[depName]
		if !ok {
			continue
		}
		artifact := filepath.Join(dep.BuildSettings.TargetPath, dep.BuildSettings.TargetName)
		if settings.TargetType != model.TargetStaticLibrary {
			settings.SourceFiles = append(settings.SourceFiles, artifact)
		} else {
			additionalDepFiles = append(additionalDepFiles, artifact)
		}
	}

	var cached bool
	var err error
	if gs.Direct || settings.Options.Has(model.OptSyntaxOnly) {
		err = e.directBuild(t, settings, additionalDepFiles, root, gs)
	} else {
		cached, err = e.cachedBuild(t, settings, additionalDepFiles, root, gs)
	}
	if err != nil {
		return err
	}

	copyFiles(t.BuildSettings.CopyFiles, t.RootPackage.Path, t.BuildSettings.TargetPath)

	if !cached {
		env := hooks.Build(t.RootPackage, t, root, gs, hooks.UsedPackages(os.Getenv("DUB_PACKAGES_USED")))
		if err := hooks.RunAll(t.BuildSettings.PostBuildCommands, t.RootPackage.Path, env); err != nil {
			msg.Warn("%v", err)
		}
	}
	return nil
}

// cachedBuild implements the content-addressed cache path (spec §4.F
// "Cached build").
func (e *Executor) cachedBuild(t *model.TargetInfo, settings *model.BuildSettings, additionalDepFiles []string, root *model.Package, gs model.GeneratorSettings) (cached bool, err error) {
	id := buildid.Compute(settings, gs)
	cacheDir := filepath.Join(t.RootPackage.Path, cacheDirName, id)
	cachedArtifact := filepath.Join(cacheDir, settings.TargetName)
	finalArtifact := filepath.Join(t.BuildSettings.TargetPath, t.BuildSettings.TargetName)

	inputs := upToDateInputs(t, settings, additionalDepFiles)

	if !gs.Force && uptodate.Check(cachedArtifact, inputs) {
		if err := hardlinkFile(cachedArtifact, finalArtifact); err != nil {
			return false, &model.IOError{Path: finalArtifact, Op: "link", Err: err}
		}
		msg.Info("%s %s is up to date", t.Name(), id)
		return true, nil
	}

	if gs.TempBuild || !dirWritable(t.RootPackage.Path) {
		return false, e.directBuild(t, settings, additionalDepFiles, root, gs)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return false, &model.IOError{Path: cacheDir, Op: "mkdir", Err: err}
	}

	env := hooks.Build(t.RootPackage, t, root, gs, hooks.UsedPackages(os.Getenv("DUB_PACKAGES_USED")))
	if len(settings.PreBuildCommands) > 0 {
		msg.Info("Running pre-build commands...")
		if err := hooks.RunAll(settings.PreBuildCommands, t.RootPackage.Path, env); err != nil {
			msg.Warn("%v", err)
		}
	}

	built := settings.Clone()
	built.TargetPath = cacheDir

	mode := resolveBuildMode(gs.BuildMode, gs.Platform.CompilerID, built.TargetType)
	if err := invokeCompile(context.Background(), e.Driver, built, gs.Platform, mode, gs.OnCompile); err != nil {
		os.Remove(cachedArtifact)
		return false, err
	}

	if err := hardlinkFile(cachedArtifact, finalArtifact); err != nil {
		return false, &model.IOError{Path: finalArtifact, Op: "link", Err: err}
	}
	return false, nil
}

// directBuild writes straight into the user's configured targetPath, with
// paths relativized to keep command lines short (spec §4.F "Direct
// build").
func (e *Executor) directBuild(t *model.TargetInfo, settings *model.BuildSettings, additionalDepFiles []string, root *model.Package, gs model.GeneratorSettings) error {
	built := settings.Clone()

	if gs.TempBuild {
		tmpDir, err := os.MkdirTemp("", "nbs-build-")
		if err != nil {
			return &model.IOError{Path: tmpDir, Op: "mkdtemp", Err: err}
		}
		e.temp.trackDir(tmpDir)
		built.TargetPath = tmpDir
	}

	if cwd, err := os.Getwd(); err == nil {
		relativizePaths(built, cwd)
	}

	env := hooks.Build(t.RootPackage, t, root, gs, hooks.UsedPackages(os.Getenv("DUB_PACKAGES_USED")))
	if len(built.PreBuildCommands) > 0 {
		msg.Info("Running pre-build commands...")
		if err := hooks.RunAll(built.PreBuildCommands, t.RootPackage.Path, env); err != nil {
			msg.Warn("%v", err)
		}
	}

	mode := resolveBuildMode(gs.BuildMode, gs.Platform.CompilerID, built.TargetType)
	if built.Options.Has(model.OptSyntaxOnly) {
		mode = model.BuildModeAllAtOnce
	}
	return invokeCompile(context.Background(), e.Driver, built, gs.Platform, mode, gs.OnCompile)
}

// buildRDMD invokes the all-at-once driver on the root only, per the rdmd
// override rule: rdmd resolves dependencies itself, and a static library
// has none to link (spec §4.F step 1).
func (e *Executor) buildRDMD(t *model.TargetInfo, gs model.GeneratorSettings) error {
	settings := t.BuildSettings.Clone()
	return invokeCompile(context.Background(), e.Driver, settings, gs.Platform, model.BuildModeAllAtOnce, gs.OnCompile)
}

// upToDateInputs assembles spec §4.D's input set: sourceFiles, importFiles,
// stringImportFiles, per-package recipe files, and additional dependency
// artifacts. It does not add a selected-versions manifest for the root
// target: internal/recipe has no lockfile/selections-manifest concept (see
// DESIGN.md Open Question #3), so that input category is vacuous here
// rather than silently dropped.
func upToDateInputs(t *model.TargetInfo, settings *model.BuildSettings, additionalDepFiles []string) []string {
	inputs := make([]string, 0, len(settings.SourceFiles)+len(settings.ImportFiles)+len(settings.StringImportFiles)+len(additionalDepFiles)+len(t.Packages))
	inputs = append(inputs, settings.SourceFiles...)
	inputs = append(inputs, settings.ImportFiles...)
	inputs = append(inputs, settings.StringImportFiles...)
	inputs = append(inputs, additionalDepFiles...)
	for _, pkg := range t.Packages {
		if pkg.RecipePath != "" {
			inputs = append(inputs, pkg.RecipePath)
		}
	}
	return inputs
}

func dirWritable(dir string) bool {
	probe := filepath.Join(dir, cacheDirName, ".write-probe")
	if err := os.MkdirAll(filepath.Dir(probe), 0o755); err != nil {
		return false
	}
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// relativizePaths rewrites every path-bearing field in settings to be
// relative to cwd where possible, keeping generated command lines under
// platform length limits (spec §9 "Path handling").
func relativizePaths(settings *model.BuildSettings, cwd string) {
	rel := func(p string) string {
		if p == "" || !filepath.IsAbs(p) {
			return p
		}
		if r, err := filepath.Rel(cwd, p); err == nil {
			return r
		}
		return p
	}
	relAll := func(paths []string) {
		for i, p := range paths {
			paths[i] = rel(p)
		}
	}
	relAll(settings.SourceFiles)
	relAll(settings.ImportFiles)
	relAll(settings.StringImportFiles)
	relAll(settings.ImportPaths)
	relAll(settings.StringImportPaths)
	settings.TargetPath = rel(settings.TargetPath)
}

// postGenerateRun spawns the built executable, chdir'd into its configured
// working directory, handing off to the watch loop when both run and
// watch are requested (spec §4.F "Post-generate actions").
func (e *Executor) postGenerateRun(t *model.TargetInfo, targets map[string]*model.TargetInfo, root *model.Package, gs model.GeneratorSettings) error {
	exePath, err := filepath.Abs(filepath.Join(t.BuildSettings.TargetPath, t.BuildSettings.TargetName))
	if err != nil {
		return err
	}

	origWD, err := os.Getwd()
	if err != nil {
		return err
	}
	if t.BuildSettings.WorkingDirectory != "" {
		if err := os.Chdir(t.BuildSettings.WorkingDirectory); err != nil {
			return &model.IOError{Path: t.BuildSettings.WorkingDirectory, Op: "chdir", Err: err}
		}
		defer os.Chdir(origWD)
	}

	if gs.Watch {
		rebuild := func() error {
			built := make(map[string]bool)
			return e.buildWithDeps(t.Name(), targets, built, root, gs)
		}
		exitCode, err := watchloop.Run(t, exePath, gs.RunArgs, rebuild)
		if err != nil {
			return err
		}
		if gs.OnRun != nil {
			gs.OnRun(exitCode)
		}
		if exitCode != 0 {
			return &model.RunFailed{Target: t.Name(), ExitCode: exitCode}
		}
		return nil
	}

	cmd := exec.CommandContext(context.Background(), exePath, gs.RunArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	runErr := cmd.Run()
	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return &model.IOError{Path: exePath, Op: "exec", Err: runErr}
	}
	if gs.OnRun != nil {
		gs.OnRun(exitCode)
	}
	if exitCode != 0 {
		return &model.RunFailed{Target: t.Name(), ExitCode: exitCode}
	}
	return nil
}
