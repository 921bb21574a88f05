// Package planner implements the Target Planner (spec §4.E): it turns a
// resolved package graph into a map of binary-target descriptors with
// fully merged, inheritance-folded BuildSettings.
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/hooks"
	"github.com/nativebuild/nbs/internal/model"
	"github.com/nativebuild/nbs/internal/msg"
)

// Plan computes the TargetInfo map for project under gs, along with the
// main source file declared by each surviving target (keyed by target
// name). driver supplies ExtractBuildOptions for the final build-type fold
// (step 11).
func Plan(project model.Project, gs model.GeneratorSettings, driver compiler.Driver) (map[string]*model.TargetInfo, map[string]string, error) {
	targets := make(map[string]*model.TargetInfo)

	// step 1: initial population
	for _, pkg := range project.Packages() {
		settings, err := pkg.BuildSettingsFor(gs.Config)
		if err != nil {
			return nil, nil, &model.PlanningError{Package: pkg.Name, Reason: err.Error()}
		}
		expandVariables(pkg, project.RootPackage(), settings)
		targets[pkg.Name] = &model.TargetInfo{
			RootPackage:   pkg,
			Packages:      []*model.Package{pkg},
			Configuration: gs.Config,
			BuildSettings: settings,
		}
	}

	// step 2: pre-generate hooks
	runPreGenerateHooks(project, targets, gs)

	// step 3: target-type determination
	root := project.RootPackage()
	for name, t := range targets {
		determineTargetType(t, name == root.Name, gs.Combined)
	}

	// step 5: dependency collection (DFS from root)
	rootTarget, ok := targets[root.Name]
	if !ok {
		return nil, nil, &model.PlanningError{Package: root.Name, Reason: "root package produced no target"}
	}
	visited := make(map[string]bool)
	if err := collectDependencies(project, targets, root, rootTarget, visited); err != nil {
		return nil, nil, err
	}

	// step 6: downward inheritance
	downVisited := make(map[string]bool)
	inheritDownward(project, targets, root, downVisited)

	// step 7: synthesized Have_<name> version identifiers
	for name, t := range targets {
		for _, pkg := range t.Packages {
			if pkg.Name == name {
				continue
			}
			t.BuildSettings.AddHaveVersion(pkg.Name)
		}
		for _, depName := range t.Dependencies {
			t.BuildSettings.AddHaveVersion(depName)
		}
	}

	// step 8: upward inheritance (link dependencies, then absorbed packages),
	// folded leaves-to-root via recursion so the result never depends on Go's
	// unordered map iteration.
	foldVisited := make(map[string]bool)
	for _, name := range sortedTargetNames(targets) {
		foldUpwardAll(targets, name, foldVisited)
	}

	// step 9: string-import override
	applyStringImportOverride(targets, root.Name)

	// step 10: purge non-binary entries
	for name, t := range targets {
		if !t.BuildSettings.TargetType.IsBinary() {
			delete(targets, name)
		}
	}

	// step 11: build-type settings fold + option extraction
	mainSourceFiles := make(map[string]string)
	buildDflags := builtinBuildTypeDflags[gs.BuildType]
	for name, t := range targets {
		t.BuildSettings.Dflags = appendUniqueStrs(t.BuildSettings.Dflags, buildDflags...)
		driver.ExtractBuildOptions(t.BuildSettings)
		if t.BuildSettings.MainSourceFile != "" {
			mainSourceFiles[name] = t.BuildSettings.MainSourceFile
		}
	}

	return targets, mainSourceFiles, nil
}

func runPreGenerateHooks(project model.Project, targets map[string]*model.TargetInfo, gs model.GeneratorSettings) {
	chain := hooks.UsedPackages(os.Getenv("DUB_PACKAGES_USED"))
	root := project.RootPackage()
	for _, pkg := range project.Packages() {
		t := targets[pkg.Name]
		if len(t.BuildSettings.PreGenerateCommands) == 0 {
			continue
		}
		if hooks.WouldRecurse(chain, pkg.Name) {
			msg.Diag("skipping pre-generate commands for %s: already running in this invocation", pkg.Name)
			continue
		}
		msg.Info("Running pre-generate commands for %s...", pkg.Name)
		env := hooks.Build(pkg, t, root, gs, chain)
		if err := hooks.RunAll(t.BuildSettings.PreGenerateCommands, pkg.Path, env); err != nil {
			msg.Warn("%v", err)
		}
	}
}

func determineTargetType(t *model.TargetInfo, isRoot, combined bool) {
	s := t.BuildSettings
	switch s.TargetType {
	case model.TargetAutodetect, model.TargetLibrary:
		if isRoot {
			s.TargetType = model.TargetStaticLibrary
		} else if combined {
			s.TargetType = model.TargetSourceLibrary
		} else {
			s.TargetType = model.TargetStaticLibrary
		}
	case model.TargetDynamicLibrary:
		if !isRoot {
			msg.Warn("dynamic library target %q is downgraded to a static library", t.Name())
			s.TargetType = model.TargetStaticLibrary
		}
	}

	if len(s.SourceFiles) == 0 && s.TargetType != model.TargetSourceLibrary && s.TargetType != model.TargetNone {
		*s = model.BuildSettings{TargetType: model.TargetNone, TargetPath: s.TargetPath, TargetName: s.TargetName}
	}

	if s.TargetType == model.TargetDynamicLibrary {
		s.Options |= model.OptPIC
	}
}

func collectDependencies(project model.Project, targets map[string]*model.TargetInfo, pkg *model.Package, acc *model.TargetInfo, visited map[string]bool) error {
	if visited[pkg.Name] {
		return nil
	}
	visited[pkg.Name] = true

	for _, depName := range sortedDepNames(pkg) {
		depSpec := pkg.Dependencies[depName]
		if depSpec.Optional && !project.Selected(pkg, depName) {
			continue
		}

		depTarget, ok := targets[depName]
		if !ok {
			if depSpec.Optional {
				continue
			}
			return &model.PlanningError{Package: pkg.Name, Reason: fmt.Sprintf("dependency %q not found in project", depName)}
		}
		depPkg := depTarget.RootPackage

		if !depTarget.BuildSettings.TargetType.IsBinary() {
			acc.Packages = appendPkgIfAbsent(acc.Packages, depPkg)
			acc.Dependencies = appendUniqueStrs(acc.Dependencies, depName)
			if err := collectDependencies(project, targets, depPkg, acc, visited); err != nil {
				return err
			}
			continue
		}

		artifact := filepath.Join(depTarget.BuildSettings.TargetPath, depTarget.BuildSettings.TargetName)
		depTarget.BuildSettings.SourceFiles = []string{artifact}
		depTarget.BuildSettings.ImportFiles = nil

		if depTarget.BuildSettings.TargetType == model.TargetExecutable {
			continue
		}

		acc.Dependencies = appendUniqueStrs(acc.Dependencies, depName)
		acc.LinkDependencies = appendUniqueStrs(acc.LinkDependencies, depName)

		if err := collectDependencies(project, targets, depPkg, depTarget, visited); err != nil {
			return err
		}
		// depTarget.LinkDependencies is only populated by the recursive call
		// above, so the transitive closure must be folded in after it. The
		// dependency's own link dependencies are moved behind every entry
		// already listed, so each library stays ahead of the ones it needs.
		if depTarget.BuildSettings.TargetType == model.TargetStaticLibrary {
			acc.LinkDependencies = appendMovingToEnd(acc.LinkDependencies, depTarget.LinkDependencies)
		}
	}
	return nil
}

func inheritDownward(project model.Project, targets map[string]*model.TargetInfo, pkg *model.Package, visited map[string]bool) {
	if visited[pkg.Name] {
		return
	}
	visited[pkg.Name] = true

	parent := targets[pkg.Name]
	if parent == nil {
		return
	}

	for _, depName := range sortedDepNames(pkg) {
		depSpec := pkg.Dependencies[depName]
		if depSpec.Optional && !project.Selected(pkg, depName) {
			continue
		}
		dep := targets[depName]
		if dep == nil {
			continue
		}
		dep.BuildSettings.Versions = appendUniqueStrs(dep.BuildSettings.Versions, parent.BuildSettings.Versions...)
		dep.BuildSettings.DebugVersions = appendUniqueStrs(dep.BuildSettings.DebugVersions, parent.BuildSettings.DebugVersions...)
		dep.BuildSettings.Options |= parent.BuildSettings.Options.Inheritable()
		inheritDownward(project, targets, dep.RootPackage, visited)
	}
}

// foldUpwardAll folds name's dependencies into it, recursing into each
// dependency first so a target is only folded into its parent once its own
// upward fold (from its own dependencies) has already settled. Link
// dependencies fold in before absorbed packages, per spec §4.E step 8.
// Absorbed packages also contribute their source, import and string-import
// files, since they are compiled as part of this target.
func foldUpwardAll(targets map[string]*model.TargetInfo, name string, visited map[string]bool) {
	if visited[name] {
		return
	}
	visited[name] = true

	t := targets[name]
	if t == nil {
		return
	}

	for _, depName := range t.LinkDependencies {
		foldUpwardAll(targets, depName, visited)
	}
	for _, pkg := range t.Packages {
		if pkg.Name != name {
			foldUpwardAll(targets, pkg.Name, visited)
		}
	}

	for _, depName := range t.LinkDependencies {
		if dep := targets[depName]; dep != nil {
			foldUpward(t.BuildSettings, dep.BuildSettings)
		}
	}
	for _, pkg := range t.Packages {
		if pkg.Name == name {
			continue
		}
		if dep := targets[pkg.Name]; dep != nil {
			foldUpward(t.BuildSettings, dep.BuildSettings)
			t.BuildSettings.SourceFiles = appendUniqueStrs(t.BuildSettings.SourceFiles, dep.BuildSettings.SourceFiles...)
			t.BuildSettings.ImportFiles = appendUniqueStrs(t.BuildSettings.ImportFiles, dep.BuildSettings.ImportFiles...)
			t.BuildSettings.StringImportFiles = appendUniqueStrs(t.BuildSettings.StringImportFiles, dep.BuildSettings.StringImportFiles...)
		}
	}
}

// foldUpward merges the ABI-relevant fields of src into dst (spec §4.E
// step 8).
func foldUpward(dst, src *model.BuildSettings) {
	dst.ImportPaths = appendUniqueStrs(dst.ImportPaths, src.ImportPaths...)
	dst.Versions = appendUniqueStrs(dst.Versions, src.Versions...)
	dst.Libs = appendUniqueStrs(dst.Libs, src.Libs...)
	dst.Dflags = appendUniqueStrs(dst.Dflags, src.Dflags...)
	dst.Lflags = appendUniqueStrs(dst.Lflags, src.Lflags...)
}

func applyStringImportOverride(targets map[string]*model.TargetInfo, rootName string) {
	root, ok := targets[rootName]
	if !ok {
		return
	}
	for name, t := range targets {
		if name == rootName || len(t.BuildSettings.StringImportPaths) == 0 {
			continue
		}
		for i, f := range t.BuildSettings.StringImportFiles {
			base := filepath.Base(f)
			for _, rf := range root.BuildSettings.StringImportFiles {
				if filepath.Base(rf) == base {
					t.BuildSettings.StringImportFiles[i] = rf
					break
				}
			}
		}
		t.BuildSettings.StringImportPaths = append(
			append([]string(nil), root.BuildSettings.StringImportPaths...),
			t.BuildSettings.StringImportPaths...,
		)
	}
}

// expandVariables replaces $PACKAGE_DIR / $ROOT_PACKAGE_DIR placeholders
// across every path-bearing field of settings (spec §4.E step 1).
func expandVariables(pkg, root *model.Package, settings *model.BuildSettings) {
	repl := strings.NewReplacer(
		"$PACKAGE_DIR", pkg.Path,
		"${PACKAGE_DIR}", pkg.Path,
		"$ROOT_PACKAGE_DIR", root.Path,
		"${ROOT_PACKAGE_DIR}", root.Path,
	)

	fields := [][]string{
		settings.SourceFiles, settings.ImportFiles, settings.StringImportFiles,
		settings.ImportPaths, settings.StringImportPaths, settings.CopyFiles,
		settings.Dflags, settings.Lflags, settings.Libs,
		settings.PreBuildCommands, settings.PostBuildCommands,
		settings.PreGenerateCommands, settings.PostGenerateCommands,
	}
	for _, field := range fields {
		for i, v := range field {
			field[i] = repl.Replace(v)
		}
	}
	settings.TargetPath = repl.Replace(settings.TargetPath)
	settings.TargetName = repl.Replace(settings.TargetName)
	settings.MainSourceFile = repl.Replace(settings.MainSourceFile)
	settings.WorkingDirectory = repl.Replace(settings.WorkingDirectory)
}

func sortedTargetNames(targets map[string]*model.TargetInfo) []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedDepNames(pkg *model.Package) []string {
	names := make([]string, 0, len(pkg.Dependencies))
	for name := range pkg.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func appendUniqueStrs(dst []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range dst {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}

// appendMovingToEnd returns dst without any entry that is in items,
// followed by items in their own order.
func appendMovingToEnd(dst []string, items []string) []string {
	out := make([]string, 0, len(dst)+len(items))
	for _, existing := range dst {
		found := false
		for _, item := range items {
			if item == existing {
				found = true
				break
			}
		}
		if !found {
			out = append(out, existing)
		}
	}
	return append(out, items...)
}

func appendPkgIfAbsent(dst []*model.Package, pkg *model.Package) []*model.Package {
	for _, p := range dst {
		if p.Name == pkg.Name {
			return dst
		}
	}
	return append(dst, pkg)
}
