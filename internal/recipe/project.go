package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nativebuild/nbs/internal/model"
	"github.com/nativebuild/nbs/internal/msg"
)

const depsCacheDir = ".nbs-deps"

var targetTypeNames = map[string]model.TargetType{
	"":               model.TargetAutodetect,
	"autodetect":     model.TargetAutodetect,
	"none":           model.TargetNone,
	"executable":     model.TargetExecutable,
	"library":        model.TargetLibrary,
	"staticLibrary":  model.TargetStaticLibrary,
	"dynamicLibrary": model.TargetDynamicLibrary,
	"sourceLibrary":  model.TargetSourceLibrary,
	"object":         model.TargetObject,
}

func parseTargetType(name string) (model.TargetType, error) {
	t, ok := targetTypeNames[name]
	if !ok {
		return model.TargetAutodetect, fmt.Errorf("recipe: unknown target type %q", name)
	}
	return t, nil
}

// loadedPackage bundles a resolved model.Package with the manifest it was
// parsed from, so BuildSettingsFor can be closed over both.
type loadedPackage struct {
	pkg      *model.Package
	manifest *Manifest
	dir      string
}

// LoadedProject is the concrete model.Project the recipe frontend
// produces: a flat package graph in depth-first resolve order, so
// Packages() lists every dependency before its dependents and the root
// package last.
type LoadedProject struct {
	root     *loadedPackage
	order    []*loadedPackage
	selected map[string]bool // "pkgName/depName" -> selected
}

func (p *LoadedProject) RootPackage() *model.Package { return p.root.pkg }

func (p *LoadedProject) Packages() []*model.Package {
	pkgs := make([]*model.Package, len(p.order))
	for i, lp := range p.order {
		pkgs[i] = lp.pkg
	}
	return pkgs
}

// Selected reports whether an optional dependency was selected. The recipe
// frontend has no feature-selection UI, so every declared dependency
// (optional or not) is always selected once it resolves successfully.
func (p *LoadedProject) Selected(pkg *model.Package, depName string) bool {
	return p.selected[pkg.Name+"/"+depName]
}

// Load parses the manifest at manifestPath and recursively fetches/parses
// every dependency it (transitively) declares, producing a LoadedProject
// ready to hand to internal/planner.Plan.
func Load(manifestPath string) (*LoadedProject, error) {
	proj := &LoadedProject{selected: make(map[string]bool)}
	visiting := make(map[string]*loadedPackage)

	root, err := proj.resolve(manifestPath, "", visiting)
	if err != nil {
		return nil, err
	}
	proj.root = root
	return proj, nil
}

// resolve loads the manifest at manifestPath (if not already loaded),
// recursively resolving its dependencies depth-first so that Packages()
// comes back dependencies-before-dependents.
func (p *LoadedProject) resolve(manifestPath, parentDir string, visiting map[string]*loadedPackage) (*loadedPackage, error) {
	dir := filepath.Dir(manifestPath)
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if lp, ok := visiting[absDir]; ok {
		return lp, nil
	}

	env := NewConfigEnv("")
	m, err := ParseManifestFile(manifestPath, env)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", manifestPath, err)
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("recipe: %s declares no [package].name", manifestPath)
	}

	pkg := &model.Package{
		Name:         m.Package.Name,
		Version:      m.Package.Version,
		Path:         absDir,
		RecipePath:   manifestPath,
		Dependencies: map[string]model.DependencySpec{},
	}
	lp := &loadedPackage{pkg: pkg, manifest: m, dir: absDir}
	visiting[absDir] = lp

	for name, dep := range m.Dependencies {
		pkg.Dependencies[name] = model.DependencySpec{Constraint: dep.Version, Optional: dep.Optional}

		depDir, err := p.fetchDependency(absDir, name, dep)
		if err != nil {
			if dep.Optional {
				msg.Warn("optional dependency %q unavailable: %v", name, err)
				continue
			}
			return nil, fmt.Errorf("fetching dependency %q: %w", name, err)
		}

		depManifest := filepath.Join(depDir, "Project.toml")
		depLP, err := p.resolve(depManifest, absDir, visiting)
		if err != nil {
			return nil, err
		}
		p.selected[pkg.Name+"/"+name] = true
		p.order = appendOnce(p.order, depLP)
	}

	pkg.Configurations = m.ConfigurationNames()
	pkg.BuildSettingsFor = func(configuration string) (*model.BuildSettings, error) {
		return buildSettingsFromManifest(m, absDir, configuration)
	}

	p.order = appendOnce(p.order, lp)
	return lp, nil
}

func appendOnce(order []*loadedPackage, lp *loadedPackage) []*loadedPackage {
	for _, existing := range order {
		if existing == lp {
			return order
		}
	}
	return append(order, lp)
}

// fetchDependency resolves dep to a directory on disk: a local path is
// used as-is, a git source is cloned (idempotently) into the dependent
// package's .nbs-deps cache.
func (p *LoadedProject) fetchDependency(parentDir, name string, dep DependencySection) (string, error) {
	if dep.Path != "" {
		target := dep.Path
		if !filepath.IsAbs(target) {
			target = filepath.Join(parentDir, target)
		}
		if _, err := os.Stat(target); err != nil {
			return "", err
		}
		return target, nil
	}
	if dep.Git == "" {
		return "", fmt.Errorf("recipe: dependency %q has neither path nor git source", name)
	}

	dest := filepath.Join(parentDir, depsCacheDir, sanitizeDirName(name))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil // already cloned
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	msg.Info("fetching dependency %s (%s)", name, dep.Git)
	return fetchGit(dep.Git, dest)
}

func sanitizeDirName(name string) string {
	return strings.NewReplacer("/", "_", ":", "_").Replace(name)
}

// buildSettingsFromManifest folds a manifest's (configuration-merged)
// target section into a model.BuildSettings, expanding source/import/
// string-import globs against pkgDir. copyFiles entries are passed through
// unexpanded.
func buildSettingsFromManifest(m *Manifest, pkgDir, configuration string) (*model.BuildSettings, error) {
	section := m.mergedTarget(configuration)

	targetType, err := parseTargetType(section.Type)
	if err != nil {
		return nil, err
	}

	sources, err := expandGlobs(pkgDir, section.SourceFiles)
	if err != nil {
		return nil, err
	}
	sources, err = excludeGlobs(pkgDir, sources, section.ExcludedSourceFiles)
	if err != nil {
		return nil, err
	}
	importFiles, err := expandGlobs(pkgDir, section.ImportFiles)
	if err != nil {
		return nil, err
	}
	stringImportFiles, err := expandGlobs(pkgDir, section.StringImportFiles)
	if err != nil {
		return nil, err
	}

	targetName := section.TargetName
	if targetName == "" {
		targetName = defaultTargetName(m.Package.Name, targetType)
	}
	targetPath := section.TargetPath
	if targetPath == "" {
		targetPath = pkgDir
	} else if !filepath.IsAbs(targetPath) {
		targetPath = filepath.Join(pkgDir, targetPath)
	}

	settings := &model.BuildSettings{
		TargetType:           targetType,
		TargetPath:           targetPath,
		TargetName:           targetName,
		SourceFiles:          sources,
		ImportFiles:          importFiles,
		StringImportFiles:    stringImportFiles,
		Versions:             append([]string(nil), section.Versions...),
		DebugVersions:        append([]string(nil), section.DebugVersions...),
		Dflags:               append([]string(nil), section.Dflags...),
		Lflags:               append([]string(nil), section.Lflags...),
		Libs:                 append([]string(nil), section.Libs...),
		ImportPaths:          absolutizeAll(pkgDir, section.ImportPaths),
		StringImportPaths:    absolutizeAll(pkgDir, section.StringImportPaths),
		CopyFiles:            append([]string(nil), section.CopyFiles...),
		PreBuildCommands:     append([]string(nil), section.PreBuildCommands...),
		PostBuildCommands:    append([]string(nil), section.PostBuildCommands...),
		PreGenerateCommands:  append([]string(nil), section.PreGenerateCommands...),
		PostGenerateCommands: append([]string(nil), section.PostGenerateCommands...),
		MainSourceFile:       section.MainSourceFile,
		WorkingDirectory:     section.WorkingDirectory,
	}
	if len(settings.ImportPaths) == 0 {
		settings.ImportPaths = []string{pkgDir}
	}
	return settings, nil
}

func absolutizeAll(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

// defaultTargetName applies the conventional per-platform artifact naming
// dub-family tools use when a manifest doesn't set targetName explicitly.
func defaultTargetName(pkgName string, t model.TargetType) string {
	switch t {
	case model.TargetStaticLibrary:
		if runtime.GOOS == "windows" {
			return pkgName + ".lib"
		}
		return "lib" + pkgName + ".a"
	case model.TargetDynamicLibrary:
		switch runtime.GOOS {
		case "windows":
			return pkgName + ".dll"
		case "darwin":
			return "lib" + pkgName + ".dylib"
		default:
			return "lib" + pkgName + ".so"
		}
	case model.TargetExecutable:
		if runtime.GOOS == "windows" {
			return pkgName + ".exe"
		}
		return pkgName
	default:
		return pkgName
	}
}
