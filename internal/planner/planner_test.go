package planner

import (
	"testing"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeProject is a minimal in-memory model.Project for exercising the
// planner without a recipe frontend.
type fakeProject struct {
	root     *model.Package
	packages []*model.Package
}

func (p *fakeProject) RootPackage() *model.Package { return p.root }
func (p *fakeProject) Packages() []*model.Package  { return p.packages }
func (p *fakeProject) Selected(pkg *model.Package, depName string) bool { return true }

func mkPackage(name string, deps map[string]model.DependencySpec, settings *model.BuildSettings) *model.Package {
	return &model.Package{
		Name:         name,
		Path:         "/src/" + name,
		Dependencies: deps,
		BuildSettingsFor: func(configuration string) (*model.BuildSettings, error) {
			return settings.Clone(), nil
		},
	}
}

func defaultGS() model.GeneratorSettings {
	return model.GeneratorSettings{
		Config:    "default",
		BuildType: "debug",
		Platform: model.Platform{
			PlatformTags: []string{"linux"},
			ArchTags:     []string{"x86_64"},
			CompilerID:   "dmd",
			CompilerBin:  "dmd",
		},
	}
}

func TestPlanLibraryDependency(t *testing.T) {
	libx := mkPackage("libx", nil, &model.BuildSettings{
		TargetType: model.TargetLibrary,
		TargetPath: "/src/libx", TargetName: "liblibx.a",
		SourceFiles: []string{"/src/libx/source/libx.d"},
		ImportPaths: []string{"/src/libx/source"},
	})
	app := mkPackage("app", map[string]model.DependencySpec{"libx": {}}, &model.BuildSettings{
		TargetType:     model.TargetExecutable,
		TargetPath:     "/src/app", TargetName: "app",
		SourceFiles:    []string{"/src/app/source/app.d"},
		MainSourceFile: "/src/app/source/app.d",
	})

	proj := &fakeProject{root: app, packages: []*model.Package{app, libx}}
	targets, mains, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
	require.NoError(t, err)

	require.Contains(t, targets, "app")
	require.Contains(t, targets, "libx")
	require.Equal(t, model.TargetStaticLibrary, targets["libx"].BuildSettings.TargetType)

	appTarget := targets["app"]
	require.Equal(t, model.TargetExecutable, appTarget.BuildSettings.TargetType)
	require.Equal(t, []string{"libx"}, appTarget.LinkDependencies)
	require.Contains(t, appTarget.BuildSettings.Versions, "Have_libx")
	require.Equal(t, []string{"/src/libx/liblibx.a"}, targets["libx"].BuildSettings.SourceFiles)
	require.Contains(t, appTarget.BuildSettings.ImportPaths, "/src/libx/source")
	require.Equal(t, "/src/app/source/app.d", mains["app"])
}

func TestPlanSourceLibraryIsAbsorbed(t *testing.T) {
	helper := mkPackage("helper", nil, &model.BuildSettings{
		TargetType:  model.TargetSourceLibrary,
		SourceFiles: []string{"/src/helper/source/helper.d"},
	})
	app := mkPackage("app", map[string]model.DependencySpec{"helper": {}}, &model.BuildSettings{
		TargetType:     model.TargetExecutable,
		TargetPath:     "/src/app", TargetName: "app",
		SourceFiles:    []string{"/src/app/source/app.d"},
		MainSourceFile: "/src/app/source/app.d",
	})

	proj := &fakeProject{root: app, packages: []*model.Package{app, helper}}
	targets, _, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
	require.NoError(t, err)

	require.NotContains(t, targets, "helper")
	appTarget := targets["app"]
	require.Contains(t, appTarget.BuildSettings.SourceFiles, "/src/helper/source/helper.d")

	names := make([]string, 0, len(appTarget.Packages))
	for _, p := range appTarget.Packages {
		names = append(names, p.Name)
	}
	require.ElementsMatch(t, []string{"app", "helper"}, names)
}

func TestPlanDynamicLibraryDowngrade(t *testing.T) {
	plugin := mkPackage("plugin", nil, &model.BuildSettings{
		TargetType:  model.TargetDynamicLibrary,
		TargetPath:  "/src/plugin", TargetName: "libplugin.so",
		SourceFiles: []string{"/src/plugin/source/plugin.d"},
	})
	app := mkPackage("app", map[string]model.DependencySpec{"plugin": {}}, &model.BuildSettings{
		TargetType:     model.TargetExecutable,
		TargetPath:     "/src/app", TargetName: "app",
		SourceFiles:    []string{"/src/app/source/app.d"},
		MainSourceFile: "/src/app/source/app.d",
	})

	proj := &fakeProject{root: app, packages: []*model.Package{app, plugin}}
	targets, _, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
	require.NoError(t, err)

	require.Contains(t, targets, "plugin")
	require.Equal(t, model.TargetStaticLibrary, targets["plugin"].BuildSettings.TargetType)
	require.False(t, targets["plugin"].BuildSettings.Options.Has(model.OptPIC))
}

func TestPlanRootNeverStaysLibraryOrAutodetect(t *testing.T) {
	app := mkPackage("app", nil, &model.BuildSettings{
		TargetType:     model.TargetAutodetect,
		TargetPath:     "/src/app", TargetName: "app",
		SourceFiles:    []string{"/src/app/source/app.d"},
		MainSourceFile: "/src/app/source/app.d",
	})
	proj := &fakeProject{root: app, packages: []*model.Package{app}}
	targets, _, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
	require.NoError(t, err)

	require.Equal(t, model.TargetStaticLibrary, targets["app"].BuildSettings.TargetType)
}

func TestPlanIsDeterministic(t *testing.T) {
	build := func() map[string]*model.TargetInfo {
		libx := mkPackage("libx", nil, &model.BuildSettings{
			TargetType: model.TargetLibrary,
			TargetPath: "/src/libx", TargetName: "liblibx.a",
			SourceFiles: []string{"/src/libx/source/libx.d"},
		})
		liby := mkPackage("liby", nil, &model.BuildSettings{
			TargetType: model.TargetLibrary,
			TargetPath: "/src/liby", TargetName: "libliby.a",
			SourceFiles: []string{"/src/liby/source/liby.d"},
		})
		app := mkPackage("app", map[string]model.DependencySpec{"libx": {}, "liby": {}}, &model.BuildSettings{
			TargetType:     model.TargetExecutable,
			TargetPath:     "/src/app", TargetName: "app",
			SourceFiles:    []string{"/src/app/source/app.d"},
			MainSourceFile: "/src/app/source/app.d",
		})
		proj := &fakeProject{root: app, packages: []*model.Package{app, libx, liby}}
		targets, _, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
		require.NoError(t, err)
		return targets
	}

	a := build()
	b := build()
	require.Equal(t, a["app"].LinkDependencies, b["app"].LinkDependencies)
	require.Equal(t, a["app"].Dependencies, b["app"].Dependencies)
	require.Equal(t, []string{"libx", "liby"}, a["app"].LinkDependencies)
}

// TestPlanLinearChainPropagatesTransitiveLinkDependencies covers a
// dependency chain deeper than one level (app -> libA -> libD -> libE, all
// static libraries): every ancestor's LinkDependencies must contain every
// library below it, and the upward BuildSettings fold (ImportPaths here)
// must reach all the way up to app, deterministically across repeated runs.
func TestPlanLinearChainPropagatesTransitiveLinkDependencies(t *testing.T) {
	build := func() map[string]*model.TargetInfo {
		libE := mkPackage("libE", nil, &model.BuildSettings{
			TargetType: model.TargetLibrary,
			TargetPath: "/src/libE", TargetName: "liblibE.a",
			SourceFiles: []string{"/src/libE/source/libE.d"},
			ImportPaths: []string{"/src/libE/source"},
		})
		libD := mkPackage("libD", map[string]model.DependencySpec{"libE": {}}, &model.BuildSettings{
			TargetType: model.TargetLibrary,
			TargetPath: "/src/libD", TargetName: "liblibD.a",
			SourceFiles: []string{"/src/libD/source/libD.d"},
			ImportPaths: []string{"/src/libD/source"},
		})
		libA := mkPackage("libA", map[string]model.DependencySpec{"libD": {}}, &model.BuildSettings{
			TargetType: model.TargetLibrary,
			TargetPath: "/src/libA", TargetName: "liblibA.a",
			SourceFiles: []string{"/src/libA/source/libA.d"},
			ImportPaths: []string{"/src/libA/source"},
		})
		app := mkPackage("app", map[string]model.DependencySpec{"libA": {}}, &model.BuildSettings{
			TargetType:     model.TargetExecutable,
			TargetPath:     "/src/app", TargetName: "app",
			SourceFiles:    []string{"/src/app/source/app.d"},
			MainSourceFile: "/src/app/source/app.d",
		})
		proj := &fakeProject{root: app, packages: []*model.Package{app, libA, libD, libE}}
		targets, _, err := Plan(proj, defaultGS(), compiler.NewGenericDriver())
		require.NoError(t, err)
		return targets
	}

	a := build()
	b := build()

	require.ElementsMatch(t, []string{"libA", "libD", "libE"}, a["app"].LinkDependencies)
	require.ElementsMatch(t, []string{"libD", "libE"}, a["libA"].LinkDependencies)
	require.ElementsMatch(t, []string{"libE"}, a["libD"].LinkDependencies)

	require.Contains(t, a["app"].BuildSettings.ImportPaths, "/src/libE/source")
	require.Contains(t, a["app"].BuildSettings.ImportPaths, "/src/libD/source")
	require.Contains(t, a["app"].BuildSettings.ImportPaths, "/src/libA/source")

	require.Equal(t, a["app"].LinkDependencies, b["app"].LinkDependencies)
	require.Equal(t, a["app"].BuildSettings.ImportPaths, b["app"].BuildSettings.ImportPaths)
}
