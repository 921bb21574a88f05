package recipe

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nativebuild/nbs/internal/model"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadResolvesLocalPathDependency(t *testing.T) {
	root := t.TempDir()

	libDir := filepath.Join(root, "libx")
	writeFile(t, filepath.Join(libDir, "Project.toml"), `
[package]
name = "libx"
version = "1.0.0"

[target]
type = "staticLibrary"
sourceFiles = ["source/libx.d"]
importPaths = ["source"]
`)
	writeFile(t, filepath.Join(libDir, "source", "libx.d"), "module libx;\n")

	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, "Project.toml"), `
[package]
name = "app"
version = "1.0.0"

[dependencies]
libx = { path = "../libx" }

[target]
type = "executable"
sourceFiles = ["source/app.d"]
importPaths = ["source"]
`)
	writeFile(t, filepath.Join(appDir, "source", "app.d"), "module app; void main() {}\n")

	proj, err := Load(filepath.Join(appDir, "Project.toml"))
	require.NoError(t, err)

	require.Equal(t, "app", proj.RootPackage().Name)

	pkgs := proj.Packages()
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	require.Equal(t, []string{"libx", "app"}, names)

	require.True(t, proj.Selected(proj.RootPackage(), "libx"))

	var libPkg *model.Package
	for _, p := range pkgs {
		if p.Name == "libx" {
			libPkg = p
		}
	}
	require.NotNil(t, libPkg)

	settings, err := libPkg.BuildSettingsFor("")
	require.NoError(t, err)
	require.Equal(t, model.TargetStaticLibrary, settings.TargetType)
	require.Len(t, settings.SourceFiles, 1)
	require.Contains(t, settings.SourceFiles[0], "libx.d")
}

func TestLoadFailsOnMissingRequiredDependency(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, "Project.toml"), `
[package]
name = "app"

[dependencies]
missing = { path = "../does-not-exist" }

[target]
type = "executable"
sourceFiles = ["source/app.d"]
`)

	_, err := Load(filepath.Join(appDir, "Project.toml"))
	require.Error(t, err)
}

func TestLoadSkipsMissingOptionalDependency(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, "Project.toml"), `
[package]
name = "app"

[dependencies]
missing = { path = "../does-not-exist", optional = true }

[target]
type = "executable"
sourceFiles = ["source/app.d"]
`)
	writeFile(t, filepath.Join(appDir, "source", "app.d"), "module app;\n")

	proj, err := Load(filepath.Join(appDir, "Project.toml"))
	require.NoError(t, err)
	require.Len(t, proj.Packages(), 1)
}

func TestDefaultTargetNameConventions(t *testing.T) {
	exe := defaultTargetName("app", model.TargetExecutable)
	if runtime.GOOS == "windows" {
		require.Equal(t, "app.exe", exe)
	} else {
		require.Equal(t, "app", exe)
	}
	require.Contains(t, defaultTargetName("libx", model.TargetStaticLibrary), "libx")
}
