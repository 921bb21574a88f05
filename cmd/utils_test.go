package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumValueSetRejectsUnknown(t *testing.T) {
	e := NewEnumValue("build", map[string]string{"build": "", "cmake": ""})
	require.Error(t, e.Set("xcode"))
	require.NoError(t, e.Set("cmake"))
	require.Equal(t, "cmake", e.Value())
}

func TestBuildTypeValueDefaultsToDebug(t *testing.T) {
	b := NewBuildTypeValue("debug")
	require.Equal(t, "debug", b.Value())
	require.NoError(t, b.Set("release"))
	require.Equal(t, "release", b.Value())
}

func TestManifestPathInPrefersExistingFile(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "Project.toml")
	require.NoError(t, os.WriteFile(manifest, []byte("[package]\nname=\"x\"\n"), 0o644))

	got, err := manifestPathIn(manifest)
	require.NoError(t, err)
	require.Equal(t, manifest, got)
}

func TestManifestPathInAppendsProjectTomlForDirectory(t *testing.T) {
	dir := t.TempDir()
	got, err := manifestPathIn(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Project.toml"), got)
}
