package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nativebuild/nbs/internal/model"
	"github.com/stretchr/testify/require"
)

func TestResolveBuildModeStaticLibraryForcesAllAtOnce(t *testing.T) {
	got := resolveBuildMode(model.BuildModeSeparate, "dmd", model.TargetStaticLibrary)
	require.Equal(t, model.BuildModeAllAtOnce, got)
}

func TestResolveBuildModeNonDMDForcesAllAtOnce(t *testing.T) {
	got := resolveBuildMode(model.BuildModeSeparate, "ldc2", model.TargetExecutable)
	require.Equal(t, model.BuildModeAllAtOnce, got)
}

func TestResolveBuildModeHonorsRequestOnDMDExecutable(t *testing.T) {
	got := resolveBuildMode(model.BuildModeSingleFile, "dmd", model.TargetExecutable)
	require.Equal(t, model.BuildModeSingleFile, got)
}

func TestIsLinkerFile(t *testing.T) {
	require.True(t, isLinkerFile("foo.o"))
	require.True(t, isLinkerFile("foo.OBJ"))
	require.True(t, isLinkerFile("libbar.a"))
	require.False(t, isLinkerFile("main.d"))
}

func TestHardlinkFileReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "out", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	require.NoError(t, hardlinkFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	require.NoError(t, os.WriteFile(src, []byte("world"), 0o644))
	require.NoError(t, hardlinkFile(src, dst))
}

func TestDirWritable(t *testing.T) {
	dir := t.TempDir()
	require.True(t, dirWritable(dir))
}

func TestRelativizePaths(t *testing.T) {
	cwd := "/home/user/project"
	settings := &model.BuildSettings{
		SourceFiles: []string{"/home/user/project/source/app.d"},
		ImportPaths: []string{"/home/user/project/source"},
	}
	relativizePaths(settings, cwd)
	require.Equal(t, []string{"source/app.d"}, settings.SourceFiles)
	require.Equal(t, []string{"source"}, settings.ImportPaths)
}
