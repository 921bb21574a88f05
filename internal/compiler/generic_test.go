package compiler

import (
	"testing"

	"github.com/nativebuild/nbs/internal/model"
	"github.com/stretchr/testify/require"
)

func TestExtractBuildOptionsFoldsKnownDflags(t *testing.T) {
	d := NewGenericDriver()
	settings := &model.BuildSettings{
		Dflags: []string{"-release", "-O3", "-unittest", "-cov", "-g"},
	}
	opts := d.ExtractBuildOptions(settings)

	require.True(t, opts.Has(model.OptReleaseMode))
	require.True(t, opts.Has(model.OptUnittests))
	require.True(t, opts.Has(model.OptCoverage))
	require.True(t, opts.Has(model.OptDebugInfo))
	require.Equal(t, []string{"-O3"}, settings.Dflags)
}

func TestCompileArgsIncludesVersionsAndImportPaths(t *testing.T) {
	settings := &model.BuildSettings{
		TargetPath:  "build",
		TargetName:  "app",
		SourceFiles: []string{"source/app.d"},
		Versions:    []string{"Have_libx"},
		ImportPaths: []string{"source"},
	}
	args := compileArgs(settings, knownCompilers["dmd"])
	require.Contains(t, args, "-version=Have_libx")
	require.Contains(t, args, "-Isource")
	require.Contains(t, args, "source/app.d")
	require.Contains(t, args, "-ofbuild/app")
}

func TestSingleFileObjectNameStripsDriveAndSlashes(t *testing.T) {
	name := SingleFileObjectName("/home/user/project/source/app.d")
	require.Equal(t, "home.user.project.source.app.d"+ObjSuffix(), name)
	require.Equal(t, "Users.me.app.d"+ObjSuffix(), SingleFileObjectName("C:/Users/me/app.d"))
}

func TestPrepareBuildSettingsAddsCompileOnlyFlagOnce(t *testing.T) {
	d := NewGenericDriver()
	settings := &model.BuildSettings{}
	require.NoError(t, d.PrepareBuildSettings(settings, CommandLineSeparate))
	require.NoError(t, d.PrepareBuildSettings(settings, CommandLineSeparate))
	require.Equal(t, []string{"-c"}, settings.Dflags)
}

func TestSetTargetOverridesObjPath(t *testing.T) {
	d := NewGenericDriver()
	settings := &model.BuildSettings{TargetPath: "build", TargetName: "app"}
	require.NoError(t, d.SetTarget(settings, model.Platform{}, "build/app.o"))
	require.Equal(t, "build", settings.TargetPath)
	require.Equal(t, "app.o", settings.TargetName)
}
