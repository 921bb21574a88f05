package executor

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/model"
	"golang.org/x/sync/errgroup"
)

// linkerExtensions lists the pre-built artifact suffixes passed to the
// linker as-is rather than compiled (spec GLOSSARY "Linker file").
var linkerExtensions = map[string]bool{
	".o": true, ".obj": true, ".a": true, ".lib": true,
	".so": true, ".dylib": true, ".res": true,
}

func isLinkerFile(path string) bool {
	return linkerExtensions[strings.ToLower(filepath.Ext(path))]
}

// resolveBuildMode applies the non-DMD-compiler and static-library parts of
// the allAtOnce fallback rule (spec §4.F). The no-binary (syntax-only) case
// is applied by directBuild, the only path syntax-only builds take.
func resolveBuildMode(requested model.BuildMode, compilerID string, targetType model.TargetType) model.BuildMode {
	if compilerID != "dmd" || targetType == model.TargetStaticLibrary {
		return model.BuildModeAllAtOnce
	}
	return requested
}

// invokeCompile dispatches one compile+link cycle for settings (already
// pointed at its final output directory) according to mode.
func invokeCompile(ctx context.Context, driver compiler.Driver, settings *model.BuildSettings, platform model.Platform, mode model.BuildMode, cb model.CompileCallback) error {
	switch mode {
	case model.BuildModeSingleFile:
		return invokeSingleFile(ctx, driver, settings, platform, cb)
	case model.BuildModeAllAtOnce:
		return invokeAllAtOnce(ctx, driver, settings, platform, cb)
	default:
		return invokeSeparate(ctx, driver, settings, platform, cb)
	}
}

func invokeAllAtOnce(ctx context.Context, driver compiler.Driver, settings *model.BuildSettings, platform model.Platform, cb model.CompileCallback) error {
	cs := settings.Clone()
	if err := driver.PrepareBuildSettings(cs, compiler.CommandLine); err != nil {
		return err
	}
	if err := driver.SetTarget(cs, platform, ""); err != nil {
		return err
	}
	return driver.Invoke(ctx, cs, platform, cb)
}

func invokeSeparate(ctx context.Context, driver compiler.Driver, settings *model.BuildSettings, platform model.Platform, cb model.CompileCallback) error {
	objPath := filepath.Join(settings.TargetPath, settings.TargetName+compiler.ObjSuffix())

	compileSettings := settings.Clone()
	if err := driver.PrepareBuildSettings(compileSettings, compiler.CommandLineSeparate); err != nil {
		return err
	}
	if err := driver.SetTarget(compileSettings, platform, objPath); err != nil {
		return err
	}
	if err := driver.Invoke(ctx, compileSettings, platform, cb); err != nil {
		return err
	}

	linkSettings := settings.Clone()
	if err := driver.SetTarget(linkSettings, platform, ""); err != nil {
		return err
	}
	return driver.InvokeLinker(ctx, linkSettings, platform, []string{objPath}, cb)
}

func invokeSingleFile(ctx context.Context, driver compiler.Driver, settings *model.BuildSettings, platform model.Platform, cb model.CompileCallback) error {
	var compileSources, linkerSources []string
	for _, src := range settings.SourceFiles {
		if isLinkerFile(src) {
			linkerSources = append(linkerSources, src)
		} else {
			compileSources = append(compileSources, src)
		}
	}

	objPaths := make([]string, len(compileSources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, src := range compileSources {
		i, src := i, src
		g.Go(func() error {
			abs, err := filepath.Abs(src)
			if err != nil {
				return err
			}
			objPath := filepath.Join(settings.TargetPath, compiler.SingleFileObjectName(abs))
			objPaths[i] = objPath

			cs := settings.Clone()
			cs.SourceFiles = []string{src}
			if err := driver.PrepareBuildSettings(cs, compiler.CommandLineSeparateSourceFiles); err != nil {
				return err
			}
			if err := driver.SetTarget(cs, platform, objPath); err != nil {
				return err
			}
			return driver.Invoke(gctx, cs, platform, cb)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	linkSettings := settings.Clone()
	linkSettings.SourceFiles = nil
	if err := driver.SetTarget(linkSettings, platform, ""); err != nil {
		return err
	}
	return driver.InvokeLinker(ctx, linkSettings, platform, append(objPaths, linkerSources...), cb)
}
