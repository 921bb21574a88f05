package compiler

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	"github.com/nativebuild/nbs/internal/model"
)

// GenericDriver is the one concrete Driver the core ships: a table-driven
// translation of BuildSettings into argv for whichever compiler id the
// platform resolved (spec §4.A: "Selection of the concrete driver is by
// compiler id string, resolved outside the core").
type GenericDriver struct{}

func NewGenericDriver() *GenericDriver { return &GenericDriver{} }

func (d *GenericDriver) PrepareBuildSettings(settings *model.BuildSettings, mode InvocationMode) error {
	switch mode {
	case CommandLineSeparate, CommandLineSeparateSourceFiles:
		// compileOnlyFlag ("-c") is identical across every known
		// compiler family, so no platform/compiler id is needed here.
		if !containsStr(settings.Dflags, "-c") {
			settings.Dflags = append(settings.Dflags, "-c")
		}
	case CommandLine:
		// nothing to normalize: a single invocation compiles+links.
	}
	return nil
}

func (d *GenericDriver) SetTarget(settings *model.BuildSettings, platform model.Platform, objPath string) error {
	if objPath == "" {
		return nil
	}
	settings.TargetPath = filepath.Dir(objPath)
	settings.TargetName = filepath.Base(objPath)
	return nil
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func (d *GenericDriver) Invoke(ctx context.Context, settings *model.BuildSettings, platform model.Platform, cb model.CompileCallback) error {
	tmpl := templateFor(platform.CompilerID)
	args := compileArgs(settings, tmpl)
	return d.run(ctx, platform, args, settings.TargetName, settings.MainSourceFile, cb, false)
}

func (d *GenericDriver) InvokeLinker(ctx context.Context, settings *model.BuildSettings, platform model.Platform, objs []string, cb model.CompileCallback) error {
	tmpl := templateFor(platform.CompilerID)
	args := linkArgs(settings, tmpl, objs)
	return d.run(ctx, platform, args, settings.TargetName, "", cb, true)
}

func (d *GenericDriver) run(ctx context.Context, platform model.Platform, args []string, target, what string, cb model.CompileCallback, isLink bool) error {
	cmd := exec.CommandContext(ctx, platform.CompilerBin, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil && exitCode == 0 {
		exitCode = 1
	}

	if cb != nil {
		cb(exitCode, buf.String())
		return nil
	}
	if err == nil {
		return nil
	}
	if isLink {
		return &model.LinkFailed{Target: target, ExitCode: exitCode, Output: buf.String()}
	}
	return &model.CompileFailed{Target: target, Source: what, ExitCode: exitCode, Output: buf.String()}
}

func (d *GenericDriver) ExtractBuildOptions(settings *model.BuildSettings) model.BuildOption {
	var opts model.BuildOption
	kept := settings.Dflags[:0]
	for _, f := range settings.Dflags {
		switch f {
		case "-fPIC", "-relocation-model=pic":
			opts |= model.OptPIC
		case "-unittest":
			opts |= model.OptUnittests
		case "-cov":
			opts |= model.OptCoverage
		case "-g":
			opts |= model.OptDebugInfo
		case "-debug":
			opts |= model.OptDebugMode
		case "-release":
			opts |= model.OptReleaseMode
		case "-inline":
			opts |= model.OptInline
		case "-lowmem":
			opts |= model.OptLowmem
		case "-w":
			opts |= model.OptWarningsAsErrors
		case "-wi":
			opts |= model.OptWarnings
		default:
			kept = append(kept, f)
			continue
		}
	}
	settings.Dflags = kept
	settings.Options |= opts
	return opts
}

func compileArgs(settings *model.BuildSettings, tmpl flagTemplate) []string {
	var args []string
	args = append(args, settings.Dflags...)

	for _, v := range settings.Versions {
		args = append(args, tmpl.versionFlag+v)
	}
	for _, v := range settings.DebugVersions {
		args = append(args, tmpl.debugVersionFlag+v)
	}
	for _, p := range settings.ImportPaths {
		args = append(args, tmpl.importPathFlag+p)
	}
	for _, p := range settings.StringImportPaths {
		args = append(args, tmpl.stringImportFlag+p)
	}
	if settings.Options.Has(model.OptPIC) {
		args = append(args, tmpl.picFlag)
	}
	if settings.Options.Has(model.OptSyntaxOnly) {
		args = append(args, tmpl.syntaxOnlyFlag)
	}

	args = append(args, settings.SourceFiles...)

	out := filepath.Join(settings.TargetPath, settings.TargetName)
	if tmpl.outputIsSeparated {
		args = append(args, tmpl.outputExeFlag, out)
	} else {
		args = append(args, tmpl.outputExeFlag+out)
	}

	return args
}

func linkArgs(settings *model.BuildSettings, tmpl flagTemplate, objs []string) []string {
	var args []string
	args = append(args, settings.Lflags...)
	args = append(args, objs...)
	for _, lib := range settings.Libs {
		args = append(args, tmpl.libFlag+lib)
	}

	out := filepath.Join(settings.TargetPath, settings.TargetName)
	if tmpl.outputIsSeparated {
		args = append(args, tmpl.outputExeFlag, out)
	} else {
		args = append(args, tmpl.outputExeFlag+out)
	}

	return args
}

// singleFileObjectName derives a filename-safe, collision-resistant object
// name for a source file compiled in isolation (spec §4.F: "normalize the
// absolute path of the source, strip drive letter, append objSuffix,
// replace path separators with '.'").
func singleFileObjectName(absSource string) string {
	p := filepath.ToSlash(absSource)
	if len(p) >= 2 && p[1] == ':' { // strip "C:" drive letter
		p = p[2:]
	}
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	out := ""
	for _, r := range p {
		if r == '/' {
			out += "."
		} else {
			out += string(r)
		}
	}
	return out + ObjSuffix()
}

// SingleFileObjectName is the exported form used by the executor.
func SingleFileObjectName(absSource string) string { return singleFileObjectName(absSource) }
