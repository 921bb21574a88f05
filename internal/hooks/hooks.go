// Package hooks builds the environment user pre/post build/generate
// commands run under (spec §6) and runs them, honoring the
// DUB_PACKAGES_USED recursion guard described in spec §9: a hook may
// re-invoke this same tool on the same package, and without the guard that
// loops forever.
package hooks

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/nativebuild/nbs/internal/model"
)

func boolStr(b bool) string {
	if b {
		return "TRUE"
	}
	return ""
}

// shellEscape quotes s for inclusion in a space-joined argument list, the
// way DUB_RUN_ARGS is documented to be encoded (spec §6).
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func joinArgs(args []string) string {
	escaped := make([]string, len(args))
	for i, a := range args {
		escaped[i] = shellEscape(a)
	}
	return strings.Join(escaped, " ")
}

// UsedPackages parses a DUB_PACKAGES_USED value (comma-separated) into its
// package-name components.
func UsedPackages(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// WouldRecurse reports whether pkgName already appears in the recursion
// chain read from the parent process's DUB_PACKAGES_USED, meaning a hook
// invoked for pkgName must not run again.
func WouldRecurse(chain []string, pkgName string) bool {
	return slices.Contains(chain, pkgName)
}

// Build constructs the full hook environment (process environ plus the
// DUB_* / DFLAGS / ... table from spec §6) for running a pre/post
// build/generate command for pkg, part of target, within the build
// described by gs.
func Build(pkg *model.Package, target *model.TargetInfo, rootPkg *model.Package, gs model.GeneratorSettings, usedChain []string) []string {
	s := target.BuildSettings

	dcBase := filepath.Base(gs.Platform.CompilerBin)
	dcBase = strings.TrimSuffix(dcBase, filepath.Ext(dcBase))

	env := os.Environ()
	env = append(env,
		"DFLAGS="+strings.Join(s.Dflags, " "),
		"LFLAGS="+strings.Join(s.Lflags, " "),
		"VERSIONS="+strings.Join(s.Versions, " "),
		"LIBS="+strings.Join(s.Libs, " "),
		"IMPORT_PATHS="+strings.Join(prefixEach("-I", s.ImportPaths), " "),
		"STRING_IMPORT_PATHS="+strings.Join(prefixEach("-J", s.StringImportPaths), " "),
		"DC="+gs.Platform.CompilerBin,
		"DC_BASE="+dcBase,
		"D_FRONTEND_VER="+gs.Platform.FrontendVer,
		"DUB_PLATFORM="+strings.Join(gs.Platform.PlatformTags, " "),
		"DUB_ARCH="+strings.Join(gs.Platform.ArchTags, " "),
		"DUB_TARGET_TYPE="+s.TargetType.String(),
		"DUB_TARGET_PATH="+s.TargetPath,
		"DUB_TARGET_NAME="+s.TargetName,
		"DUB_WORKING_DIRECTORY="+s.WorkingDirectory,
		"DUB_MAIN_SOURCE_FILE="+s.MainSourceFile,
		"DUB_CONFIG="+gs.Config,
		"DUB_BUILD_TYPE="+gs.BuildType,
		"DUB_BUILD_MODE="+buildModeString(gs.BuildMode),
		"DUB_PACKAGE="+pkg.Name,
		"DUB_PACKAGE_DIR="+pkg.Path,
		"DUB_ROOT_PACKAGE="+rootPkg.Name,
		"DUB_ROOT_PACKAGE_DIR="+rootPkg.Path,
		"DUB_COMBINED="+boolStr(gs.Combined),
		"DUB_RUN="+boolStr(gs.Run),
		"DUB_FORCE="+boolStr(gs.Force),
		"DUB_DIRECT="+boolStr(gs.Direct),
		"DUB_RDMD="+boolStr(gs.RDMD),
		"DUB_TEMP_BUILD="+boolStr(gs.TempBuild),
		"DUB_PARALLEL_BUILD="+boolStr(gs.ParallelBuild),
		"DUB_RUN_ARGS="+joinArgs(gs.RunArgs),
		"DUB_PACKAGES_USED="+strings.Join(append(slices.Clone(usedChain), pkg.Name), ","),
	)
	return env
}

func prefixEach(prefix string, vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = prefix + v
	}
	return out
}

func buildModeString(m model.BuildMode) string {
	switch m {
	case model.BuildModeAllAtOnce:
		return "allAtOnce"
	case model.BuildModeSingleFile:
		return "singleFile"
	default:
		return "separate"
	}
}

// Run executes command in dir with env, capturing nothing (hook output goes
// straight to the build log, matching how the teacher shells out to git and
// compiler subprocesses). Returns *model.BuildCommandFailed on non-zero
// exit.
func Run(command, dir string, env []string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("/bin/sh", "-c", command)
	}
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	exitCode := 1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return &model.BuildCommandFailed{Command: command, ExitCode: exitCode}
}

// RunAll runs each command in order, short-circuiting on the first failure.
func RunAll(commands []string, dir string, env []string) error {
	for _, c := range commands {
		if err := Run(c, dir, env); err != nil {
			return err
		}
	}
	return nil
}
