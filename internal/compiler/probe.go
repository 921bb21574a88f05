package compiler

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/nativebuild/nbs/internal/model"
)

// commonCompilers lists the D compiler binaries to probe for, most
// feature-complete first (teacher: cc.go's commonCCompilers/commonCxxCompilers).
var commonCompilers = []string{"dmd", "ldc2", "gdc"}

// FindCompiler resolves a compiler id to a concrete model.Platform by
// honoring $DC first (teacher's $CC/$CXX precedence), then probing PATH for
// each entry of commonCompilers (teacher: cc.go's findCompiler).
func FindCompiler(preferredID string) (model.Platform, error) {
	platform := model.Platform{
		PlatformTags: hostPlatformTags(),
		ArchTags:     []string{runtime.GOARCH},
	}

	if dc := os.Getenv("DC"); dc != "" {
		if path, err := exec.LookPath(dc); err == nil {
			platform.CompilerID = compilerIDFromBinary(dc)
			platform.CompilerBin = path
			return platform, nil
		}
	}

	ids := commonCompilers
	if preferredID != "" {
		ids = append([]string{preferredID}, ids...)
	}
	for _, id := range ids {
		if path, err := exec.LookPath(id); err == nil {
			platform.CompilerID = id
			platform.CompilerBin = path
			return platform, nil
		}
	}

	return platform, &model.IOError{Path: "PATH", Op: "find D compiler", Err: exec.ErrNotFound}
}

func compilerIDFromBinary(bin string) string {
	for _, id := range commonCompilers {
		if id == bin {
			return id
		}
	}
	return "dmd" // unrecognized binary: assume DMD-compatible command line
}

func hostPlatformTags() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"windows"}
	case "darwin":
		return []string{"osx", "posix"}
	default:
		return []string{runtime.GOOS, "posix"}
	}
}
