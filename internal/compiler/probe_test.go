package compiler

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompilerIDFromBinaryRecognizesKnownNames(t *testing.T) {
	require.Equal(t, "ldc2", compilerIDFromBinary("ldc2"))
	require.Equal(t, "dmd", compilerIDFromBinary("/usr/bin/mystery-dc"))
}

func TestHostPlatformTagsIncludesPosixOnNonWindows(t *testing.T) {
	tags := hostPlatformTags()
	require.NotEmpty(t, tags)
	if runtime.GOOS != "windows" {
		require.Contains(t, tags, "posix")
	}
}

func TestFindCompilerFailsWhenNothingOnPath(t *testing.T) {
	t.Setenv("DC", "")
	t.Setenv("PATH", "")
	_, err := FindCompiler("")
	require.Error(t, err)
}
