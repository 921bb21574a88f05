package watchloop

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCodeOfNil(t *testing.T) {
	require.Equal(t, 0, exitCodeOf(nil))
}

func TestExitCodeOfNonExitError(t *testing.T) {
	require.Equal(t, 1, exitCodeOf(exec.ErrNotFound))
}
