package generate

import (
	"errors"
	"testing"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/model"
	"github.com/stretchr/testify/require"
)

func TestNewBuildBackendRequiresDriver(t *testing.T) {
	_, err := New("build", nil)
	require.Error(t, err)
}

func TestNewBuildBackendSucceeds(t *testing.T) {
	g, err := New("build", compiler.NewGenericDriver())
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestNewOutOfScopeBackendsReturnSentinelOnGenerate(t *testing.T) {
	for _, name := range []string{"visuald", "sublimetext", "cmake"} {
		g, err := New(name, compiler.NewGenericDriver())
		require.NoError(t, err)
		err = g.Generate(nil, nil, model.GeneratorSettings{})
		require.True(t, errors.Is(err, ErrGeneratorOutOfScope), "backend %q", name)
	}
}

func TestNewUnknownBackendErrors(t *testing.T) {
	_, err := New("xcode", compiler.NewGenericDriver())
	require.Error(t, err)
}
