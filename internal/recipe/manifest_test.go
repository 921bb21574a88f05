package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseManifestBasicSections(t *testing.T) {
	src := `
[package]
name = "app"
version = "1.0.0"

[dependencies]
libx = { path = "../libx" }

[target]
type = "executable"
sourceFiles = ["source/app.d"]
importPaths = ["source"]
`
	m, err := ParseManifest(strings.NewReader(src), NewConfigEnv(""))
	require.NoError(t, err)
	require.Equal(t, "app", m.Package.Name)
	require.Equal(t, "1.0.0", m.Package.Version)
	require.Equal(t, "../libx", m.Dependencies["libx"].Path)
	require.Equal(t, "executable", m.Target.Type)
	require.Equal(t, []string{"source/app.d"}, m.Target.SourceFiles)
}

func TestParseManifestInterpolatesExpressions(t *testing.T) {
	src := `
[package]
name = "{{ 'app-' + target_os }}"
`
	m, err := ParseManifest(strings.NewReader(src), NewConfigEnv(""))
	require.NoError(t, err)
	require.Contains(t, m.Package.Name, "app-")
}

func TestParseManifestConditionalTargetSectionMerges(t *testing.T) {
	src := `
[package]
name = "app"

[target]
sourceFiles = ["source/app.d"]

[target."target_os == 'nonexistentos'"]
sourceFiles = ["source/never.d"]

[target."1 == 1"]
sourceFiles = ["source/always.d"]
`
	m, err := ParseManifest(strings.NewReader(src), NewConfigEnv(""))
	require.NoError(t, err)
	require.Contains(t, m.Target.SourceFiles, "source/app.d")
	require.Contains(t, m.Target.SourceFiles, "source/always.d")
	require.NotContains(t, m.Target.SourceFiles, "source/never.d")
}

func TestMergedTargetAppliesConfigurationOverride(t *testing.T) {
	src := `
[package]
name = "app"

[target]
sourceFiles = ["source/app.d"]

[configurations.unittest]
versions = ["UnitTest"]
`
	m, err := ParseManifest(strings.NewReader(src), NewConfigEnv(""))
	require.NoError(t, err)

	merged := m.mergedTarget("unittest")
	require.Contains(t, merged.Versions, "UnitTest")
	require.Contains(t, merged.SourceFiles, "source/app.d")

	plain := m.mergedTarget("")
	require.Empty(t, plain.Versions)
}
