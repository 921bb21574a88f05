package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGitRefSplitsBranchAndRevision(t *testing.T) {
	ref := parseGitRef("someone/something@feature-branch#12345abc")
	require.Equal(t, "someone/something.git", ref.cleanURL)
	require.Equal(t, "feature-branch", ref.branch)
	require.Equal(t, "12345abc", ref.commitOrTag)
}

func TestParseGitRefDefaultsToNoBranchNoRevision(t *testing.T) {
	ref := parseGitRef("someone/something")
	require.Equal(t, "someone/something.git", ref.cleanURL)
	require.Empty(t, ref.branch)
	require.Empty(t, ref.commitOrTag)
}

func TestParseGitRefKeepsExistingDotGitSuffix(t *testing.T) {
	ref := parseGitRef("someone/something.git#0.1.0")
	require.Equal(t, "someone/something.git", ref.cleanURL)
	require.Equal(t, "0.1.0", ref.commitOrTag)
}

func TestFetchGitRejectsEmptySource(t *testing.T) {
	_, err := fetchGit("", t.TempDir())
	require.ErrorIs(t, err, errEmptyDependency)
}
