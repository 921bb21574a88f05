package recipe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/nativebuild/nbs/internal/msg"
)

// depShortcuts maps a short dependency-string prefix to the git host it
// expands to (teacher: dep.go's depShortcuts).
var depShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const gitPrefix = "git:"

var errEmptyDependency = errors.New("recipe: empty dependency source")

// fetchGit resolves a dependency's git source (an explicit "git:" URL or a
// gh:/gl:/bb:/sr:/cb: shortcut) into toWhere, returning the directory it
// was cloned into.
func fetchGit(source, toWhere string) (string, error) {
	if source == "" {
		return "", errEmptyDependency
	}
	if strings.HasPrefix(source, gitPrefix) {
		return cloneGitRepo(source[len(gitPrefix):], toWhere)
	}
	for prefix, host := range depShortcuts {
		if strings.HasPrefix(source, prefix) {
			return cloneGitRepo(host+source[len(prefix):], toWhere)
		}
	}
	return cloneGitRepo(source, toWhere)
}

// gitRef is a parsed "owner/repo@branch#commitOrTag" dependency string
// (teacher: dep.go's gitURL/parseGitURL).
type gitRef struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

func parseGitRef(raw string) gitRef {
	var ref gitRef
	parts := strings.SplitN(raw, "#", 2)
	base := parts[0]
	if len(parts) == 2 {
		ref.commitOrTag = parts[1]
	}

	parts = strings.SplitN(base, "@", 2)
	ref.cleanURL = parts[0]
	if len(parts) == 2 {
		ref.branch = parts[1]
	}

	if !strings.HasSuffix(ref.cleanURL, ".git") {
		ref.cleanURL += ".git"
	}
	return ref
}

// cloneGitRepo shallow-clones ref into toWhere, checking out a specific
// branch/commit/tag when one was given (teacher: dep.go's cloneGitRepo).
func cloneGitRepo(rawURL, toWhere string) (string, error) {
	ref := parseGitRef(rawURL)

	progress := msg.NewProgressBar(0, 2, os.Stdout)
	opts := &git.CloneOptions{
		URL:               ref.cleanURL,
		Progress:          progress,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}
	if ref.commitOrTag == "" {
		opts.Depth = 1
	}
	if ref.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref.branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainClone(toWhere, opts)
	progress.Finish()
	if err != nil {
		return toWhere, fmt.Errorf("cloning %s: %w", ref.cleanURL, err)
	}

	if ref.commitOrTag == "" {
		return toWhere, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return toWhere, fmt.Errorf("worktree for %s: %w", ref.cleanURL, err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref.commitOrTag))
	if err != nil {
		return toWhere, fmt.Errorf("resolving revision %q: %w", ref.commitOrTag, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return toWhere, fmt.Errorf("checking out %q: %w", ref.commitOrTag, err)
	}
	return toWhere, nil
}
