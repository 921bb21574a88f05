package recipe

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func isGlobPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?{[")
}

// expandGlobs resolves each entry against baseDir, expanding doublestar
// patterns and passing literal paths through unchanged (teacher's
// builder.go collectFiles, generalized to source/import/string-import
// entries alike). Results are absolute, sorted, and deduplicated so the
// same listing is produced across repeated calls with the same inputs.
func expandGlobs(baseDir string, entries []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range entries {
		if !isGlobPattern(entry) {
			abs := entry
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(baseDir, abs)
			}
			if !seen[abs] {
				seen[abs] = true
				out = append(out, abs)
			}
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(baseDir), entry)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			abs := filepath.Join(baseDir, m)
			if !seen[abs] {
				seen[abs] = true
				out = append(out, abs)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// excludeGlobs removes from files any path matching one of the exclude
// patterns (resolved the same way expandGlobs resolves inclusions).
func excludeGlobs(baseDir string, files []string, excludes []string) ([]string, error) {
	if len(excludes) == 0 {
		return files, nil
	}
	excluded, err := expandGlobs(baseDir, excludes)
	if err != nil {
		return nil, err
	}
	excludedSet := make(map[string]bool, len(excluded))
	for _, e := range excluded {
		excludedSet[e] = true
	}
	kept := files[:0]
	for _, f := range files {
		if !excludedSet[f] {
			kept = append(kept, f)
		}
	}
	return kept, nil
}
