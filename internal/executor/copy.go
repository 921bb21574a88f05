package executor

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nativebuild/nbs/internal/msg"
)

// isGlobPattern reports whether entry needs expansion against the package
// tree rather than being copied as a literal path (spec §4.F "copyFiles").
func isGlobPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?{[")
}

// copyFiles resolves target.BuildSettings.CopyFiles against packageDir and
// hard-links the result into destDir. Copy failures warn but never fail
// the build (spec §4.F).
func copyFiles(entries []string, packageDir, destDir string) {
	for _, entry := range entries {
		if isGlobPattern(entry) {
			matches, err := doublestar.Glob(os.DirFS(packageDir), entry)
			if err != nil {
				msg.Warn("invalid copyFiles pattern %q: %v", entry, err)
				continue
			}
			for _, m := range matches {
				copyOne(filepath.Join(packageDir, m), filepath.Join(destDir, filepath.Base(m)))
			}
			continue
		}
		src := entry
		if !filepath.IsAbs(src) {
			src = filepath.Join(packageDir, src)
		}
		copyOne(src, filepath.Join(destDir, filepath.Base(src)))
	}
}

func copyOne(src, dst string) {
	info, err := os.Stat(src)
	if err != nil {
		msg.Warn("copyFiles: %v", err)
		return
	}
	if info.IsDir() {
		if err := copyDirHardlink(src, dst); err != nil {
			msg.Warn("copyFiles: %v", err)
		}
		return
	}
	if err := hardlinkFile(src, dst); err != nil {
		msg.Warn("copyFiles: %v", err)
	}
}

func copyDirHardlink(srcDir, dstDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return hardlinkFile(path, dst)
	})
}

// hardlinkFile hard-links src to dst, replacing dst if it already exists
// (the cache-to-targetPath and copyFiles "publish" step share this).
func hardlinkFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Link(src, dst)
}
