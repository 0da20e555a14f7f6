// Package fsview is the read-only filesystem collaborator. It owns the
// static tables describing what counts as readable source material: the
// extension allow-list, the pruned directory set, and the lock-file
// denylist. Callers receive raw text blobs and never walk the tree
// themselves.
package fsview

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileBytes bounds single-file reads; anything larger is
// assumed generated or binary.
const DefaultMaxFileBytes = 100_000

// CodeExtensions is the allow-list of source-like file extensions.
var CodeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".go": true, ".rs": true, ".rb": true, ".java": true, ".kt": true,
	".swift": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".cs": true, ".php": true, ".lua": true,
	".sh": true, ".bash": true, ".zsh": true,
	".sql": true, ".graphql": true, ".proto": true,
	".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".css": true, ".scss": true, ".less": true, ".html": true,
	".svelte": true, ".vue": true,
	".tf": true, ".hcl": true,
	".md": true,
}

// SkipDirs are pruned from every walk: VCS internals, dependency trees,
// and build output.
var SkipDirs = map[string]bool{
	".git": true, "node_modules": true, ".venv": true, "venv": true,
	"__pycache__": true, ".next": true, ".nuxt": true, "dist": true,
	"build": true, ".cache": true, ".tox": true, ".mypy_cache": true,
	".pytest_cache": true, "target": true, "vendor": true,
	".terraform": true, "coverage": true, ".nyc_output": true,
}

// LockFiles are skipped even when their extension is allow-listed.
var LockFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"poetry.lock": true, "Pipfile.lock": true, "Gemfile.lock": true,
	"composer.lock": true, "Cargo.lock": true, "go.sum": true,
}

// View provides bounded read access under a single root directory.
type View struct {
	root         string
	maxFileBytes int64
}

// New creates a view rooted at dir.
func New(dir string) *View {
	return &View{root: dir, maxFileBytes: DefaultMaxFileBytes}
}

// NewWithLimit creates a view with a custom per-file byte limit.
func NewWithLimit(dir string, maxFileBytes int64) *View {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &View{root: dir, maxFileBytes: maxFileBytes}
}

// Root returns the view's root directory.
func (v *View) Root() string {
	return v.root
}

// ListFiles walks the tree up to maxDepth directory levels below the root,
// pruning SkipDirs and hidden directories, and returns relative paths
// sorted lexically. Files themselves are not filtered by extension here;
// the caller decides what to read.
func (v *View) ListFiles(maxDepth int) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A vanished or unreadable entry degrades that entry only.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(v.root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			name := d.Name()
			if SkipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if maxDepth > 0 && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", v.root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Readable reports whether a relative path passes every read constraint:
// regular file, non-empty, under the byte limit, allow-listed extension,
// and not a lock file.
func (v *View) Readable(rel string) bool {
	name := filepath.Base(rel)
	if LockFiles[name] {
		return false
	}
	if !CodeExtensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}

	info, err := os.Stat(filepath.Join(v.root, rel))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if info.Size() == 0 || info.Size() > v.maxFileBytes {
		return false
	}
	return true
}

// ReadFile reads a relative path in full. Callers are expected to have
// checked Readable first; a direct read of an oversized file still fails.
func (v *View) ReadFile(rel string) (string, error) {
	full := filepath.Join(v.root, rel)
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.Size() > v.maxFileBytes {
		return "", fmt.Errorf("%s exceeds %d byte limit", rel, v.maxFileBytes)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FileContains reports whether a file's content contains the keyword,
// case-insensitive. Unreadable files contain nothing.
func (v *View) FileContains(rel, kw string) bool {
	data, err := os.ReadFile(filepath.Join(v.root, rel))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), strings.ToLower(kw))
}
