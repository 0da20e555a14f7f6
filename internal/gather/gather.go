// Package gather collects every potentially relevant source from a
// project: memory notes, key project files, the directory layout,
// task-matched code files, git history, and priority documents. It
// over-gathers on purpose; the scoring and allocation stages do the
// filtering. A failure to read any single source skips that source only.
package gather

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"contextprime/internal/fsview"
	"contextprime/internal/gitview"
	"contextprime/internal/logging"
	"contextprime/internal/ranker"
	"contextprime/internal/source"
)

// Truncation caps per gatherer. Memories are never truncated: they are
// the accumulated lessons the whole exercise exists to surface.
const (
	keyFileChars  = 8000
	configChars   = 4000
	treeListChars = 8000
)

// keyFiles orient the agent in any project, whatever the language.
var keyFiles = []string{
	"README.md", "readme.md",
	"package.json", "pyproject.toml", "Cargo.toml", "go.mod",
	"CLAUDE.md", ".claude/CLAUDE.md", "AGENTS.md",
	"Makefile", "docker-compose.yml",
}

// priorityFiles capture project direction and constraints.
var priorityFiles = []string{
	"TODO.md", "PRIORITIES.md", "ROADMAP.md",
	".github/ISSUE_TEMPLATE.md",
	"CONTRIBUTING.md",
}

// Config bounds a gathering run.
type Config struct {
	MaxDepth    int      // Directory tree depth (default 4)
	CommitCount int      // Commits for the history summary (default 20)
	MemoryPaths []string // Explicit memory locations; empty means defaults
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{MaxDepth: 4, CommitCount: 20}
}

// Gatherer collects candidates from one project directory.
type Gatherer struct {
	files  *fsview.View
	git    *gitview.View
	ranker *ranker.Ranker
	cfg    Config
}

// New creates a gatherer over the given collaborators.
func New(files *fsview.View, git *gitview.View, r *ranker.Ranker, cfg Config) *Gatherer {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.CommitCount <= 0 {
		cfg.CommitCount = DefaultConfig().CommitCount
	}
	return &Gatherer{files: files, git: git, ranker: r, cfg: cfg}
}

// All gathers every source category. When task is non-empty, actual code
// files matching task keywords are gathered too (the ranker's heuristic
// pre-filter, no judge call).
func (g *Gatherer) All(ctx context.Context, task string) *source.Pool {
	log := logging.Get(logging.CategoryGather)

	pool := &source.Pool{ProjectDir: g.files.Root()}
	pool.Candidates = append(pool.Candidates, g.Memories()...)
	pool.Candidates = append(pool.Candidates, g.ProjectFiles()...)
	pool.Candidates = append(pool.Candidates, g.DirectoryTree()...)
	if task != "" {
		pool.Candidates = append(pool.Candidates, g.ranker.FindRelevant(ctx, task)...)
	}
	pool.Candidates = append(pool.Candidates, g.GitHistory(ctx)...)
	pool.Candidates = append(pool.Candidates, g.PriorityFiles()...)

	log.Debugw("gathering complete",
		"candidates", len(pool.Candidates),
		"total_tokens", pool.TotalTokens())
	return pool
}

// Memories scans memory files: the project MEMORY.md, the project's
// .claude/memory directory, the global and per-project directories under
// the user's home, and any explicitly configured paths.
func (g *Gatherer) Memories() []source.Candidate {
	paths := g.cfg.MemoryPaths
	if len(paths) == 0 {
		paths = []string{
			filepath.Join(g.files.Root(), "MEMORY.md"),
			filepath.Join(g.files.Root(), ".claude", "memory"),
		}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".claude", "memory"))
			if dir := projectMemoryDir(filepath.Join(home, ".claude", "projects"), g.files.Root()); dir != "" {
				paths = append(paths, dir)
			}
		}
	}

	var out []source.Candidate
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			if c, ok := readMemoryFile(p, filepath.Base(p)); ok {
				out = append(out, c)
			}
			continue
		}
		if info.IsDir() {
			out = append(out, readMemoryDir(p)...)
		}
	}
	return out
}

func readMemoryFile(path, name string) (source.Candidate, bool) {
	data, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(data)) == "" {
		return source.Candidate{}, false
	}
	return source.New(source.CategoryMemory, name, string(data)), true
}

// projectMemoryDir locates this project's memory directory under the
// shared projects root. Project directories are named by the absolute
// project path with separators replaced by dashes; matching is substring
// in either direction to tolerate prefixed naming schemes. Only the first
// matching entry is considered.
func projectMemoryDir(projectsDir, projectDir string) string {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return ""
	}
	encoded := strings.ReplaceAll(abs, string(filepath.Separator), "-")

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.Contains(name, encoded) && !strings.Contains(encoded, name) {
			continue
		}
		dir := filepath.Join(projectsDir, name, "memory")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		return ""
	}
	return ""
}

func readMemoryDir(dir string) []source.Candidate {
	var out []source.Candidate
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = d.Name()
		}
		if c, ok := readMemoryFile(path, filepath.ToSlash(rel)); ok {
			out = append(out, c)
		}
		return nil
	})
	return out
}

// ProjectFiles reads the well-known orientation files. Entries resolving
// to the same underlying file (README.md vs readme.md on a
// case-insensitive filesystem) are gathered once.
func (g *Gatherer) ProjectFiles() []source.Candidate {
	var out []source.Candidate
	var seen []os.FileInfo
	for _, name := range keyFiles {
		info, err := os.Stat(filepath.Join(g.files.Root(), name))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		dup := false
		for _, prev := range seen {
			if os.SameFile(prev, info) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, info)

		content, err := readDirect(g.files.Root(), name)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, source.New(source.CategorySummary, name, truncate(content, keyFileChars)))
	}
	return out
}

// DirectoryTree emits the pruned file listing as one candidate, giving
// the judge a map of the repository.
func (g *Gatherer) DirectoryTree() []source.Candidate {
	paths, err := g.files.ListFiles(g.cfg.MaxDepth)
	if err != nil || len(paths) == 0 {
		return nil
	}
	listing := truncate(strings.Join(paths, "\n"), treeListChars)
	return []source.Candidate{source.New(source.CategorySummary, "directory_structure", listing)}
}

// GitHistory emits recent commits, the current branch and status, and a
// recent diff stat. A missing repository contributes nothing.
func (g *Gatherer) GitHistory(ctx context.Context) []source.Candidate {
	var out []source.Candidate

	if log := g.git.RecentCommits(ctx, g.cfg.CommitCount); log != "" {
		out = append(out, source.New(source.CategoryVCS, "recent_commits", log))
	}

	branch := g.git.CurrentBranch(ctx)
	status := g.git.ShortStatus(ctx)
	if branch != "" || status != "" {
		if branch == "" {
			branch = "unknown"
		}
		if status == "" {
			status = "clean"
		}
		out = append(out, source.New(source.CategoryVCS, "current_state",
			fmt.Sprintf("Branch: %s\n\nStatus:\n%s", branch, status)))
	}

	if diff := g.git.DiffStat(ctx, 5); diff != "" {
		out = append(out, source.New(source.CategoryVCS, "recent_changes", diff))
	}

	return out
}

// PriorityFiles reads project priority and contribution documents.
func (g *Gatherer) PriorityFiles() []source.Candidate {
	var out []source.Candidate
	for _, name := range priorityFiles {
		content, err := readDirect(g.files.Root(), name)
		if err != nil || strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, source.New(source.CategoryConfig, name, truncate(content, configChars)))
	}
	return out
}

// readDirect reads a well-known file by name, bypassing the extension
// allow-list (Makefile and friends have none).
func readDirect(root, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return source.Clip(s, limit) + "\n\n... [truncated]"
}
