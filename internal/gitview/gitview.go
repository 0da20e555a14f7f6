// Package gitview is the read-only version-control collaborator. Every
// query shells out to git with a per-call timeout; a missing repository or
// a failed command yields empty results, never an error the pipeline has
// to handle.
package gitview

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 10 * time.Second

// View runs read-only git queries against one working directory.
type View struct {
	dir     string
	timeout time.Duration
}

// New creates a view for the given directory.
func New(dir string) *View {
	return &View{dir: dir, timeout: DefaultTimeout}
}

// NewWithTimeout creates a view with a custom per-call timeout.
func NewWithTimeout(dir string, timeout time.Duration) *View {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &View{dir: dir, timeout: timeout}
}

// run executes a git command and returns trimmed stdout. Any failure
// (no git binary, not a repo, timeout) returns the empty string.
func (v *View) run(ctx context.Context, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = v.dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// IsRepo reports whether the directory is inside a git work tree.
func (v *View) IsRepo(ctx context.Context) bool {
	return v.run(ctx, "rev-parse", "--is-inside-work-tree") == "true"
}

// RecentCommits returns one-line summaries for the last n commits.
func (v *View) RecentCommits(ctx context.Context, n int) string {
	return v.run(ctx, "log", "--oneline", fmt.Sprintf("-%d", n), "--no-decorate")
}

// DiffStat returns a summary of changes across the last n commits.
func (v *View) DiffStat(ctx context.Context, n int) string {
	return v.run(ctx, "diff", "--stat", fmt.Sprintf("HEAD~%d..HEAD", n))
}

// CurrentBranch returns the checked-out branch name, or "" when detached
// or not a repository.
func (v *View) CurrentBranch(ctx context.Context) string {
	return v.run(ctx, "branch", "--show-current")
}

// ShortStatus returns porcelain short-form status output.
func (v *View) ShortStatus(ctx context.Context) string {
	return v.run(ctx, "status", "--short")
}

// ChangedStrategy names one way of asking git which files changed.
type ChangedStrategy struct {
	Name string
	Args []string
}

// changedStrategies is the ordered fallback chain for recently changed
// files: commit range first, then unstaged, then staged. The first
// strategy returning a non-empty list wins; results are not unioned.
// New strategies append here without touching control flow.
func changedStrategies(commitDepth int) []ChangedStrategy {
	return []ChangedStrategy{
		{Name: "recent-commits", Args: []string{"diff", "--name-only", fmt.Sprintf("HEAD~%d..HEAD", commitDepth)}},
		{Name: "unstaged", Args: []string{"diff", "--name-only", "HEAD"}},
		{Name: "staged", Args: []string{"diff", "--name-only", "--cached"}},
	}
}

// ChangedFiles returns file paths changed recently, trying each strategy
// in order and returning the first non-empty result along with the
// strategy name. No repository yields a nil slice.
func (v *View) ChangedFiles(ctx context.Context, commitDepth int) ([]string, string) {
	for _, strat := range changedStrategies(commitDepth) {
		out := v.run(ctx, strat.Args...)
		if out == "" {
			continue
		}
		files := splitLines(out)
		if len(files) > 0 {
			return files, strat.Name
		}
	}
	return nil, ""
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
