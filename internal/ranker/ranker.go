// Package ranker scores candidate file paths against task keywords without
// any judge call. Three independent signals each produce their own list of
// (path, weight) increments; a pure merge sums them, so a file surfaced by
// multiple signals accumulates the weight of each.
package ranker

import (
	"context"
	"sort"
	"strings"

	"contextprime/internal/fsview"
	"contextprime/internal/gitview"
	"contextprime/internal/keyword"
	"contextprime/internal/logging"
	"contextprime/internal/source"
)

// Signal weights. A name match is a stronger, more specific signal than a
// single content occurrence and must outrank it when weights are compared.
const (
	ContentMatchWeight = 1.0
	NameMatchWeight    = 3.0
	RecencyWeight      = 0.5
)

// Config bounds the ranker's work.
type Config struct {
	MaxFiles    int // Files to read after ranking (default 50)
	MaxDepth    int // Directory depth for the walk (0 = unlimited)
	CommitDepth int // Commits inspected by the recency signal (default 10)
	KeywordCap  int // Keywords extracted from the task (default 10)
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{
		MaxFiles:    50,
		MaxDepth:    8,
		CommitDepth: 10,
		KeywordCap:  keyword.DefaultCap,
	}
}

// Increment is one signal's weight contribution for one path.
type Increment struct {
	Path   string
	Weight float64
}

// Ranker combines the three signals over one project view.
type Ranker struct {
	files *fsview.View
	git   *gitview.View
	cfg   Config
}

// New creates a ranker over the given collaborators.
func New(files *fsview.View, git *gitview.View, cfg Config) *Ranker {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultConfig().MaxFiles
	}
	if cfg.CommitDepth <= 0 {
		cfg.CommitDepth = DefaultConfig().CommitDepth
	}
	if cfg.KeywordCap <= 0 {
		cfg.KeywordCap = DefaultConfig().KeywordCap
	}
	return &Ranker{files: files, git: git, cfg: cfg}
}

// Merge folds signal increments into a single path→weight accumulator.
// Pure function: signals never share a mutable map while computing.
func Merge(signals ...[]Increment) map[string]float64 {
	weights := make(map[string]float64)
	for _, sig := range signals {
		for _, inc := range sig {
			weights[inc.Path] += inc.Weight
		}
	}
	return weights
}

// Rank runs all three signals and returns the merged weights. A signal
// that fails underneath contributes nothing; ranking proceeds with
// whatever succeeded.
func (r *Ranker) Rank(ctx context.Context, keywords []string) map[string]float64 {
	log := logging.Get(logging.CategoryRanker)

	paths, err := r.files.ListFiles(r.cfg.MaxDepth)
	if err != nil {
		log.Debugw("file listing failed, content and name signals degraded", "error", err)
	}

	content := r.contentSignal(ctx, keywords, paths)
	names := nameSignal(keywords, paths)
	recency := r.recencySignal(ctx)

	log.Debugw("signals collected",
		"keywords", len(keywords),
		"content_hits", len(content),
		"name_hits", len(names),
		"recent_files", len(recency))

	return Merge(content, names, recency)
}

// contentSignal finds files whose content contains a keyword,
// case-insensitive, restricted to the extension allow-list. Each keyword
// hit contributes ContentMatchWeight.
func (r *Ranker) contentSignal(ctx context.Context, keywords, paths []string) []Increment {
	var incs []Increment
	for _, kw := range keywords {
		if ctx.Err() != nil {
			return incs
		}
		for _, p := range paths {
			if !fsview.CodeExtensions[strings.ToLower(pathExt(p))] {
				continue
			}
			if r.files.FileContains(p, kw) {
				incs = append(incs, Increment{Path: p, Weight: ContentMatchWeight})
			}
		}
	}
	return incs
}

// nameSignal finds files whose name contains a keyword, case-insensitive.
func nameSignal(keywords, paths []string) []Increment {
	var incs []Increment
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		for _, p := range paths {
			if strings.Contains(strings.ToLower(pathBase(p)), lower) {
				incs = append(incs, Increment{Path: p, Weight: NameMatchWeight})
			}
		}
	}
	return incs
}

// recencySignal rewards files changed recently according to the git
// fallback chain. No repository means no contribution.
func (r *Ranker) recencySignal(ctx context.Context) []Increment {
	files, strategy := r.git.ChangedFiles(ctx, r.cfg.CommitDepth)
	if len(files) == 0 {
		return nil
	}
	logging.Get(logging.CategoryRanker).Debugw("recency signal", "strategy", strategy, "files", len(files))

	incs := make([]Increment, 0, len(files))
	for _, f := range files {
		incs = append(incs, Increment{Path: f, Weight: RecencyWeight})
	}
	return incs
}

// SortedPaths orders a weight map by descending weight, breaking ties by
// path so runs over the same tree are reproducible.
func SortedPaths(weights map[string]float64) []string {
	paths := make([]string, 0, len(weights))
	for p := range weights {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if weights[paths[i]] != weights[paths[j]] {
			return weights[paths[i]] > weights[paths[j]]
		}
		return paths[i] < paths[j]
	})
	return paths
}

// ReadTop reads the highest-weighted files as source-file candidates.
// Read constraints (regular, non-empty, size- and extension-limited, not a
// lock file) are applied against the sorted list before truncation, so a
// skipped file does not waste a selection slot; the next-ranked file
// fills in.
func (r *Ranker) ReadTop(weights map[string]float64) []source.Candidate {
	log := logging.Get(logging.CategoryRanker)

	var out []source.Candidate
	for _, p := range SortedPaths(weights) {
		if len(out) >= r.cfg.MaxFiles {
			break
		}
		if !r.files.Readable(p) {
			continue
		}
		content, err := r.files.ReadFile(p)
		if err != nil {
			// File vanished between listing and reading: skip it alone.
			log.Debugw("skipping unreadable candidate", "path", p, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, source.New(source.CategorySourceFile, p, content))
	}
	return out
}

// FindRelevant is the convenience entry point: extract keywords, rank,
// and read the top files. An empty keyword set means no heuristic ranking
// is possible and yields no candidates.
func (r *Ranker) FindRelevant(ctx context.Context, task string) []source.Candidate {
	keywords := keyword.ExtractN(task, r.cfg.KeywordCap)
	if len(keywords) == 0 {
		return nil
	}
	return r.ReadTop(r.Rank(ctx, keywords))
}

func pathExt(p string) string {
	if i := strings.LastIndex(p, "."); i >= 0 && i > strings.LastIndex(p, "/") {
		return p[i:]
	}
	return ""
}

func pathBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
