// Package pipeline wires the priming stages into one strict sequence:
// gather, heuristic rank, judge scoring, budget allocation, hierarchy
// inference, assembly. Stages share no mutable state; a judge failure
// degrades scoring (fail-closed) but the pipeline always returns a
// result for a well-formed pool.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contextprime/internal/assemble"
	"contextprime/internal/budget"
	"contextprime/internal/config"
	"contextprime/internal/fsview"
	"contextprime/internal/gather"
	"contextprime/internal/gitview"
	"contextprime/internal/goal"
	"contextprime/internal/judge"
	"contextprime/internal/logging"
	"contextprime/internal/ranker"
	"contextprime/internal/score"
	"contextprime/internal/source"
	"contextprime/internal/store"
)

// Result is everything a priming run produced.
type Result struct {
	Document  string
	Hierarchy goal.Hierarchy
	Pool      *source.Pool
	Scored    []score.Scored
	Selected  []score.Scored
	Elapsed   time.Duration
	RunID     string // Empty when history is disabled
}

// SelectedTokens sums the size estimates of the selection.
func (r *Result) SelectedTokens() int {
	total := 0
	for _, s := range r.Selected {
		total += s.Candidate.SizeEstimate
	}
	return total
}

// Primer runs priming pipelines for one project directory.
type Primer struct {
	gatherer *gather.Gatherer
	judge    judge.Judge
	policy   budget.Policy
	history  *store.Store // nil disables run history
}

// New assembles a primer from configuration. The judge may be nil, in
// which case scoring falls back to fail-closed and no hierarchy or
// summary is inferred. The history store may be nil.
func New(cfg *config.Config, projectDir string, j judge.Judge, history *store.Store) *Primer {
	files := fsview.NewWithLimit(projectDir, cfg.Gather.MaxFileBytes)
	git := gitview.New(projectDir)

	r := ranker.New(files, git, ranker.Config{
		MaxFiles:    cfg.Gather.MaxFiles,
		MaxDepth:    cfg.Gather.MaxDepth * 2, // Code search digs deeper than the tree summary
		CommitDepth: cfg.Gather.RankerCommits,
		KeywordCap:  cfg.Gather.KeywordCap,
	})

	g := gather.New(files, git, r, gather.Config{
		MaxDepth:    cfg.Gather.MaxDepth,
		CommitCount: cfg.Gather.CommitCount,
		MemoryPaths: cfg.Gather.MemoryPaths,
	})

	budgetTokens := cfg.Selection.BudgetTokens
	if budgetTokens <= 0 {
		budgetTokens = budget.PlatformBudget(cfg.Selection.Platform, cfg.Selection.BudgetFraction)
	}

	return &Primer{
		gatherer: g,
		judge:    j,
		policy: budget.Policy{
			Threshold:          cfg.Selection.Threshold,
			BudgetTokens:       budgetTokens,
			ReservedFraction:   cfg.Selection.ReservedFraction,
			ReservedCategories: budget.DefaultReservedCategories(),
		},
		history: history,
	}
}

// Gather collects the candidate pool without any judge call.
func (p *Primer) Gather(ctx context.Context, task string) *source.Pool {
	return p.gatherer.All(ctx, task)
}

// Prime runs the full pipeline for a task and returns the primed context.
func (p *Primer) Prime(ctx context.Context, task string) (*Result, error) {
	if strings.TrimSpace(task) == "" {
		return nil, fmt.Errorf("task description is required")
	}
	if err := p.policy.Validate(); err != nil {
		return nil, err
	}

	log := logging.Get(logging.CategoryPipeline)
	start := time.Now()

	pool := p.gatherer.All(ctx, task)
	log.Debugw("gathered", "candidates", len(pool.Candidates), "tokens", pool.TotalTokens())

	var scored []score.Scored
	if p.judge != nil {
		scored = score.Rank(ctx, p.judge, task, pool)
	} else {
		// No judge configured: every candidate carries the fail-closed
		// score, so selection is governed entirely by the threshold.
		scored = score.SortByRelevance(score.FailClosed(pool))
	}

	selected, err := budget.Select(scored, p.policy)
	if err != nil {
		return nil, err
	}
	log.Debugw("selected", "kept", len(selected), "of", len(scored))

	hierarchy := goal.Hierarchy{Immediate: task, Confidence: "low"}
	if p.judge != nil {
		hierarchy = goal.Infer(ctx, p.judge, task, contextPreview(selected))
	}

	doc := assemble.Document(ctx, p.judge, task, hierarchy, selected)

	result := &Result{
		Document:  doc,
		Hierarchy: hierarchy,
		Pool:      pool,
		Scored:    scored,
		Selected:  selected,
		Elapsed:   time.Since(start),
	}

	p.record(task, result)
	return result, nil
}

// SessionContext builds a task-free orientation block: project summaries
// and all memories, no scoring, zero judge calls.
func (p *Primer) SessionContext(ctx context.Context) string {
	pool := p.gatherer.All(ctx, "")

	var b strings.Builder
	b.WriteString("## Project Context (auto-primed at session start)\n\n")
	for _, c := range pool.Candidates {
		switch c.Category {
		case source.CategorySummary, source.CategoryConfig:
			fmt.Fprintf(&b, "### %s\n%s\n\n", c.Identifier, source.Clip(c.Content, 500))
		}
	}
	for _, c := range pool.Candidates {
		if c.Category == source.CategoryMemory {
			fmt.Fprintf(&b, "### Memory: %s\n%s\n\n", c.Identifier, c.Content)
		}
	}
	return b.String()
}

// record persists the run when history is enabled. Persistence failures
// are logged, never surfaced: the primed context is already in hand.
func (p *Primer) record(task string, result *Result) {
	if p.history == nil {
		return
	}

	identifiers := make([]string, 0, len(result.Selected))
	for _, s := range result.Selected {
		identifiers = append(identifiers, s.Candidate.Identifier)
	}

	id, err := p.history.Record(store.Run{
		Task:           task,
		ProjectDir:     result.Pool.ProjectDir,
		StartedAt:      time.Now().UTC().Add(-result.Elapsed),
		Duration:       result.Elapsed,
		Gathered:       len(result.Pool.Candidates),
		Selected:       len(result.Selected),
		BudgetTokens:   p.policy.BudgetTokens,
		SelectedTokens: result.SelectedTokens(),
		Identifiers:    identifiers,
	})
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnw("run history not recorded", "error", err)
		return
	}
	result.RunID = id
}

// contextPreview concatenates the first lines of the top selections for
// the hierarchy prompt.
func contextPreview(selected []score.Scored) string {
	var parts []string
	for i, s := range selected {
		if i == 5 {
			break
		}
		parts = append(parts, source.Clip(s.Candidate.Content, 500))
	}
	return strings.Join(parts, "\n")
}
