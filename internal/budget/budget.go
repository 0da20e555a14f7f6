// Package budget selects scored candidates under a hard token budget.
// A single greedy fill by score would let a handful of large, high-scoring
// source files crowd out small, high-value categories (memories, config
// notes), so the budget is partitioned first: a reserved slice for
// protected categories, the remainder for everyone else. Unused capacity
// never moves between buckets.
package budget

import (
	"fmt"
	"sort"

	"contextprime/internal/logging"
	"contextprime/internal/score"
	"contextprime/internal/source"
)

// PlatformContexts maps an agent platform to the tokens available for
// coding context. Passed explicitly so one process can serve several
// platforms without ambient-state cross-talk.
var PlatformContexts = map[string]int{
	"claude_code": 120_000, // Claude Code reserves a large share for tools/MCP
	"claude_api":  200_000,
	"opencode":    128_000,
	"gemini_cli":  1_000_000,
	"codex_cli":   200_000,
}

// DefaultPlatformContext is used for platforms not in the table.
const DefaultPlatformContext = 128_000

// Defaults for the allocation policy.
const (
	DefaultBudgetFraction   = 0.25 // Share of platform context used for priming
	DefaultReservedFraction = 0.15 // Share of the budget protected for reserved categories
)

// DefaultReservedCategories are the cheap, high-value categories the
// reservation protects.
func DefaultReservedCategories() map[source.Category]bool {
	return map[source.Category]bool{
		source.CategoryMemory: true,
		source.CategoryConfig: true,
	}
}

// PlatformBudget derives a token budget as a fraction of a platform's
// context size, falling back to DefaultPlatformContext for unknown names.
func PlatformBudget(platform string, fraction float64) int {
	total, ok := PlatformContexts[platform]
	if !ok {
		total = DefaultPlatformContext
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultBudgetFraction
	}
	return int(float64(total) * fraction)
}

// Policy describes one allocation run.
type Policy struct {
	Threshold          float64 // Minimum relevance to include, in [0, 1]
	BudgetTokens       int     // Total token budget, > 0
	ReservedFraction   float64 // Share of budget protected, in [0, 1]
	ReservedCategories map[source.Category]bool
}

// DefaultPolicy returns the standard policy for a given budget.
func DefaultPolicy(budgetTokens int) Policy {
	return Policy{
		Threshold:          0.5,
		BudgetTokens:       budgetTokens,
		ReservedFraction:   DefaultReservedFraction,
		ReservedCategories: DefaultReservedCategories(),
	}
}

// Validate rejects misconfiguration up front; these are caller errors,
// not recoverable runtime conditions.
func (p Policy) Validate() error {
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("threshold %.2f outside [0, 1]", p.Threshold)
	}
	if p.BudgetTokens <= 0 {
		return fmt.Errorf("budget must be positive, got %d", p.BudgetTokens)
	}
	if p.ReservedFraction < 0 || p.ReservedFraction > 1 {
		return fmt.Errorf("reserved fraction %.2f outside [0, 1]", p.ReservedFraction)
	}
	return nil
}

// Select picks the subset of scored candidates honoring the policy.
// Input must already be sorted by descending relevance (score.Rank output
// is); each pool preserves that order. The returned selection is re-sorted
// by relevance only, so the two-phase fill decides inclusion but never
// ordering.
func Select(scored []score.Scored, p Policy) ([]score.Scored, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	reservedBudget := int(float64(p.BudgetTokens) * p.ReservedFraction)
	generalBudget := p.BudgetTokens - reservedBudget

	var reservedPool, generalPool []score.Scored
	for _, s := range scored {
		if p.ReservedCategories[s.Candidate.Category] {
			reservedPool = append(reservedPool, s)
		} else {
			generalPool = append(generalPool, s)
		}
	}

	selected := fill(reservedPool, p.Threshold, reservedBudget)
	selected = append(selected, fill(generalPool, p.Threshold, generalBudget)...)

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Relevance > selected[j].Relevance
	})

	logging.Get(logging.CategoryBudget).Debugw("selection complete",
		"input", len(scored),
		"selected", len(selected),
		"budget", p.BudgetTokens,
		"reserved_budget", reservedBudget,
		"general_budget", generalBudget)

	return selected, nil
}

// fill walks one pool in score order, skipping below-threshold candidates
// and any candidate whose size would overflow the remaining bucket budget.
// Oversized candidates are skipped, not aborted on: a later, smaller
// candidate may still fit the slack.
func fill(pool []score.Scored, threshold float64, budget int) []score.Scored {
	var out []score.Scored
	remaining := budget
	for _, s := range pool {
		if s.Relevance < threshold {
			continue
		}
		if s.Candidate.SizeEstimate > remaining {
			continue
		}
		out = append(out, s)
		remaining -= s.Candidate.SizeEstimate
	}
	return out
}
