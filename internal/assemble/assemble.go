// Package assemble renders the final primed-context document. Selection,
// not compression: the allocator already decided what is relevant, so
// content is included in full, ordered by relevance. An optional judge
// call adds a short executive summary; without one, assembly makes zero
// model calls.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"contextprime/internal/goal"
	"contextprime/internal/judge"
	"contextprime/internal/logging"
	"contextprime/internal/score"
)

// summaryPrompt asks for a brief briefing paragraph, nothing more.
const summaryPrompt = `Write a 3-5 sentence executive summary for a coding agent about to work on this task.

Task: %s

Outcome Hierarchy:
- Immediate: %s
- Mid-term: %s
- Final: %s

Key sources available: %s

Write ONLY the summary paragraph. Be specific about what files to touch,
what to watch out for, and what the real goal is. No headers, no
formatting, just the paragraph.`

// Document renders the primed context as markdown. A nil judge skips the
// executive summary; a judge error does too, since the sources below it
// carry the actual signal.
func Document(ctx context.Context, j judge.Judge, task string, h goal.Hierarchy, selected []score.Scored) string {
	var b strings.Builder

	b.WriteString("# Primed Context\n\n")
	b.WriteString("> Auto-assembled from project sources scored for task relevance.\n\n")

	b.WriteString("## Outcome Hierarchy\n\n")
	if h.Final != "" {
		fmt.Fprintf(&b, "- **Final goal:** %s\n", h.Final)
	}
	if h.Midterm != "" {
		fmt.Fprintf(&b, "- **Mid-term:** %s\n", h.Midterm)
	}
	immediate := h.Immediate
	if immediate == "" {
		immediate = task
	}
	fmt.Fprintf(&b, "- **Immediate task:** %s\n\n", immediate)

	if j != nil {
		if summary := executiveSummary(ctx, j, task, h, selected); summary != "" {
			b.WriteString("## Summary\n\n")
			b.WriteString(summary)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Relevant Sources\n\n")
	for _, s := range selected {
		fmt.Fprintf(&b, "### [%s] %s (relevance: %.2f)\n\n", s.Candidate.Category, s.Candidate.Identifier, s.Relevance)
		b.WriteString(s.Candidate.Content)
		if !strings.HasSuffix(s.Candidate.Content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func executiveSummary(ctx context.Context, j judge.Judge, task string, h goal.Hierarchy, selected []score.Scored) string {
	names := make([]string, 0, len(selected))
	for _, s := range selected {
		names = append(names, fmt.Sprintf("%s (%s)", s.Candidate.Identifier, s.Candidate.Category))
	}

	prompt := fmt.Sprintf(summaryPrompt,
		task,
		orNotInferred(h.Immediate),
		orNotInferred(h.Midterm),
		orNotInferred(h.Final),
		strings.Join(names, ", "))

	summary, err := j.Complete(ctx, prompt)
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnw("executive summary skipped", "error", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

func orNotInferred(s string) string {
	if s == "" {
		return "Not inferred"
	}
	return s
}
