package assemble

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"contextprime/internal/goal"
	"contextprime/internal/judge"
	"contextprime/internal/score"
	"contextprime/internal/source"
)

func testSelection() []score.Scored {
	return []score.Scored{
		{Candidate: source.New(source.CategorySourceFile, "auth.go", "package auth\n"), Relevance: 0.9},
		{Candidate: source.New(source.CategoryMemory, "lessons.md", "- prefer table tests"), Relevance: 0.6},
	}
}

func TestDocumentWithoutJudge(t *testing.T) {
	h := goal.Hierarchy{Immediate: "fix auth", Midterm: "stable login", Final: "ship v2"}
	doc := Document(context.Background(), nil, "fix auth", h, testSelection())

	assert.True(t, strings.HasPrefix(doc, "# Primed Context"))
	assert.Contains(t, doc, "- **Final goal:** ship v2")
	assert.Contains(t, doc, "- **Mid-term:** stable login")
	assert.Contains(t, doc, "- **Immediate task:** fix auth")
	assert.NotContains(t, doc, "## Summary", "no judge means no summary section")

	// Full content, relevance order, two-decimal scores.
	assert.Contains(t, doc, "### [source-file] auth.go (relevance: 0.90)")
	assert.Contains(t, doc, "package auth")
	assert.Contains(t, doc, "### [memory] lessons.md (relevance: 0.60)")
	assert.Less(t,
		strings.Index(doc, "auth.go"),
		strings.Index(doc, "lessons.md"),
		"sources must appear in relevance order")
}

func TestDocumentWithSummary(t *testing.T) {
	j := judge.Func(func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "auth.go (source-file)")
		return "  Touch auth.go first.  ", nil
	})

	doc := Document(context.Background(), j, "fix auth", goal.Hierarchy{Immediate: "fix auth"}, testSelection())
	assert.Contains(t, doc, "## Summary\n\nTouch auth.go first.")
}

func TestDocumentSummaryFailureIsNonFatal(t *testing.T) {
	j := judge.Func(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("judge down")
	})

	doc := Document(context.Background(), j, "fix auth", goal.Hierarchy{}, testSelection())
	assert.NotContains(t, doc, "## Summary")
	assert.Contains(t, doc, "- **Immediate task:** fix auth", "empty hierarchy falls back to the task")
	assert.Contains(t, doc, "## Relevant Sources")
}

func TestDocumentOmitsEmptyHierarchyLevels(t *testing.T) {
	doc := Document(context.Background(), nil, "task", goal.Hierarchy{Immediate: "task"}, nil)
	assert.NotContains(t, doc, "Final goal")
	assert.NotContains(t, doc, "Mid-term")
}
