package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contextprime/internal/config"
	"contextprime/internal/judge"
	"contextprime/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// opencensus starts a background worker in its package init; no
		// code under test can stop it.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedJudge answers each prompt kind with a canned response.
func scriptedJudge() judge.Judge {
	return judge.Func(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "Score the relevance"):
			return `[{"index": 0, "score": 0.9, "reasoning": "core notes for this task"}]`, nil
		case strings.HasPrefix(prompt, "Analyze this task"):
			return `{"immediate": "fix the parser", "midterm": "stabilize ingestion", "final": "", "reasoning": "inferred from notes", "confidence": "medium"}`, nil
		default:
			return "Start with the parser notes in MEMORY.md.", nil
		}
	})
}

func testProject(t *testing.T) (projectDir, memoryFile string) {
	t.Helper()
	projectDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "README.md"),
		[]byte("# Demo\nA parser playground."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "parser.go"),
		[]byte("package demo\n\nfunc Parse(s string) error { return nil }\n"), 0o644))

	memoryFile = filepath.Join(t.TempDir(), "MEMORY.md")
	require.NoError(t, os.WriteFile(memoryFile,
		[]byte("The parser chokes on empty input, guard for it."), 0o644))
	return projectDir, memoryFile
}

func testConfig(memoryFile string) *config.Config {
	cfg := config.Default()
	cfg.Gather.MemoryPaths = []string{memoryFile}
	cfg.Selection.BudgetTokens = 5_000
	return cfg
}

func TestPrimeEndToEnd(t *testing.T) {
	projectDir, memoryFile := testProject(t)
	p := New(testConfig(memoryFile), projectDir, scriptedJudge(), nil)

	result, err := p.Prime(context.Background(), "fix the parser")
	require.NoError(t, err)

	// Memories gather first, so index 0 is the memory note; it is the only
	// candidate scored above threshold.
	require.Len(t, result.Selected, 1)
	assert.Equal(t, "MEMORY.md", result.Selected[0].Candidate.Identifier)
	assert.InDelta(t, 0.9, result.Selected[0].Relevance, 1e-9)

	assert.Greater(t, len(result.Pool.Candidates), 1, "over-gathering feeds the judge more than it keeps")
	assert.Equal(t, "fix the parser", result.Hierarchy.Immediate)
	assert.Equal(t, "medium", result.Hierarchy.Confidence)
	assert.Empty(t, result.RunID, "no history store configured")

	assert.Contains(t, result.Document, "# Primed Context")
	assert.Contains(t, result.Document, "stabilize ingestion")
	assert.Contains(t, result.Document, "chokes on empty input")
	assert.Contains(t, result.Document, "Start with the parser notes")
}

func TestPrimeRequiresTask(t *testing.T) {
	projectDir, memoryFile := testProject(t)
	p := New(testConfig(memoryFile), projectDir, scriptedJudge(), nil)

	_, err := p.Prime(context.Background(), "   ")
	assert.Error(t, err)
}

func TestPrimeWithoutJudge(t *testing.T) {
	projectDir, memoryFile := testProject(t)
	p := New(testConfig(memoryFile), projectDir, nil, nil)

	result, err := p.Prime(context.Background(), "fix the parser")
	require.NoError(t, err)

	// Fail-closed scores sit below the default threshold, so nothing is
	// selected, but the document still renders with the literal task.
	assert.Empty(t, result.Selected)
	assert.Equal(t, "fix the parser", result.Hierarchy.Immediate)
	assert.Equal(t, "low", result.Hierarchy.Confidence)
	assert.Contains(t, result.Document, "# Primed Context")
}

func TestPrimeRecordsHistory(t *testing.T) {
	projectDir, memoryFile := testProject(t)

	history, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	p := New(testConfig(memoryFile), projectDir, scriptedJudge(), history)

	result, err := p.Prime(context.Background(), "fix the parser")
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)

	runs, err := history.List(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, "fix the parser", runs[0].Task)
	assert.Equal(t, len(result.Pool.Candidates), runs[0].Gathered)
	assert.Equal(t, []string{"MEMORY.md"}, runs[0].Identifiers)
}

func TestSessionContext(t *testing.T) {
	projectDir, memoryFile := testProject(t)
	p := New(testConfig(memoryFile), projectDir, nil, nil)

	out := p.SessionContext(context.Background())
	assert.Contains(t, out, "## Project Context")
	assert.Contains(t, out, "### README.md")
	assert.Contains(t, out, "### Memory: MEMORY.md")
	assert.Contains(t, out, "chokes on empty input")
}

func TestGatherSkipsRankerWithoutTask(t *testing.T) {
	projectDir, memoryFile := testProject(t)
	p := New(testConfig(memoryFile), projectDir, nil, nil)

	withTask := p.Gather(context.Background(), "parser")
	withoutTask := p.Gather(context.Background(), "")
	assert.Greater(t, len(withTask.Candidates), len(withoutTask.Candidates),
		"task keywords pull in matching code files")
}
