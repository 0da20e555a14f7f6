package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Record(Run{
		Task:           "fix auth bug",
		ProjectDir:     "/work/app",
		Duration:       1500 * time.Millisecond,
		Gathered:       12,
		Selected:       5,
		BudgetTokens:   30_000,
		SelectedTokens: 8_000,
		Identifiers:    []string{"auth.go", "MEMORY.md"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "an ID is assigned when missing")

	runs, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "fix auth bug", got.Task)
	assert.Equal(t, 12, got.Gathered)
	assert.Equal(t, 5, got.Selected)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, []string{"auth.go", "MEMORY.md"}, got.Identifiers)
	assert.False(t, got.StartedAt.IsZero())
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, task := range []string{"oldest", "middle", "newest"} {
		_, err := s.Record(Run{
			Task:      task,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	runs, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newest", runs[0].Task)
	assert.Equal(t, "middle", runs[1].Task)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}
