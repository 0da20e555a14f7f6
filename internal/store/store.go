// Package store persists a record of each priming run so past selections
// can be inspected: what was gathered, what survived the budget, and how
// long the run took.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"contextprime/internal/logging"
)

// Run is one recorded priming run.
type Run struct {
	ID             string
	Task           string
	ProjectDir     string
	StartedAt      time.Time
	Duration       time.Duration
	Gathered       int      // Candidates in the pool
	Selected       int      // Candidates surviving allocation
	BudgetTokens   int      // Budget the allocator ran with
	SelectedTokens int      // Size estimate sum of the selection
	Identifiers    []string // Selected candidate identifiers, relevance order
}

// Store wraps the SQLite run-history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run store schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		project_dir TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		gathered INTEGER NOT NULL,
		selected INTEGER NOT NULL,
		budget_tokens INTEGER NOT NULL,
		selected_tokens INTEGER NOT NULL,
		identifiers_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts a run, assigning an ID when missing, and returns the ID.
func (s *Store) Record(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	identifiers, err := json.Marshal(run.Identifiers)
	if err != nil {
		return "", fmt.Errorf("encoding identifiers: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, task, project_dir, started_at, duration_ms,
			gathered, selected, budget_tokens, selected_tokens, identifiers_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, run.ProjectDir, run.StartedAt.Format(time.RFC3339Nano),
		run.Duration.Milliseconds(), run.Gathered, run.Selected,
		run.BudgetTokens, run.SelectedTokens, string(identifiers))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}

	logging.Get(logging.CategoryStore).Debugw("run recorded", "id", run.ID, "selected", run.Selected)
	return run.ID, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, task, project_dir, started_at, duration_ms,
			gathered, selected, budget_tokens, selected_tokens, identifiers_json
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
			idsJSON    sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Task, &r.ProjectDir, &startedAt, &durationMS,
			&r.Gathered, &r.Selected, &r.BudgetTokens, &r.SelectedTokens, &idsJSON); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = ts
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if idsJSON.Valid && idsJSON.String != "" {
			_ = json.Unmarshal([]byte(idsJSON.String), &r.Identifiers)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
