// Package logging provides category-tagged structured logging for contextprime.
// Each subsystem logs through a named child of one shared zap logger so that
// verbose output can be traced back to the stage that produced it.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one pipeline subsystem.
type Category string

const (
	CategoryGather   Category = "gather"   // Source gathering
	CategoryRanker   Category = "ranker"   // Heuristic file ranking
	CategoryScore    Category = "score"    // Judge scoring and parsing
	CategoryBudget   Category = "budget"   // Budget allocation
	CategoryPipeline Category = "pipeline" // End-to-end orchestration
	CategoryStore    Category = "store"    // Run history persistence
	CategoryJudge    Category = "judge"    // External judge calls
	CategoryGoal     Category = "goal"     // Outcome hierarchy inference
)

var (
	mu   sync.RWMutex
	base *zap.Logger = zap.NewNop()
)

// Init builds the process-wide logger. Verbose enables debug-level output;
// otherwise only warnings and errors are emitted so the primed context on
// stdout stays clean.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	base = logger
	mu.Unlock()
	return nil
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(string(cat)).Sugar()
}

// Sync flushes buffered log entries. Safe to call on exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}
