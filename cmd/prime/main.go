package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"contextprime/internal/config"
	"contextprime/internal/judge"
	"contextprime/internal/logging"
	"contextprime/internal/pipeline"
	"contextprime/internal/source"
	"contextprime/internal/store"
)

var (
	// Global flags
	verbose    bool
	projectDir string
	configPath string

	// Run flags
	threshold    float64
	budgetTokens int
	platform     string
	apiKey       string
	model        string
	outputFormat string
	noJudge      bool
	noHistory    bool

	// History flags
	historyLimit int

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "prime",
	Short: "prime - context priming for coding agents",
	Long: `prime gathers candidate context from a project (memories, key files,
git history, task-matched code), has a judge score each candidate for
relevance to the task, and assembles the survivors of a token budget
into a single primed-context document on stdout.

Without an API key the judge is skipped and scoring fails closed, which
is useful for inspecting what would be gathered.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var runCmd = &cobra.Command{
	Use:   "run [task description]",
	Short: "Run the full priming pipeline for a task",
	Long: `Gathers sources, scores them against the task, selects within the
token budget, infers the outcome hierarchy, and prints the assembled
context document.

Examples:
  prime run "fix the auth token refresh bug"
  prime run --platform gemini_cli --threshold 0.4 "add retry logic"
  prime run --format json "migrate the user store"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrime,
}

var gatherCmd = &cobra.Command{
	Use:   "gather [task description]",
	Short: "Gather and list candidate sources without judging",
	Long: `Collects the candidate pool and prints what would be sent to the
judge: category, identifier, and size estimate per candidate. The task
is optional; with one, keyword-matched code files are included.`,
	RunE: runGather,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print task-free session-start context",
	Long: `Emits a compact orientation block (project summaries and memories)
for injection at agent session start. No judge calls are made.`,
	RunE: runSession,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent priming runs",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "Project directory")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")

	runCmd.Flags().Float64VarP(&threshold, "threshold", "t", -1, "Minimum relevance score to include (0-1)")
	runCmd.Flags().IntVarP(&budgetTokens, "budget", "b", 0, "Token budget (default: derived from platform)")
	runCmd.Flags().StringVar(&platform, "platform", "", "Target platform (claude_code, claude_api, opencode, gemini_cli, codex_cli)")
	runCmd.Flags().StringVar(&apiKey, "api-key", "", "Judge API key (or set GEMINI_API_KEY env)")
	runCmd.Flags().StringVar(&model, "model", "", "Judge model name")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	runCmd.Flags().BoolVar(&noJudge, "no-judge", false, "Skip judge calls; scoring fails closed")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Runs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(gatherCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(historyCmd)
}

// applyFlagOverrides layers explicitly set flags over the loaded config.
func applyFlagOverrides() {
	if threshold >= 0 {
		cfg.Selection.Threshold = threshold
	}
	if budgetTokens > 0 {
		cfg.Selection.BudgetTokens = budgetTokens
	}
	if platform != "" {
		cfg.Selection.Platform = platform
	}
	if apiKey != "" {
		cfg.Judge.APIKey = apiKey
	}
	if model != "" {
		cfg.Judge.Model = model
	}
}

// buildJudge returns nil (not an error) when no key is configured, so the
// pipeline can still run in gather-and-fail-closed mode.
func buildJudge(ctx context.Context) judge.Judge {
	if noJudge || cfg.Judge.APIKey == "" {
		return nil
	}
	j, err := judge.NewGemini(ctx, judge.GeminiConfig{
		APIKey:  cfg.Judge.APIKey,
		Model:   cfg.Judge.Model,
		Timeout: cfg.JudgeTimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: judge unavailable: %v\n", err)
		return nil
	}
	return j
}

// openHistory returns nil when history is disabled or the store cannot
// open; a broken history database should not block priming.
func openHistory() *store.Store {
	if noHistory {
		return nil
	}
	path := cfg.Store.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".contextprime", "runs.db")
	}
	s, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
		return nil
	}
	return s
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPrime(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	task := strings.Join(args, " ")

	j := buildJudge(ctx)
	if j == nil && !noJudge {
		fmt.Fprintln(os.Stderr, "warning: no API key configured, scoring will fail closed")
	}

	history := openHistory()
	if history != nil {
		defer history.Close()
	}

	result, err := pipeline.New(cfg, projectDir, j, history).Prime(ctx, task)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result, task)
	}

	fmt.Println(result.Document)
	fmt.Fprintf(os.Stderr, "primed %d/%d sources (%d tokens) in %s\n",
		len(result.Selected), len(result.Pool.Candidates),
		result.SelectedTokens(), result.Elapsed.Round(time.Millisecond))
	return nil
}

func printJSON(result *pipeline.Result, task string) error {
	type selectedSource struct {
		Category   string  `json:"category"`
		Identifier string  `json:"identifier"`
		Relevance  float64 `json:"relevance"`
		Rationale  string  `json:"rationale,omitempty"`
		Tokens     int     `json:"tokens"`
	}

	out := struct {
		Task      string           `json:"task"`
		Hierarchy any              `json:"hierarchy"`
		Selected  []selectedSource `json:"selected"`
		Document  string           `json:"document"`
		Gathered  int              `json:"gathered"`
		Tokens    int              `json:"tokens"`
		ElapsedMS int64            `json:"elapsed_ms"`
		RunID     string           `json:"run_id,omitempty"`
	}{
		Task:      task,
		Hierarchy: result.Hierarchy,
		Document:  result.Document,
		Gathered:  len(result.Pool.Candidates),
		Tokens:    result.SelectedTokens(),
		ElapsedMS: result.Elapsed.Milliseconds(),
		RunID:     result.RunID,
	}
	for _, s := range result.Selected {
		out.Selected = append(out.Selected, selectedSource{
			Category:   string(s.Candidate.Category),
			Identifier: s.Candidate.Identifier,
			Relevance:  s.Relevance,
			Rationale:  s.Rationale,
			Tokens:     s.Candidate.SizeEstimate,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runGather(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	task := strings.Join(args, " ")
	pool := pipeline.New(cfg, projectDir, nil, nil).Gather(ctx, task)

	fmt.Printf("%-18s %-40s %8s\n", "CATEGORY", "IDENTIFIER", "TOKENS")
	for _, c := range pool.Candidates {
		id := c.Identifier
		if len(id) > 40 {
			id = source.Clip(id, 37) + "..."
		}
		fmt.Printf("%-18s %-40s %8d\n", c.Category, id, c.SizeEstimate)
	}
	fmt.Printf("\n%d candidates, ~%d tokens total\n", len(pool.Candidates), pool.TotalTokens())
	return nil
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Print(pipeline.New(cfg, projectDir, nil, nil).SessionContext(ctx))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	history := openHistory()
	if history == nil {
		return fmt.Errorf("run history is not available")
	}
	defer history.Close()

	runs, err := history.List(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range runs {
		task := r.Task
		if len(task) > 60 {
			task = source.Clip(task, 57) + "..."
		}
		fmt.Printf("%s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), task)
		fmt.Printf("    %d/%d sources, %d/%d tokens, %s\n",
			r.Selected, r.Gathered, r.SelectedTokens, r.BudgetTokens,
			r.Duration.Round(time.Millisecond))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
