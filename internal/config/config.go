// Package config holds all contextprime configuration. Values load from
// an optional YAML file, then environment overrides, and every knob has a
// default so the tool works with no config at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Judge     JudgeConfig     `yaml:"judge"`
	Gather    GatherConfig    `yaml:"gather"`
	Selection SelectionConfig `yaml:"selection"`
	Store     StoreConfig     `yaml:"store"`
}

// JudgeConfig configures the external judge.
type JudgeConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"` // Duration string, e.g. "60s"
}

// GatherConfig bounds source gathering and heuristic ranking.
type GatherConfig struct {
	KeywordCap    int      `yaml:"keyword_cap"`
	MaxFiles      int      `yaml:"max_files"`      // Ranked files to read
	MaxFileBytes  int64    `yaml:"max_file_bytes"` // Per-file read limit
	MaxDepth      int      `yaml:"max_depth"`      // Directory tree depth
	CommitCount   int      `yaml:"commit_count"`   // Commits in history summary
	RankerCommits int      `yaml:"ranker_commits"` // Commits for the recency signal
	MemoryPaths   []string `yaml:"memory_paths"`
}

// SelectionConfig configures scoring thresholds and the token budget.
type SelectionConfig struct {
	Threshold        float64 `yaml:"threshold"`
	Platform         string  `yaml:"platform"`
	BudgetFraction   float64 `yaml:"budget_fraction"`
	BudgetTokens     int     `yaml:"budget_tokens"` // Explicit override; 0 derives from platform
	ReservedFraction float64 `yaml:"reserved_fraction"`
}

// StoreConfig configures run-history persistence.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables history
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Judge: JudgeConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "60s",
		},
		Gather: GatherConfig{
			KeywordCap:    10,
			MaxFiles:      50,
			MaxFileBytes:  100_000,
			MaxDepth:      4,
			CommitCount:   20,
			RankerCommits: 10,
		},
		Selection: SelectionConfig{
			Threshold:        0.5,
			Platform:         "claude_code",
			BudgetFraction:   0.25,
			ReservedFraction: 0.15,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies
// environment overrides. An empty path or a missing file yields defaults
// plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides pulls API keys from the environment. GEMINI_API_KEY
// takes precedence over GOOGLE_API_KEY; neither overrides an explicit
// config-file key.
func (c *Config) applyEnvOverrides() {
	if c.Judge.APIKey != "" {
		return
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Judge.APIKey = key
		return
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Judge.APIKey = key
	}
}

// JudgeTimeout parses the judge timeout, falling back to a minute on a
// bad duration string.
func (c *Config) JudgeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Judge.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
