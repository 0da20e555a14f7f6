package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"contextprime/internal/config"
)

func TestApplyFlagOverrides(t *testing.T) {
	defer func() {
		threshold, budgetTokens, platform, apiKey, model = -1, 0, "", "", ""
		cfg = nil
	}()

	cfg = config.Default()
	threshold = 0.7
	budgetTokens = 12_000
	platform = "gemini_cli"
	apiKey = "flag-key"
	model = "gemini-2.5-pro"

	applyFlagOverrides()

	assert.Equal(t, 0.7, cfg.Selection.Threshold)
	assert.Equal(t, 12_000, cfg.Selection.BudgetTokens)
	assert.Equal(t, "gemini_cli", cfg.Selection.Platform)
	assert.Equal(t, "flag-key", cfg.Judge.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Judge.Model)
}

func TestApplyFlagOverridesLeavesConfigAlone(t *testing.T) {
	defer func() { cfg = nil }()

	cfg = config.Default()
	cfg.Selection.Threshold = 0.4
	threshold, budgetTokens, platform, apiKey, model = -1, 0, "", "", ""

	applyFlagOverrides()

	assert.Equal(t, 0.4, cfg.Selection.Threshold)
	assert.Equal(t, "claude_code", cfg.Selection.Platform)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "gather", "session", "history"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
