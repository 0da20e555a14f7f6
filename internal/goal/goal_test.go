package goal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"contextprime/internal/judge"
)

func TestParseWellFormed(t *testing.T) {
	response := "Sure, here's my analysis:\n```json\n" + `{
		"immediate": "Fix the auth middleware bug",
		"midterm": "Stabilize the login flow",
		"final": "Ship v2 authentication",
		"reasoning": "Recent commits focus on login",
		"confidence": "high"
	}` + "\n```"

	h := Parse(response, "fix auth")
	assert.Equal(t, "Fix the auth middleware bug", h.Immediate)
	assert.Equal(t, "Stabilize the login flow", h.Midterm)
	assert.Equal(t, "Ship v2 authentication", h.Final)
	assert.Equal(t, "high", h.Confidence)
}

func TestParseFallsBackToTask(t *testing.T) {
	for _, response := range []string{"", "no json here", "{unbalanced"} {
		h := Parse(response, "add pagination")
		assert.Equal(t, "add pagination", h.Immediate, "response %q", response)
		assert.Equal(t, "low", h.Confidence)
		assert.Empty(t, h.Midterm)
		assert.Empty(t, h.Final)
	}
}

func TestParseBracesInsideStrings(t *testing.T) {
	response := `{"immediate": "handle {braces} in code", "confidence": "medium"}`
	h := Parse(response, "task")
	assert.Equal(t, "handle {braces} in code", h.Immediate)
	assert.Equal(t, "medium", h.Confidence)
}

func TestInferJudgeError(t *testing.T) {
	j := judge.Func(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("unavailable")
	})
	h := Infer(context.Background(), j, "refactor the store", "context")
	assert.Equal(t, "refactor the store", h.Immediate)
	assert.Equal(t, "low", h.Confidence)
}
