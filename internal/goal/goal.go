// Package goal infers the outcome hierarchy behind a task: the immediate
// work, the mid-term goal it serves, and the final outcome beyond that.
// One judge call; parse failure degrades to the literal task at low
// confidence rather than fabricating goals.
package goal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"contextprime/internal/judge"
	"contextprime/internal/logging"
	"contextprime/internal/source"
)

// contextChars bounds how much project context the hierarchy prompt carries.
const contextChars = 3000

// Hierarchy holds the three inferred outcome levels. Midterm and Final
// are empty when the judge could not infer them honestly.
type Hierarchy struct {
	Immediate  string `json:"immediate"`
	Midterm    string `json:"midterm"`
	Final      string `json:"final"`
	Reasoning  string `json:"reasoning"`
	Confidence string `json:"confidence"` // high, medium, low
}

// BuildPrompt renders the hierarchy inference request.
func BuildPrompt(task, projectContext string) string {
	if len(projectContext) > contextChars {
		projectContext = source.Clip(projectContext, contextChars) + "\n... [truncated]"
	}

	return fmt.Sprintf(`Analyze this task and infer the outcome hierarchy.

## Task
%s

## Project Context
%s

## Instructions
Infer three levels of outcomes. The user stated the immediate task, but
there's usually a mid-term goal it serves and a final outcome beyond that.
If you can't confidently infer higher levels from the context, say so
honestly rather than fabricating goals.

Return as JSON:
{
  "immediate": "The specific task to complete right now",
  "midterm": "The milestone this task contributes to (or null if unclear)",
  "final": "The ultimate outcome this work serves (or null if unclear)",
  "reasoning": "Brief explanation of how you inferred the hierarchy",
  "confidence": "high|medium|low"
}

Return ONLY the JSON, no other text.`, task, projectContext)
}

// Parse extracts a Hierarchy from a judge response. Any parse failure
// yields the literal task as the immediate outcome at low confidence.
func Parse(response, task string) Hierarchy {
	fallback := Hierarchy{Immediate: task, Confidence: "low"}

	raw := extractJSONObject(response)
	if raw == "" {
		return fallback
	}

	var h Hierarchy
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		logging.Get(logging.CategoryGoal).Debugw("hierarchy parse failed", "error", err)
		return fallback
	}
	if h.Immediate == "" {
		h.Immediate = task
	}
	if h.Confidence == "" {
		h.Confidence = "low"
	}
	return h
}

// Infer runs the judge call and parses the result. A judge error returns
// the fallback hierarchy, never an error: goal awareness is useful but
// not worth failing the pipeline over.
func Infer(ctx context.Context, j judge.Judge, task, projectContext string) Hierarchy {
	response, err := j.Complete(ctx, BuildPrompt(task, projectContext))
	if err != nil {
		logging.Get(logging.CategoryGoal).Warnw("hierarchy inference failed", "error", err)
		return Hierarchy{Immediate: task, Confidence: "low"}
	}
	return Parse(response, task)
}

// extractJSONObject returns the first balanced JSON object in the text,
// tracking brace depth outside string literals.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
