// Package score turns a judge's free-text response into a structured,
// bounds-checked relevance score for every candidate in the pool. The
// judge may wrap its array in prose or markdown fences, omit candidates,
// or return garbage; parsing degrades but never drops a candidate and
// never raises a malformed response to the caller.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"contextprime/internal/judge"
	"contextprime/internal/logging"
	"contextprime/internal/source"
)

// Fallback scores. An unparsed judge response is evidence of malfunction,
// not evidence of relevance, so the fallback is fail-closed: low enough
// that a threshold filter excludes by default.
const (
	FailClosedScore = 0.2 // Whole response unparsable
	UnscoredScore   = 0.3 // Judge omitted this candidate
	DefaultScore    = 0.5 // Entry present but score field missing
)

// previewChars bounds how much of each candidate the judge sees; enough
// to rate relevance without paying for full content twice.
const previewChars = 1000

// Scored pairs a candidate with its judged relevance.
type Scored struct {
	Candidate source.Candidate
	Relevance float64 // Clamped to [0.0, 1.0]
	Rationale string  // May be empty
}

// BuildPrompt renders the scoring request for the judge: the task plus an
// indexed preview of every candidate.
func BuildPrompt(task string, pool *source.Pool) string {
	var b strings.Builder
	b.WriteString("Score the relevance of each source to the given task.\n\n")
	b.WriteString("## Task\n")
	b.WriteString(task)
	b.WriteString("\n\n## Sources\n")

	for i, c := range pool.Candidates {
		preview := c.Content
		if len(preview) > previewChars {
			preview = source.Clip(preview, previewChars) + "..."
		}
		fmt.Fprintf(&b, "\n### Source %d: [%s] %s\n%s\n", i, c.Category, c.Identifier, preview)
	}

	b.WriteString(`
## Instructions
For each source, return a JSON array of objects:
[
  {"index": 0, "score": 0.85, "reasoning": "Directly relevant because..."},
  ...
]

Score meaning:
- 0.9-1.0: Directly addresses the task (must include)
- 0.7-0.9: Provides important context (should include)
- 0.4-0.7: Tangentially related (include if space permits)
- 0.0-0.4: Not relevant to this task (exclude)

Be aggressive with low scores. Return ONLY the JSON array, no other text.`)

	return b.String()
}

// scoreEntry mirrors one element of the judge's array. Pointer fields
// distinguish absent from zero.
type scoreEntry struct {
	Index     *int     `json:"index"`
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

// Parse maps a judge response onto the pool. The result covers every pool
// member exactly once, in pool order. See package doc for the fallback
// policy.
func Parse(response string, pool *source.Pool) []Scored {
	log := logging.Get(logging.CategoryScore)

	raw := extractJSONArray(response)
	if raw == "" {
		log.Warnw("no JSON array in judge response, failing closed", "response_chars", len(response))
		return fallback(pool, FailClosedScore, "Scoring parse failed, fail-closed")
	}

	var entries []scoreEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Warnw("judge array unparsable, failing closed", "error", err)
		return fallback(pool, FailClosedScore, "Scoring parse failed, fail-closed")
	}

	n := len(pool.Candidates)
	out := make([]Scored, n)
	seen := make(map[int]bool, n)

	for _, e := range entries {
		if e.Index == nil || *e.Index < 0 || *e.Index >= n || seen[*e.Index] {
			// Out-of-range or duplicated indices are ignored without
			// aborting the remaining entries.
			continue
		}
		idx := *e.Index
		seen[idx] = true

		s := DefaultScore
		if e.Score != nil {
			s = clamp(*e.Score)
		}
		out[idx] = Scored{
			Candidate: pool.Candidates[idx],
			Relevance: s,
			Rationale: e.Reasoning,
		}
	}

	for i, c := range pool.Candidates {
		if !seen[i] {
			out[i] = Scored{Candidate: c, Relevance: UnscoredScore, Rationale: "Not scored"}
		}
	}

	return out
}

// Rank scores the pool through the judge and returns the results sorted
// by descending relevance. A judge error is treated like an unparsable
// response: every candidate falls back to the fail-closed score.
func Rank(ctx context.Context, j judge.Judge, task string, pool *source.Pool) []Scored {
	response, err := j.Complete(ctx, BuildPrompt(task, pool))
	if err != nil {
		logging.Get(logging.CategoryScore).Warnw("judge call failed, failing closed", "error", err)
		return SortByRelevance(fallback(pool, FailClosedScore, "Judge unavailable, fail-closed"))
	}
	return SortByRelevance(Parse(response, pool))
}

// FailClosed scores every pool member at the fail-closed score, for
// callers that deliberately run without a judge. No warning is logged;
// this path is expected, not a malfunction.
func FailClosed(pool *source.Pool) []Scored {
	return fallback(pool, FailClosedScore, "Judge unavailable, fail-closed")
}

// SortByRelevance orders scored candidates by descending relevance,
// stable so pool order breaks ties.
func SortByRelevance(scored []Scored) []Scored {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})
	return scored
}

func fallback(pool *source.Pool, relevance float64, rationale string) []Scored {
	out := make([]Scored, len(pool.Candidates))
	for i, c := range pool.Candidates {
		out[i] = Scored{Candidate: c, Relevance: relevance, Rationale: rationale}
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractJSONArray returns the first syntactically balanced JSON array in
// the text, tolerating prose and markdown fences around it. Bracket depth
// is tracked outside string literals only, so brackets inside reasoning
// strings do not end the scan.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
