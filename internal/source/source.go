// Package source defines the unit of retrievable project material: a
// Candidate with a category, an identifier, and a raw text payload.
// Candidates are created once per gathering run and are immutable afterward;
// every later pipeline stage works on derived views.
package source

import "unicode/utf8"

// Category classifies where a candidate came from.
type Category string

const (
	CategoryMemory     Category = "memory"           // Accumulated lessons and notes
	CategorySummary    Category = "codebase-summary" // README, manifests, directory structure
	CategorySourceFile Category = "source-file"      // Actual code file content
	CategoryVCS        Category = "version-control"  // Git history and working-tree state
	CategoryConfig     Category = "project-config"   // Priorities, roadmaps, contribution rules
)

// charsPerToken is the calibration factor for token estimation,
// approximately matching Claude's tokenizer.
const charsPerToken = 4

// Candidate is a single gathered unit of text material.
type Candidate struct {
	Category   Category
	Identifier string // Human-readable name, unique within a category per run
	Content    string

	// SizeEstimate is a monotonic proxy for token cost, derived from
	// Content at construction. Never recomputed afterward.
	SizeEstimate int
}

// New creates a Candidate with a derived size estimate.
func New(cat Category, identifier, content string) Candidate {
	return Candidate{
		Category:     cat,
		Identifier:   identifier,
		Content:      content,
		SizeEstimate: EstimateTokens(content),
	}
}

// NewWithSize creates a Candidate with an explicit size estimate override.
// Negative overrides are treated as zero.
func NewWithSize(cat Category, identifier, content string, size int) Candidate {
	if size < 0 {
		size = 0
	}
	return Candidate{
		Category:     cat,
		Identifier:   identifier,
		Content:      content,
		SizeEstimate: size,
	}
}

// EstimateTokens estimates the token cost of a string. It is a pure
// function of its input: the same content always yields the same estimate.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return utf8.RuneCountInString(content) / charsPerToken
}

// Clip returns at most max bytes of s, backing up so the cut never
// splits a multi-byte UTF-8 rune. Prompt previews go through this so the
// judge never sees invalid UTF-8.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Pool is an ordered collection of candidates from one gathering run.
type Pool struct {
	Candidates []Candidate
	ProjectDir string
}

// TotalTokens sums the size estimates of every candidate in the pool.
func (p *Pool) TotalTokens() int {
	total := 0
	for _, c := range p.Candidates {
		total += c.SizeEstimate
	}
	return total
}

// ByCategory returns the candidates belonging to one category,
// preserving gathering order.
func (p *Pool) ByCategory(cat Category) []Candidate {
	var out []Candidate
	for _, c := range p.Candidates {
		if c.Category == cat {
			out = append(out, c)
		}
	}
	return out
}
