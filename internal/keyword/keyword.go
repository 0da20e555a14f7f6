// Package keyword turns a free-text task description into a small ordered
// set of search terms. Pure heuristics, no model call: tokenize, lowercase,
// drop stop words, deduplicate, cap. The ranker greps the codebase with
// whatever survives.
package keyword

import (
	"regexp"
	"strings"
)

// DefaultCap bounds how many keywords a task yields, keeping the
// downstream content searches fast.
const DefaultCap = 10

// tokenPattern matches identifier-like words: must start with a letter or
// underscore, then letters, digits, or underscores.
var tokenPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// stopWords combines common English function words with the imperative
// verbs that open most task descriptions ("fix the...", "add a...").
// Neither carries discriminative signal for file search.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "shall": true, "can": true, "need": true,
	"must": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "he": true, "she": true, "it": true,
	"they": true, "them": true, "this": true, "that": true,
	"these": true, "those": true,
	"and": true, "but": true, "or": true, "nor": true, "not": true,
	"so": true, "yet": true, "both": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true,
	"up": true, "out": true, "if": true, "then": true, "than": true,
	"too": true, "very": true,
	"just": true, "about": true, "also": true, "all": true, "any": true,
	"each": true, "every": true,
	"how": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "why": true,
	// Imperative verbs common in task descriptions
	"add": true, "fix": true, "update": true, "change": true,
	"modify": true, "create": true, "make": true, "implement": true,
	"write": true, "build": true, "improve": true, "refactor": true,
	"remove": true, "delete": true, "get": true, "set": true,
	"use": true, "new": true, "old": true,
}

// Extract returns up to DefaultCap keywords from a task description,
// in order of first appearance. An empty result means no heuristic
// ranking is possible; callers treat that as "no signal", not an error.
func Extract(task string) []string {
	return ExtractN(task, DefaultCap)
}

// ExtractN is Extract with an explicit cap. A non-positive cap falls
// back to DefaultCap.
func ExtractN(task string, limit int) []string {
	if limit <= 0 {
		limit = DefaultCap
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range tokenPattern.FindAllString(task, -1) {
		lower := strings.ToLower(word)
		if len(lower) < 2 || stopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, lower)
		if len(keywords) == limit {
			break
		}
	}
	return keywords
}
