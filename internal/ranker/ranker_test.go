package ranker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"contextprime/internal/fsview"
	"contextprime/internal/gitview"
	"contextprime/internal/source"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestRanker(t *testing.T, root string) *Ranker {
	t.Helper()
	return New(fsview.New(root), gitview.New(root), DefaultConfig())
}

func TestMergeSumsAcrossSignals(t *testing.T) {
	a := []Increment{{Path: "auth.go", Weight: 1}, {Path: "util.go", Weight: 1}}
	b := []Increment{{Path: "auth.go", Weight: 3}}
	c := []Increment{{Path: "auth.go", Weight: 0.5}}

	weights := Merge(a, b, c)

	if weights["auth.go"] != 4.5 {
		t.Errorf("expected summed weight 4.5, got %f", weights["auth.go"])
	}
	if weights["util.go"] != 1 {
		t.Errorf("expected 1, got %f", weights["util.go"])
	}
}

func TestMergeEmpty(t *testing.T) {
	weights := Merge(nil, []Increment{})
	if len(weights) != 0 {
		t.Errorf("expected empty map, got %v", weights)
	}
}

func TestNameMatchOutranksSingleContentMatch(t *testing.T) {
	root := t.TempDir()
	// auth_handler.py never mentions "auth" in its body
	writeFile(t, root, "auth_handler.py", "def handle(request):\n    return process(request)\n")
	// utils.py mentions it once
	writeFile(t, root, "utils.py", "# helper for the auth flow\n")

	r := newTestRanker(t, root)
	weights := r.Rank(context.Background(), []string{"auth"})

	if weights["auth_handler.py"] <= weights["utils.py"] {
		t.Errorf("name match (%f) must outrank single content match (%f)",
			weights["auth_handler.py"], weights["utils.py"])
	}
	if weights["utils.py"] != ContentMatchWeight {
		t.Errorf("expected content weight %f, got %f", ContentMatchWeight, weights["utils.py"])
	}
	if weights["auth_handler.py"] != NameMatchWeight {
		t.Errorf("expected name weight %f, got %f", NameMatchWeight, weights["auth_handler.py"])
	}
}

func TestContentMatchIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "server.go", "func StartPagination() {}\n")

	r := newTestRanker(t, root)
	weights := r.Rank(context.Background(), []string{"pagination"})

	if weights["server.go"] != ContentMatchWeight {
		t.Errorf("expected case-insensitive content hit, got %v", weights)
	}
}

func TestContentSignalSkipsNonCodeExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "pagination pagination pagination")
	writeFile(t, root, "api.go", "// pagination endpoint\n")

	r := newTestRanker(t, root)
	weights := r.Rank(context.Background(), []string{"pagination"})

	if _, ok := weights["notes.txt"]; ok {
		t.Error("non-allow-listed extension should not receive content weight")
	}
	if weights["api.go"] != ContentMatchWeight {
		t.Errorf("expected hit on api.go, got %v", weights)
	}
}

func TestSortedPathsDeterministic(t *testing.T) {
	weights := map[string]float64{
		"b.go": 2.0,
		"a.go": 2.0,
		"c.go": 5.0,
	}
	got := SortedPaths(weights)
	want := []string{"c.go", "a.go", "b.go"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestReadTopSkipsDoNotConsumeSlots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good1.go", "package a\n")
	writeFile(t, root, "good2.go", "package b\n")
	writeFile(t, root, "huge.go", strings.Repeat("x", 200))

	cfg := DefaultConfig()
	cfg.MaxFiles = 2
	r := New(fsview.NewWithLimit(root, 100), gitview.New(root), cfg)

	// huge.go ranks first but fails the size constraint; both good files
	// must still be read because the filter runs against the sorted list.
	weights := map[string]float64{
		"huge.go":  10.0,
		"good1.go": 2.0,
		"good2.go": 1.0,
	}

	got := r.ReadTop(weights)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Identifier != "good1.go" || got[1].Identifier != "good2.go" {
		t.Errorf("unexpected selection: %s, %s", got[0].Identifier, got[1].Identifier)
	}
	for _, c := range got {
		if c.Category != source.CategorySourceFile {
			t.Errorf("expected source-file category, got %s", c.Category)
		}
	}
}

func TestFindRelevantNoKeywords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	r := newTestRanker(t, root)
	// Task made entirely of stop words yields no keywords, hence no ranking.
	got := r.FindRelevant(context.Background(), "fix the it")
	if got != nil {
		t.Errorf("expected nil candidates without keywords, got %d", len(got))
	}
}

func TestFindRelevantHonorsKeywordCap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alpha.go", "package alpha\n")
	writeFile(t, root, "beta.go", "package beta\n")

	cfg := DefaultConfig()
	cfg.KeywordCap = 1
	r := New(fsview.New(root), gitview.New(root), cfg)

	// Only the first keyword survives the cap, so beta.go gets no signal.
	got := r.FindRelevant(context.Background(), "alpha beta")
	if len(got) != 1 || got[0].Identifier != "alpha.go" {
		ids := make([]string, len(got))
		for i, c := range got {
			ids[i] = c.Identifier
		}
		t.Errorf("expected only alpha.go under cap 1, got %v", ids)
	}
}

func TestFindRelevantEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "billing/invoice.go", "package billing\n\nfunc RenderInvoice() {}\n")
	writeFile(t, root, "README.md", "project overview\n")

	r := newTestRanker(t, root)
	got := r.FindRelevant(context.Background(), "Fix invoice rendering")

	if len(got) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if got[0].Identifier != "billing/invoice.go" {
		t.Errorf("expected invoice.go ranked first, got %s", got[0].Identifier)
	}
}
