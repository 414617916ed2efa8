package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"src/parser.ts", "src/parser.ts"},
		{"./src/parser.ts", "src/parser.ts"},
		{"src//parser.ts", "src/parser.ts"},
		{"src/../src/parser.ts", "src/parser.ts"},
		{`src\parser.ts`, `src\parser.ts`}, // backslash is a valid rune on unix
	}

	for _, tc := range cases {
		got := Normalize(tc.input)
		if got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestMatch_Exact(t *testing.T) {
	if !Match("src/parser.ts", "src/parser.ts") {
		t.Error("Expected exact match")
	}
	if !Match("./src/parser.ts", "src/parser.ts") {
		t.Error("Expected match after normalization")
	}
}

func TestMatch_SuffixAtBoundary(t *testing.T) {
	if !Match("src/parser.ts", "/repo/src/parser.ts") {
		t.Error("Expected relative path to match absolute path with same suffix")
	}
	if !Match("/repo/src/parser.ts", "src/parser.ts") {
		t.Error("Expected match to be symmetric")
	}
	if !Match("parser.ts", "src/parser.ts") {
		t.Error("Expected basename to match at boundary")
	}
}

func TestMatch_RejectsOvermatch(t *testing.T) {
	// The substring policy this replaces would accept these.
	if Match("a/b.ts", "a/bb.ts") {
		t.Error("b.ts must not match bb.ts")
	}
	if Match("parser.ts", "myparser.ts") {
		t.Error("parser.ts must not match myparser.ts")
	}
	if Match("src/parse", "src/parser.ts") {
		t.Error("prefix fragment must not match")
	}
}

func TestMatch_Empty(t *testing.T) {
	if Match("", "src/parser.ts") {
		t.Error("Empty path must not match")
	}
	if Match("", "") {
		t.Error("Two empty paths must not match")
	}
}

func TestMatchAny(t *testing.T) {
	candidates := []string{"src/parser.ts", "src/lexer.ts"}

	if !MatchAny("/repo/src/lexer.ts", candidates) {
		t.Error("Expected match against second candidate")
	}
	if MatchAny("src/other.ts", candidates) {
		t.Error("Expected no match")
	}
	if MatchAny("src/parser.ts", nil) {
		t.Error("Expected no match against empty candidates")
	}
}

func TestCanonicalize(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	file := filepath.Join(sub, "main.go")
	if err := os.WriteFile(file, []byte("package main\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	got, err := Canonicalize(file, root)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if got != "src/main.go" {
		t.Errorf("Expected 'src/main.go', got %q", got)
	}

	// Relative input resolves against the root
	got, err = Canonicalize("src/main.go", root)
	if err != nil {
		t.Fatalf("Canonicalize failed for relative path: %v", err)
	}
	if got != "src/main.go" {
		t.Errorf("Expected 'src/main.go', got %q", got)
	}

	// Missing files canonicalize without error
	got, err = Canonicalize("src/new.go", root)
	if err != nil {
		t.Fatalf("Canonicalize failed for missing file: %v", err)
	}
	if got != "src/new.go" {
		t.Errorf("Expected 'src/new.go', got %q", got)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRepo(filepath.Join(root, "src", "main.go"), root) {
		t.Error("Expected path under root to be within repo")
	}
	if IsWithinRepo(filepath.Join(root, "..", "escape.go"), root) {
		t.Error("Expected path outside root to be rejected")
	}
}

func TestBasename(t *testing.T) {
	if got := Basename("src/parser.ts"); got != "parser.ts" {
		t.Errorf("Expected 'parser.ts', got %q", got)
	}
	if got := Basename("parser.ts"); got != "parser.ts" {
		t.Errorf("Expected 'parser.ts', got %q", got)
	}
}
