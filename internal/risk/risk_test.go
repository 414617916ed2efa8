package risk

import (
	"os"
	"path/filepath"
	"testing"

	"readgate/internal/slogutil"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newAssessor(t *testing.T, root string) *Assessor {
	t.Helper()
	return NewAssessor(root, slogutil.NewDiscardLogger())
}

func TestHardcodedAPIKeyScoresAtLeastLow(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.ts", "const apiKey = \"sk-1234567890abcdef\"\n")

	a, err := newAssessor(t, root).Assess("config.ts")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Categories[CategorySecurity] < 20 {
		t.Errorf("security score = %d, want >= 20", a.Categories[CategorySecurity])
	}
	if !a.Level.AtLeast(LevelLow) {
		t.Errorf("level = %s, want at least low", a.Level)
	}
	if len(a.Matches) == 0 {
		t.Fatal("expected a recorded match")
	}
	if a.Matches[0].Pattern != "hardcoded_api_key" {
		t.Errorf("pattern = %s, want hardcoded_api_key", a.Matches[0].Pattern)
	}
	if a.Matches[0].Line != 1 {
		t.Errorf("line = %d, want 1", a.Matches[0].Line)
	}
}

func TestAssessCanonicalizesAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/auth.ts", "const apiKey = \"sk-1234567890abcdef\"\n")

	a, err := newAssessor(t, root).Assess(filepath.Join(root, "src", "auth.ts"))
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.FilePath != "src/auth.ts" {
		t.Errorf("filePath = %s, want repo-relative src/auth.ts", a.FilePath)
	}
	if a.Categories[CategorySecurity] == 0 {
		t.Error("expected the security patterns to score")
	}
}

func TestCleanFileScoresMinimal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "math.ts", "export function add(a: number, b: number) {\n  return a + b\n}\n")

	a, err := newAssessor(t, root).Assess("math.ts")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Score != 0 || a.Level != LevelMinimal {
		t.Errorf("score = %d level = %s, want 0/minimal", a.Score, a.Level)
	}
}

func TestCategoryScoreIsCapped(t *testing.T) {
	root := t.TempDir()
	content := ""
	for i := 0; i < 5; i++ {
		content += "const apiKey = \"value\"\nconst password = \"hunter22\"\n"
	}
	writeFile(t, root, "creds.ts", content)

	a, err := newAssessor(t, root).Assess("creds.ts")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Categories[CategorySecurity] != CategoryCap {
		t.Errorf("security score = %d, want capped at %d", a.Categories[CategorySecurity], CategoryCap)
	}
	if len(a.Matches) != 10 {
		t.Errorf("matches = %d, want 10 (one per hit, cap applies to score only)", len(a.Matches))
	}
}

func TestMultipleCategoriesSum(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "worker.py", ""+
		"import subprocess\n"+
		"password = \"topsecret1\"\n"+
		"subprocess.run([\"ls\"])\n"+
		"while True:\n"+
		"    os.environ[\"MODE\"]\n"+
		"shutil.rmtree(tmp)\n")

	a, err := newAssessor(t, root).Assess("worker.py")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	for _, cat := range []Category{CategorySecurity, CategoryPerformance, CategoryExternal, CategoryDataHandling} {
		if a.Categories[cat] == 0 {
			t.Errorf("expected a nonzero %s score", cat)
		}
	}
	want := 0
	for _, cat := range Categories {
		want += a.Categories[cat]
	}
	if a.Score != want {
		t.Errorf("score = %d, want sum of categories %d", a.Score, want)
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelMinimal},
		{19, LevelMinimal},
		{20, LevelLow},
		{40, LevelMedium},
		{60, LevelHigh},
		{80, LevelCritical},
		{125, LevelCritical},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.score); got != tc.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestExcerptTruncated(t *testing.T) {
	root := t.TempDir()
	long := "const apiKey = \""
	for len(long) < 300 {
		long += "x"
	}
	long += "\"\n"
	writeFile(t, root, "long.ts", long)

	a, err := newAssessor(t, root).Assess("long.ts")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if len(a.Matches) == 0 {
		t.Fatal("expected a match")
	}
	for _, m := range a.Matches {
		if len(m.Excerpt) > maxExcerptLen+3 {
			t.Errorf("excerpt not truncated: %d chars", len(m.Excerpt))
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "patterns.yaml", ""+
		"patterns:\n"+
		"  - name: internal_todo_hack\n"+
		"    category: complexity\n"+
		"    weight: 10\n"+
		"    regex: \"HACK:\"\n"+
		"    description: marked hack\n"+
		"disable:\n"+
		"  - hardcoded_password\n")
	writeFile(t, root, "code.ts", "// HACK: temporary\nconst password = \"hunter22\"\n")

	as := newAssessor(t, root)
	if err := as.LoadOverrides(filepath.Join(root, "patterns.yaml")); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	a, err := as.Assess("code.ts")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if a.Categories[CategoryComplexity] != 10 {
		t.Errorf("complexity = %d, want 10 from custom pattern", a.Categories[CategoryComplexity])
	}
	if a.Categories[CategorySecurity] != 0 {
		t.Errorf("security = %d, want 0 with hardcoded_password disabled", a.Categories[CategorySecurity])
	}
}

func TestLoadOverridesRejectsBadRegex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bad.yaml", ""+
		"patterns:\n"+
		"  - name: broken\n"+
		"    category: security\n"+
		"    weight: 5\n"+
		"    regex: \"([unclosed\"\n")

	as := newAssessor(t, root)
	if err := as.LoadOverrides(filepath.Join(root, "bad.yaml")); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("medium"); err != nil {
		t.Errorf("ParseLevel(medium): %v", err)
	}
	if _, err := ParseLevel("extreme"); err == nil {
		t.Error("expected error for unknown level")
	}
}
