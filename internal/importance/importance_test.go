package importance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"readgate/internal/slogutil"
	"readgate/internal/state"
)

type fakeGraph struct {
	files     []string
	importers map[string]int
	imports   map[string]int
}

func (g fakeGraph) Files() []string                { return g.files }
func (g fakeGraph) ImportersCount(path string) int { return g.importers[path] }
func (g fakeGraph) ImportsCount(path string) int   { return g.imports[path] }

type fakeChurn map[string]int

func (c fakeChurn) CommitCount(path string) (int, error) { return c[path], nil }

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

func newIndexer(t *testing.T, root string) *Indexer {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	return NewIndexer(root, state.NewStore(root, logger), logger)
}

func TestBuildRanksCentralFilesFirst(t *testing.T) {
	root := t.TempDir()
	hub := "export function hub() {\n" + strings.Repeat("  work()\n", 60) + "}\n"
	writeFile(t, root, "src/hub.ts", hub)
	writeFile(t, root, "src/leaf.ts", "const x = 1\n")

	graph := fakeGraph{
		files:     []string{"src/hub.ts", "src/leaf.ts"},
		importers: map[string]int{"src/hub.ts": 8, "src/leaf.ts": 0},
		imports:   map[string]int{"src/hub.ts": 4, "src/leaf.ts": 1},
	}
	churn := fakeChurn{"src/hub.ts": 25, "src/leaf.ts": 0}

	ix := newIndexer(t, root)
	doc, err := ix.Build(10, graph, churn)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Files))
	}
	if doc.Files[0].FilePath != "src/hub.ts" {
		t.Errorf("expected hub ranked first, got %s", doc.Files[0].FilePath)
	}

	f := doc.Files[0].Factors
	if f.Centrality != 28 {
		t.Errorf("centrality = %d, want 28", f.Centrality)
	}
	if f.Churn != 15 {
		t.Errorf("churn = %d, want 15 (capped)", f.Churn)
	}
	if f.Size != 20 {
		t.Errorf("size = %d, want 20 for a mid-sized file", f.Size)
	}
	if f.Exports != 4 {
		t.Errorf("exports = %d, want 4", f.Exports)
	}
	if f.IsEntry != 0 {
		t.Errorf("isEntry = %d, want 0 for an imported file", f.IsEntry)
	}
}

func TestEntryPointBonus(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cmd/main.ts", "export function main() {}\n")

	graph := fakeGraph{
		files:     []string{"cmd/main.ts"},
		importers: map[string]int{},
		imports:   map[string]int{"cmd/main.ts": 3},
	}

	ix := newIndexer(t, root)
	doc, err := ix.Build(10, graph, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Files[0].Factors.IsEntry != 15 {
		t.Errorf("isEntry = %d, want 15 for file with no importers", doc.Files[0].Factors.IsEntry)
	}
}

func TestSizeScoreInverseU(t *testing.T) {
	cases := []struct {
		lines int
		want  int
	}{
		{3, 5},
		{30, 10},
		{75, 20},
		{200, 15},
		{600, 10},
		{5000, 5},
	}
	for _, tc := range cases {
		if got := sizeScore(tc.lines); got != tc.want {
			t.Errorf("sizeScore(%d) = %d, want %d", tc.lines, got, tc.want)
		}
	}
}

func TestIsInTopK(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", strings.Repeat("line\n", 60))
	writeFile(t, root, "b.ts", "const x = 1\n")
	writeFile(t, root, "c.ts", "const y = 2\n")

	graph := fakeGraph{
		files:     []string{"a.ts", "b.ts", "c.ts"},
		importers: map[string]int{"a.ts": 10, "b.ts": 1},
		imports:   map[string]int{"a.ts": 2},
	}

	ix := newIndexer(t, root)
	if _, err := ix.Build(3, graph, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !ix.IsInTopK("a.ts", 1) {
		t.Error("top-ranked file should be in top 1")
	}
	if ix.IsInTopK("c.ts", 1) {
		t.Error("low-ranked file should not be in top 1")
	}
	if !ix.IsInTopK("c.ts", 3) {
		t.Error("every ranked file is in top 3")
	}
}

func TestIsInTopKWithoutIndexAllowsEverything(t *testing.T) {
	ix := newIndexer(t, t.TempDir())
	if !ix.IsInTopK("anything.ts", 5) {
		t.Error("missing index should not gate reads")
	}
}

func TestIndexPersistsAcrossInstances(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export const A = 1\n")

	graph := fakeGraph{files: []string{"a.ts"}, importers: map[string]int{}, imports: map[string]int{}}
	if _, err := newIndexer(t, root).Build(5, graph, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	fresh := newIndexer(t, root)
	doc := fresh.Index()
	if doc == nil {
		t.Fatal("expected persisted index to load")
	}
	if doc.TopK != 5 || len(doc.Files) != 1 {
		t.Errorf("unexpected persisted index: topK=%d files=%d", doc.TopK, len(doc.Files))
	}
}
