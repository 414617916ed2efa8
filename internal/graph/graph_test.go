package graph

import (
	"os"
	"path/filepath"
	"testing"

	"readgate/internal/slogutil"
	"readgate/internal/state"
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

func newGraph(t *testing.T, root string) *Graph {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	return New(state.NewStore(root, logger), logger)
}

func TestBuildResolvesTypeScriptImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.ts", "import { parse } from \"./parser\"\nimport util from \"./lib/util\"\n")
	writeFile(t, root, "src/parser.ts", "import { tokens } from \"./lib/util\"\nexport function parse() {}\n")
	writeFile(t, root, "src/lib/util.ts", "export const tokens = []\n")

	g := newGraph(t, root)
	doc, err := g.Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(doc.Files))
	}

	deps := g.Dependencies("src/main.ts")
	if len(deps) != 2 {
		t.Fatalf("main.ts dependencies = %v, want 2", deps)
	}
	importers := g.Importers("src/lib/util.ts")
	if len(importers) != 2 {
		t.Errorf("util.ts importers = %v, want 2", importers)
	}
	if g.DegreeOf("src/lib/util.ts") != 2 {
		t.Errorf("util.ts degree = %d, want 2", g.DegreeOf("src/lib/util.ts"))
	}
}

func TestBuildResolvesIndexImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.ts", "import { api } from \"./api\"\n")
	writeFile(t, root, "api/index.ts", "export const api = {}\n")

	g := newGraph(t, root)
	if _, err := g.Build(root, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	deps := g.Dependencies("app.ts")
	if len(deps) != 1 || deps[0] != "api/index.ts" {
		t.Errorf("app.ts dependencies = %v, want [api/index.ts]", deps)
	}
}

func TestBuildResolvesPythonImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/__init__.py", "")
	writeFile(t, root, "pkg/core.py", "from pkg.helpers import run\nfrom . import settings\n")
	writeFile(t, root, "pkg/helpers.py", "def run():\n    pass\n")
	writeFile(t, root, "pkg/settings.py", "MODE = \"dev\"\n")

	g := newGraph(t, root)
	if _, err := g.Build(root, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	deps := g.Dependencies("pkg/core.py")
	if len(deps) == 0 {
		t.Fatal("expected pkg/core.py to have dependencies")
	}
	if len(g.Importers("pkg/helpers.py")) != 1 {
		t.Errorf("helpers.py importers = %v, want 1", g.Importers("pkg/helpers.py"))
	}
}

func TestBuildResolvesGoPackageImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/app\n\ngo 1.24\n")
	writeFile(t, root, "main.go", "package main\n\nimport (\n\t\"fmt\"\n\n\t\"example.com/app/store\"\n)\n")
	writeFile(t, root, "store/store.go", "package store\n")
	writeFile(t, root, "store/store_test.go", "package store\n")

	g := newGraph(t, root)
	if _, err := g.Build(root, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	deps := g.Dependencies("main.go")
	if len(deps) != 1 || deps[0] != "store/store.go" {
		t.Errorf("main.go dependencies = %v, want [store/store.go]", deps)
	}
}

func TestBuildHonorsIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.ts", "const x = 1\n")
	writeFile(t, root, "testdata/fixture.ts", "const y = 2\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")

	g := newGraph(t, root)
	doc, err := g.Build(root, BuildOptions{Ignore: []string{"testdata"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(doc.Files) != 1 {
		t.Errorf("expected only src/app.ts, got %v", fileNames(doc))
	}
}

func TestEntryPoints(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cli.ts", "import { core } from \"./core\"\n")
	writeFile(t, root, "core.ts", "export const core = {}\n")

	g := newGraph(t, root)
	if _, err := g.Build(root, BuildOptions{EntryPoints: []string{"cli.ts"}}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.IsEntryPoint("cli.ts") {
		t.Error("declared entry point not recognized")
	}
	if g.IsEntryPoint("core.ts") {
		t.Error("imported file should not be an entry point")
	}
}

func TestGraphPersistsAcrossInstances(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "import \"./b\"\n")
	writeFile(t, root, "b.ts", "export {}\n")

	if _, err := newGraph(t, root).Build(root, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	fresh := newGraph(t, root)
	if !fresh.Loaded() {
		t.Fatal("expected persisted graph to load")
	}
	if fresh.ImportersCount("b.ts") != 1 {
		t.Errorf("b.ts importers = %d, want 1", fresh.ImportersCount("b.ts"))
	}
}

func TestTransitiveTraversal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "import \"./b\"\n")
	writeFile(t, root, "b.ts", "import \"./c\"\n")
	writeFile(t, root, "c.ts", "export {}\n")

	g := newGraph(t, root)
	if _, err := g.Build(root, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	deps := g.TransitiveDependencies("a.ts")
	if len(deps) != 2 || deps[0] != "b.ts" || deps[1] != "c.ts" {
		t.Errorf("a.ts transitive dependencies = %v, want [b.ts c.ts]", deps)
	}
	importers := g.TransitiveImporters("c.ts")
	if len(importers) != 2 || importers[0] != "a.ts" || importers[1] != "b.ts" {
		t.Errorf("c.ts transitive importers = %v, want [a.ts b.ts]", importers)
	}
	if direct := g.Importers("c.ts"); len(direct) != 1 || direct[0] != "b.ts" {
		t.Errorf("c.ts direct importers = %v, want [b.ts]", direct)
	}
}

func TestLoadProjectFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readgate.toml", "[graph]\nignore = [\"testdata\"]\nentry_points = [\"cmd/main.ts\"]\n")

	pf, err := LoadProjectFile(root)
	if err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if len(pf.Graph.Ignore) != 1 || pf.Graph.Ignore[0] != "testdata" {
		t.Errorf("ignore = %v", pf.Graph.Ignore)
	}
	if len(pf.Graph.EntryPoints) != 1 {
		t.Errorf("entry_points = %v", pf.Graph.EntryPoints)
	}
}

func TestLoadProjectFileMissingIsZeroValue(t *testing.T) {
	pf, err := LoadProjectFile(t.TempDir())
	if err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if len(pf.Graph.Ignore) != 0 || len(pf.Graph.EntryPoints) != 0 {
		t.Errorf("expected zero value, got %+v", pf)
	}
}

func fileNames(doc *Document) []string {
	var names []string
	for f := range doc.Files {
		names = append(names, f)
	}
	return names
}
