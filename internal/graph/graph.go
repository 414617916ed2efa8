package graph

import (
	"log/slog"
	"sort"
	"time"

	"readgate/internal/paths"
	"readgate/internal/state"
)

const (
	docName    = "graph.json"
	docVersion = 1
)

// Node holds the edges of one file.
type Node struct {
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"importedBy"`
}

// Document is the persisted import graph.
type Document struct {
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"createdAt"`
	EntryPoints []string         `json:"entryPoints,omitempty"`
	Files       map[string]*Node `json:"files"`
}

// Graph answers structural queries over the scanned import graph.
type Graph struct {
	state  *state.Store
	logger *slog.Logger
	doc    *Document
}

// New creates a graph backed by the repository's state directory.
func New(st *state.Store, logger *slog.Logger) *Graph {
	return &Graph{state: st, logger: logger}
}

// Loaded reports whether a persisted graph is available.
func (g *Graph) Loaded() bool {
	return g.document() != nil
}

func (g *Graph) document() *Document {
	if g.doc != nil {
		return g.doc
	}
	var doc Document
	if g.state.Load(docName, docVersion, &doc) {
		g.doc = &doc
		return g.doc
	}
	return nil
}

// Files returns every file in the graph, sorted.
func (g *Graph) Files() []string {
	doc := g.document()
	if doc == nil {
		return nil
	}
	files := make([]string, 0, len(doc.Files))
	for f := range doc.Files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Importers returns the files that import path.
func (g *Graph) Importers(path string) []string {
	if n := g.node(path); n != nil {
		return n.ImportedBy
	}
	return nil
}

// Dependencies returns the files that path imports.
func (g *Graph) Dependencies(path string) []string {
	if n := g.node(path); n != nil {
		return n.Imports
	}
	return nil
}

// ImportersCount returns how many files import path.
func (g *Graph) ImportersCount(path string) int {
	return len(g.Importers(path))
}

// ImportsCount returns how many files path imports.
func (g *Graph) ImportsCount(path string) int {
	return len(g.Dependencies(path))
}

// DegreeOf is total connectivity, importers plus imports.
func (g *Graph) DegreeOf(path string) int {
	return g.ImportersCount(path) + g.ImportsCount(path)
}

// TransitiveImporters returns every file that reaches path through one or
// more import edges, sorted.
func (g *Graph) TransitiveImporters(path string) []string {
	return g.walk(path, func(n *Node) []string { return n.ImportedBy })
}

// TransitiveDependencies returns every file that path reaches through one or
// more import edges, sorted.
func (g *Graph) TransitiveDependencies(path string) []string {
	return g.walk(path, func(n *Node) []string { return n.Imports })
}

func (g *Graph) walk(path string, edges func(*Node) []string) []string {
	doc := g.document()
	if doc == nil {
		return nil
	}
	start := paths.Normalize(path)
	if _, ok := doc.Files[start]; !ok {
		for file := range doc.Files {
			if paths.Match(start, file) {
				start = file
				break
			}
		}
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	var reached []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		n, ok := doc.Files[current]
		if !ok {
			continue
		}
		for _, next := range edges(n) {
			if seen[next] {
				continue
			}
			seen[next] = true
			reached = append(reached, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(reached)
	return reached
}

// IsEntryPoint reports whether path is a declared entry point or a file
// nothing imports.
func (g *Graph) IsEntryPoint(path string) bool {
	doc := g.document()
	if doc == nil {
		return false
	}
	if paths.MatchAny(path, doc.EntryPoints) {
		return true
	}
	if n := g.node(path); n != nil {
		return len(n.ImportedBy) == 0
	}
	return false
}

func (g *Graph) node(path string) *Node {
	doc := g.document()
	if doc == nil {
		return nil
	}
	normalized := paths.Normalize(path)
	if n, ok := doc.Files[normalized]; ok {
		return n
	}
	for file, n := range doc.Files {
		if paths.Match(normalized, file) {
			return n
		}
	}
	return nil
}
