package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/graph"
)

var (
	graphFormat     string
	graphFile       string
	graphTransitive bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and query the import graph",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the repository and persist the import graph",
	Run:   runGraphBuild,
}

var graphShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a file's importers and dependencies",
	Run:   runGraphShow,
}

func init() {
	graphCmd.PersistentFlags().StringVar(&graphFormat, "format", "json", "Output format (json, human)")
	graphShowCmd.Flags().StringVarP(&graphFile, "file", "f", "", "File to inspect")
	graphShowCmd.Flags().BoolVar(&graphTransitive, "transitive", false, "Follow import edges transitively")
	_ = graphShowCmd.MarkFlagRequired("file")

	graphCmd.AddCommand(graphBuildCmd, graphShowCmd)
	rootCmd.AddCommand(graphCmd)
}

// GraphBuildCLI summarizes a scan for CLI output.
type GraphBuildCLI struct {
	Files       int      `json:"files"`
	EntryPoints []string `json:"entryPoints,omitempty"`
}

func (r *GraphBuildCLI) Human() string {
	return fmt.Sprintf("Import graph built: %d files, %d declared entry points",
		r.Files, len(r.EntryPoints))
}

// GraphShowCLI is one file's neighborhood for CLI output.
type GraphShowCLI struct {
	FilePath     string   `json:"filePath"`
	Importers    []string `json:"importers"`
	Dependencies []string `json:"dependencies"`
	Degree       int      `json:"degree"`
	EntryPoint   bool     `json:"entryPoint"`
}

func (r *GraphShowCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (degree %d", r.FilePath, r.Degree)
	if r.EntryPoint {
		b.WriteString(", entry point")
	}
	b.WriteString(")\n")
	for _, f := range r.Importers {
		fmt.Fprintf(&b, "  imported by %s\n", f)
	}
	for _, f := range r.Dependencies {
		fmt.Fprintf(&b, "  imports     %s\n", f)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runGraphBuild(cmd *cobra.Command, args []string) {
	logger := newLogger(graphFormat)
	repoRoot := mustRepoRoot()
	cfg := mustConfig(repoRoot, logger)

	project, err := graph.LoadProjectFile(repoRoot)
	if err != nil {
		fatalf("Error reading project file: %v", err)
	}

	opts := graph.BuildOptions{
		Ignore:           append(cfg.Graph.Ignore, project.Graph.Ignore...),
		EntryPoints:      project.Graph.EntryPoints,
		MaxFileSizeBytes: int64(cfg.Graph.MaxFileSizeBytes),
	}

	g := graph.New(newStateStore(repoRoot, logger), logger)
	doc, err := g.Build(repoRoot, opts)
	if err != nil {
		fatalf("Error building graph: %v", err)
	}
	printResponse(&GraphBuildCLI{Files: len(doc.Files), EntryPoints: doc.EntryPoints}, graphFormat)
}

func runGraphShow(cmd *cobra.Command, args []string) {
	logger := newLogger(graphFormat)
	repoRoot := mustRepoRoot()

	g := graph.New(newStateStore(repoRoot, logger), logger)
	if !g.Loaded() {
		fatalf("No dependency graph. Build it first: readgate graph build")
	}
	importers := g.Importers(graphFile)
	dependencies := g.Dependencies(graphFile)
	if graphTransitive {
		importers = g.TransitiveImporters(graphFile)
		dependencies = g.TransitiveDependencies(graphFile)
	}
	printResponse(&GraphShowCLI{
		FilePath:     graphFile,
		Importers:    importers,
		Dependencies: dependencies,
		Degree:       g.DegreeOf(graphFile),
		EntryPoint:   g.IsEntryPoint(graphFile),
	}, graphFormat)
}
