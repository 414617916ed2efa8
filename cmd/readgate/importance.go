package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/graph"
	"readgate/internal/importance"
	"readgate/internal/vcs"
)

var (
	importanceFormat string
	importanceLimit  int
	importanceTopK   int
)

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "Rank files by structural importance",
}

var importanceBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the importance index from the dependency graph",
	Run:   runImportanceBuild,
}

var importanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the ranked importance index",
	Run:   runImportanceList,
}

func init() {
	importanceCmd.PersistentFlags().StringVar(&importanceFormat, "format", "json", "Output format (json, human)")
	importanceBuildCmd.Flags().IntVar(&importanceTopK, "top-k", 0, "Top-K cutoff stored with the index (default from config)")
	importanceListCmd.Flags().IntVar(&importanceLimit, "limit", 20, "Maximum entries to show")

	importanceCmd.AddCommand(importanceBuildCmd, importanceListCmd)
	rootCmd.AddCommand(importanceCmd)
}

// ImportanceListCLI is the ranked index for CLI output.
type ImportanceListCLI struct {
	TopK    int                `json:"topK"`
	Entries []importance.Entry `json:"entries"`
}

func (r *ImportanceListCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Importance index (top-K cutoff: %d)\n", r.TopK)
	for i, e := range r.Entries {
		fmt.Fprintf(&b, "%3d. %-50s %3d (centrality %d, churn %d, size %d, exports %d, entry %d)\n",
			i+1, e.FilePath, e.Score,
			e.Factors.Centrality, e.Factors.Churn, e.Factors.Size, e.Factors.Exports, e.Factors.IsEntry)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runImportanceBuild(cmd *cobra.Command, args []string) {
	logger := newLogger(importanceFormat)
	repoRoot := mustRepoRoot()
	cfg := mustConfig(repoRoot, logger)

	store := newStateStore(repoRoot, logger)
	g := graph.New(store, logger)
	if !g.Loaded() {
		fatalf("No dependency graph. Build it first: readgate graph build")
	}

	topK := importanceTopK
	if topK <= 0 {
		topK = cfg.Importance.TopK
	}

	var churn importance.ChurnSource
	git := vcs.NewGitAdapter(repoRoot, logger)
	if git.IsAvailable() {
		churn = git
	}

	indexer := importance.NewIndexer(repoRoot, store, logger)
	doc, err := indexer.Build(topK, g, churn)
	if err != nil {
		fatalf("Error building importance index: %v", err)
	}
	printResponse(&ImportanceListCLI{TopK: doc.TopK, Entries: limitEntries(doc.Files, importanceLimit)}, importanceFormat)
}

func runImportanceList(cmd *cobra.Command, args []string) {
	logger := newLogger(importanceFormat)
	repoRoot := mustRepoRoot()

	indexer := importance.NewIndexer(repoRoot, newStateStore(repoRoot, logger), logger)
	doc := indexer.Index()
	if doc == nil {
		fatalf("No importance index. Build it first: readgate importance build")
	}
	printResponse(&ImportanceListCLI{TopK: doc.TopK, Entries: limitEntries(doc.Files, importanceLimit)}, importanceFormat)
}

func limitEntries(entries []importance.Entry, limit int) []importance.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
