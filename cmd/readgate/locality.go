package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/errordb"
	"readgate/internal/graph"
	"readgate/internal/locality"
	"readgate/internal/vcs"
)

var (
	localityFormat string
	localityFile   string
	localityLimit  int
)

var localityCmd = &cobra.Command{
	Use:   "locality",
	Short: "Score files by closeness to the current task",
	Long: `Score files by closeness to the current task: recent modification,
proximity to changed files, error history, and graph centrality.

With --file, scores a single file; otherwise ranks every file in the
dependency graph.`,
	Run: runLocality,
}

func init() {
	localityCmd.Flags().StringVar(&localityFormat, "format", "json", "Output format (json, human)")
	localityCmd.Flags().StringVarP(&localityFile, "file", "f", "", "Score a single file")
	localityCmd.Flags().IntVar(&localityLimit, "limit", 20, "Maximum ranked files to return")
	rootCmd.AddCommand(localityCmd)
}

// localityInputs assembles the scorer's collaborators. Each one is optional;
// an unavailable source just zeroes its factor.
func localityInputs(repoRoot string, logger *slog.Logger) (locality.Inputs, func()) {
	in := locality.Inputs{RepoRoot: repoRoot}
	cleanup := func() {}

	git := vcs.NewGitAdapter(repoRoot, logger)
	if git.IsAvailable() {
		in.ChangedFiles = git.ChangedFiles(5)
	}

	g := graph.New(newStateStore(repoRoot, logger), logger)
	if g.Loaded() {
		in.Graph = g
	}

	if db, err := errordb.Open(newStateStore(repoRoot, logger).Dir(), logger); err == nil {
		in.ErrorDB = db
		cleanup = func() { _ = db.Close() }
	} else {
		logger.Warn("error history unavailable", "error", err)
	}

	return in, cleanup
}

// LocalityRankCLI is the ranked score list for CLI output.
type LocalityRankCLI struct {
	Scores []locality.Score `json:"scores"`
}

func (r *LocalityRankCLI) Human() string {
	var b strings.Builder
	for _, s := range r.Scores {
		fmt.Fprintf(&b, "%3d. %-50s %3d (recency %d, diff %d, errors %d, centrality %d)\n",
			s.Rank, s.FilePath, s.Total,
			s.Factors.Recency, s.Factors.DiffProximity, s.Factors.ErrorHistory, s.Factors.Centrality)
	}
	if b.Len() == 0 {
		return "No files to rank. Build the graph first: readgate graph build"
	}
	return strings.TrimRight(b.String(), "\n")
}

func runLocality(cmd *cobra.Command, args []string) {
	logger := newLogger(localityFormat)
	repoRoot := mustRepoRoot()

	in, cleanup := localityInputs(repoRoot, logger)
	defer cleanup()

	if localityFile != "" {
		score := locality.Calculate(localityFile, in)
		printResponse(&score, localityFormat)
		return
	}

	var files []string
	if g, ok := in.Graph.(*graph.Graph); ok {
		files = g.Files()
	}
	scores := locality.Rank(files, in)
	if localityLimit > 0 && len(scores) > localityLimit {
		scores = scores[:localityLimit]
	}
	printResponse(&LocalityRankCLI{Scores: scores}, localityFormat)
}
