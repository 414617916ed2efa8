package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/budget"
	"readgate/internal/contextlock"
	"readgate/internal/engine"
	"readgate/internal/hypothesis"
	"readgate/internal/importance"
	"readgate/internal/risk"
)

var (
	optimizerFormat string
	optimizerFile   string
	optimizerLevel  string
	optimizerLines  int
	optimizerReason string
	optimizerRecord bool
)

var optimizerCmd = &cobra.Command{
	Use:   "optimizer",
	Short: "Decide whether a file read should proceed",
	Long: `Run a proposed file read through every admission gate and signal:
token budget, context lock, hypothesis targets, importance ranking, content
risk, and task locality.

Hard gates deny outright; soft signals deduct from a 100-point score. A score
below the warn threshold still allows the read but suggests a cheaper level.

Examples:
  readgate optimizer -f src/parser.ts
  readgate optimizer -f src/parser.ts --level signatures --lines 800
  readgate optimizer -f src/parser.ts --record --reason "tracing lexer bug"`,
	Run: runOptimizer,
}

func init() {
	optimizerCmd.Flags().StringVar(&optimizerFormat, "format", "json", "Output format (json, human)")
	optimizerCmd.Flags().StringVarP(&optimizerFile, "file", "f", "", "File the agent wants to read")
	optimizerCmd.Flags().StringVar(&optimizerLevel, "level", "full", "Read level (metadata, signatures, types, chunks, full)")
	optimizerCmd.Flags().IntVar(&optimizerLines, "lines", 0, "Line count if known (otherwise measured from disk)")
	optimizerCmd.Flags().StringVar(&optimizerReason, "reason", "", "Why the read is needed")
	optimizerCmd.Flags().BoolVar(&optimizerRecord, "record", false, "Record the read against the budget when allowed")
	_ = optimizerCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(optimizerCmd)
}

// DecisionCLI is an engine decision for CLI output.
type DecisionCLI struct {
	*engine.Decision
}

func (r *DecisionCLI) Human() string {
	var b strings.Builder
	switch r.Verdict {
	case engine.VerdictDeny:
		fmt.Fprintf(&b, "DENY %s [%s]: %s\n", r.FilePath, r.Code, r.DenyReason)
	case engine.VerdictWarn:
		fmt.Fprintf(&b, "WARN %s (score %d)\n", r.FilePath, r.Score)
	default:
		fmt.Fprintf(&b, "ALLOW %s (score %d)\n", r.FilePath, r.Score)
	}
	for _, d := range r.Deductions {
		fmt.Fprintf(&b, "  -%d %s\n", d.Points, d.Reason)
	}
	if r.Budget != nil {
		fmt.Fprintf(&b, "  budget: ~%d tokens, %d remaining (%s)\n",
			r.Budget.EstimatedTokens, r.Budget.Remaining, r.Budget.Status)
	}
	for _, fix := range r.Suggestions {
		if fix.Command != "" {
			fmt.Fprintf(&b, "  try: %s\n", fix.Command)
		} else if fix.Description != "" {
			fmt.Fprintf(&b, "  try: %s\n", fix.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func runOptimizer(cmd *cobra.Command, args []string) {
	level := budget.ReadLevel(optimizerLevel)
	if !level.IsValid() {
		fatalf("Error: invalid read level %q", optimizerLevel)
	}

	logger := newLogger(optimizerFormat)
	repoRoot := mustRepoRoot()
	mustRepoFile(optimizerFile, repoRoot)
	cfg := mustConfig(repoRoot, logger)
	store := newStateStore(repoRoot, logger)

	ledger := budget.NewLedger(store, cfg.Budget, logger)

	in, cleanup := localityInputs(repoRoot, logger)
	defer cleanup()

	c := engine.Collaborators{
		Budget:     ledger,
		Lock:       contextlock.NewLock(store, logger),
		Hypotheses: hypothesis.NewTracker(store, logger),
		Importance: importance.NewIndexer(repoRoot, store, logger),
		Risk:       riskSource(repoRoot, cfg.Risk.PatternFile, logger),
		Locality:   in,
	}

	eng := engine.New(cfg.Engine, cfg.Importance.TopK, c, logger)
	decision, err := eng.Evaluate(engine.ReadRequest{
		FilePath: optimizerFile,
		Level:    level,
		Lines:    optimizerLines,
		Reason:   optimizerReason,
	})
	if err != nil {
		fatalf("Error evaluating read: %v", err)
	}

	if optimizerRecord && decision.Allowed {
		if _, err := ledger.RecordRead(optimizerFile, optimizerLines, level, optimizerReason); err != nil {
			fatalf("Error recording read: %v", err)
		}
	}

	printResponse(&DecisionCLI{Decision: decision}, optimizerFormat)
}

func riskSource(repoRoot, patternFile string, logger *slog.Logger) engine.RiskSource {
	assessor := risk.NewAssessor(repoRoot, logger)
	if patternFile != "" {
		if err := assessor.LoadOverrides(patternFile); err != nil {
			logger.Warn("failed to load risk patterns, using builtins", "error", err)
		}
	}
	return assessor
}
