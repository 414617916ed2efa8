package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/risk"
)

var (
	riskFormat   string
	riskFile     string
	riskPatterns string
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Assess the modification risk of a file",
	Long: `Assess a file's modification risk by scanning its content for security,
performance, complexity, external-dependency, and data-handling signals.

Custom patterns can be layered on via --patterns or the risk.patternFile
config key.`,
	Run: runRisk,
}

func init() {
	riskCmd.Flags().StringVar(&riskFormat, "format", "json", "Output format (json, human)")
	riskCmd.Flags().StringVarP(&riskFile, "file", "f", "", "File to assess")
	riskCmd.Flags().StringVar(&riskPatterns, "patterns", "", "YAML file with custom risk patterns")
	_ = riskCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(riskCmd)
}

// RiskCLI is an assessment for CLI output.
type RiskCLI struct {
	*risk.Assessment
}

func (r *RiskCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (score %d)\n", r.FilePath, r.Level, r.Score)
	for _, cat := range risk.Categories {
		if score := r.Categories[cat]; score > 0 {
			fmt.Fprintf(&b, "  %-14s %d\n", cat, score)
		}
	}
	for _, m := range r.Matches {
		fmt.Fprintf(&b, "  line %d [%s/%s]: %s\n", m.Line, m.Category, m.Pattern, m.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runRisk(cmd *cobra.Command, args []string) {
	logger := newLogger(riskFormat)
	repoRoot := mustRepoRoot()
	mustRepoFile(riskFile, repoRoot)
	cfg := mustConfig(repoRoot, logger)

	assessor := risk.NewAssessor(repoRoot, logger)
	patternFile := riskPatterns
	if patternFile == "" {
		patternFile = cfg.Risk.PatternFile
	}
	if patternFile != "" {
		if err := assessor.LoadOverrides(patternFile); err != nil {
			fatalf("Error loading risk patterns: %v", err)
		}
	}

	assessment, err := assessor.Assess(riskFile)
	if err != nil {
		fatalf("Error assessing risk: %v", err)
	}
	printResponse(&RiskCLI{Assessment: assessment}, riskFormat)
}
