package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/hypothesis"
)

var (
	hypFormat       string
	hypAddFiles     []string
	hypAddSymbols   []string
	hypAddPriority  int
	hypValidateID   string
	hypRejectFlag   bool
	hypEvidenceFlag string
)

var hypothesisCmd = &cobra.Command{
	Use:   "hypothesis",
	Short: "Track debugging hypotheses that scope future reads",
}

var hypStartCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Start a hypothesis session for a task",
	Args:  cobra.ExactArgs(1),
	Run:   runHypStart,
}

var hypAddCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a hypothesis with target files",
	Args:  cobra.ExactArgs(1),
	Run:   runHypAdd,
}

var hypValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Mark a hypothesis validated or rejected",
	Run:   runHypValidate,
}

var hypStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active hypothesis session",
	Run:   runHypStatus,
}

func init() {
	hypothesisCmd.PersistentFlags().StringVar(&hypFormat, "format", "json", "Output format (json, human)")

	hypAddCmd.Flags().StringSliceVar(&hypAddFiles, "files", nil, "Target files the hypothesis implicates")
	hypAddCmd.Flags().StringSliceVar(&hypAddSymbols, "symbols", nil, "Target symbols")
	hypAddCmd.Flags().IntVar(&hypAddPriority, "priority", 1, "Priority; higher wins on overlapping targets")

	hypValidateCmd.Flags().StringVar(&hypValidateID, "id", "", "Hypothesis ID")
	hypValidateCmd.Flags().BoolVar(&hypRejectFlag, "reject", false, "Reject instead of validate")
	hypValidateCmd.Flags().StringVar(&hypEvidenceFlag, "evidence", "", "Supporting evidence")
	_ = hypValidateCmd.MarkFlagRequired("id")

	hypothesisCmd.AddCommand(hypStartCmd, hypAddCmd, hypValidateCmd, hypStatusCmd)
	rootCmd.AddCommand(hypothesisCmd)
}

func newTracker(format string) *hypothesis.Tracker {
	logger := newLogger(format)
	return hypothesis.NewTracker(newStateStore(mustRepoRoot(), logger), logger)
}

// HypothesisStatusCLI summarizes the session for CLI output.
type HypothesisStatusCLI struct {
	Task           string                  `json:"task"`
	Active         bool                    `json:"active"`
	Hypotheses     []hypothesis.Hypothesis `json:"hypotheses"`
	ValidatedFiles []string                `json:"validatedFiles,omitempty"`
	RejectedFiles  []string                `json:"rejectedFiles,omitempty"`
}

func (r *HypothesisStatusCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", r.Task)
	fmt.Fprintf(&b, "Active: %v\n", r.Active)
	for _, h := range r.Hypotheses {
		fmt.Fprintf(&b, "  [%s] (%s, priority %d) %s\n", h.ID, h.Status, h.Priority, h.Description)
		for _, f := range h.TargetFiles {
			fmt.Fprintf(&b, "      - %s\n", f)
		}
	}
	if len(r.ValidatedFiles) > 0 {
		fmt.Fprintf(&b, "Validated files: %s\n", strings.Join(r.ValidatedFiles, ", "))
	}
	if len(r.RejectedFiles) > 0 {
		fmt.Fprintf(&b, "Rejected files: %s\n", strings.Join(r.RejectedFiles, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func hypStatusOf(s *hypothesis.Session) *HypothesisStatusCLI {
	return &HypothesisStatusCLI{
		Task:           s.Task,
		Active:         s.Active(),
		Hypotheses:     s.Hypotheses,
		ValidatedFiles: s.ValidatedFiles,
		RejectedFiles:  s.RejectedFiles,
	}
}

func runHypStart(cmd *cobra.Command, args []string) {
	tracker := newTracker(hypFormat)
	session, err := tracker.Start(args[0])
	if err != nil {
		fatalf("Error starting hypothesis session: %v", err)
	}
	printResponse(hypStatusOf(session), hypFormat)
}

func runHypAdd(cmd *cobra.Command, args []string) {
	tracker := newTracker(hypFormat)
	h, err := tracker.AddHypothesis(args[0], hypAddFiles, hypAddSymbols, hypAddPriority)
	if err != nil {
		fatalf("Error adding hypothesis: %v", err)
	}
	printResponse(h, hypFormat)
}

func runHypValidate(cmd *cobra.Command, args []string) {
	tracker := newTracker(hypFormat)
	h, err := tracker.Validate(hypValidateID, !hypRejectFlag, hypEvidenceFlag)
	if err != nil {
		fatalf("Error validating hypothesis: %v", err)
	}
	printResponse(h, hypFormat)
}

func runHypStatus(cmd *cobra.Command, args []string) {
	tracker := newTracker(hypFormat)
	session := tracker.Session()
	if session == nil {
		fatalf("No hypothesis session. Start one with: readgate hypothesis start <task>")
	}
	printResponse(hypStatusOf(session), hypFormat)
}
