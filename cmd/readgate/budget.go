package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/budget"
)

var (
	budgetFormat       string
	budgetInitLimit    int
	budgetRecordFile   string
	budgetRecordLines  int
	budgetRecordLevel  string
	budgetRecordReason string
	budgetIncAmount    int
	budgetIncReason    string
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage the session token budget",
}

var budgetInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Start a fresh budget session",
	Run:   runBudgetInit,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show consumption against the session budget",
	Run:   runBudgetStatus,
}

var budgetRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a completed read against the budget",
	Run:   runBudgetRecord,
}

var budgetIncreaseCmd = &cobra.Command{
	Use:   "increase",
	Short: "Grant a justified budget increase",
	Run:   runBudgetIncrease,
}

func init() {
	budgetCmd.PersistentFlags().StringVar(&budgetFormat, "format", "json", "Output format (json, human)")

	budgetInitCmd.Flags().IntVar(&budgetInitLimit, "limit", 0, "Token budget for the session (default from config)")

	budgetRecordCmd.Flags().StringVarP(&budgetRecordFile, "file", "f", "", "File that was read")
	budgetRecordCmd.Flags().IntVar(&budgetRecordLines, "lines", 0, "Line count of the read")
	budgetRecordCmd.Flags().StringVar(&budgetRecordLevel, "level", "full", "Read level (metadata, signatures, types, chunks, full)")
	budgetRecordCmd.Flags().StringVar(&budgetRecordReason, "reason", "", "Why the file was read")
	_ = budgetRecordCmd.MarkFlagRequired("file")

	budgetIncreaseCmd.Flags().IntVar(&budgetIncAmount, "amount", 0, "Tokens to add")
	budgetIncreaseCmd.Flags().StringVar(&budgetIncReason, "reason", "", "Justification for the increase")
	_ = budgetIncreaseCmd.MarkFlagRequired("amount")
	_ = budgetIncreaseCmd.MarkFlagRequired("reason")

	budgetCmd.AddCommand(budgetInitCmd, budgetStatusCmd, budgetRecordCmd, budgetIncreaseCmd)
	rootCmd.AddCommand(budgetCmd)
}

func newLedger(format string) *budget.Ledger {
	logger := newLogger(format)
	repoRoot := mustRepoRoot()
	cfg := mustConfig(repoRoot, logger)
	return budget.NewLedger(newStateStore(repoRoot, logger), cfg.Budget, logger)
}

// BudgetStatusCLI is the budget session summary for CLI output.
type BudgetStatusCLI struct {
	SessionID   string         `json:"sessionId"`
	TotalBudget int            `json:"totalBudget"`
	Consumed    int            `json:"consumed"`
	Remaining   int            `json:"remaining"`
	Status      budget.Status  `json:"status"`
	Reads       int            `json:"reads"`
	Alerts      []budget.Alert `json:"alerts,omitempty"`
}

func (r *BudgetStatusCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\n", r.SessionID)
	fmt.Fprintf(&b, "Budget:    %d tokens\n", r.TotalBudget)
	fmt.Fprintf(&b, "Consumed:  %d tokens (%d reads)\n", r.Consumed, r.Reads)
	fmt.Fprintf(&b, "Remaining: %d tokens\n", r.Remaining)
	fmt.Fprintf(&b, "Status:    %s\n", r.Status)
	for _, a := range r.Alerts {
		fmt.Fprintf(&b, "Alert:     %s\n", a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func budgetStatusOf(s *budget.Session, status budget.Status) *BudgetStatusCLI {
	remaining := s.TotalBudget - s.Consumed
	if remaining < 0 {
		remaining = 0
	}
	return &BudgetStatusCLI{
		SessionID:   s.SessionID,
		TotalBudget: s.TotalBudget,
		Consumed:    s.Consumed,
		Remaining:   remaining,
		Status:      status,
		Reads:       len(s.Reads),
		Alerts:      s.Alerts,
	}
}

func runBudgetInit(cmd *cobra.Command, args []string) {
	ledger := newLedger(budgetFormat)
	session, err := ledger.Init(budgetInitLimit)
	if err != nil {
		fatalf("Error initializing budget: %v", err)
	}
	check, err := ledger.CheckBudget(0)
	if err != nil {
		fatalf("Error checking budget: %v", err)
	}
	printResponse(budgetStatusOf(session, check.Status), budgetFormat)
}

func runBudgetStatus(cmd *cobra.Command, args []string) {
	ledger := newLedger(budgetFormat)
	session, err := ledger.Session()
	if err != nil {
		fatalf("Error loading budget session: %v", err)
	}
	check, err := ledger.CheckBudget(0)
	if err != nil {
		fatalf("Error checking budget: %v", err)
	}
	printResponse(budgetStatusOf(session, check.Status), budgetFormat)
}

func runBudgetRecord(cmd *cobra.Command, args []string) {
	level := budget.ReadLevel(budgetRecordLevel)
	if !level.IsValid() {
		fatalf("Error: invalid read level %q", budgetRecordLevel)
	}
	ledger := newLedger(budgetFormat)
	result, err := ledger.RecordRead(budgetRecordFile, budgetRecordLines, level, budgetRecordReason)
	if err != nil {
		fatalf("Error recording read: %v", err)
	}
	printResponse(result, budgetFormat)
}

func runBudgetIncrease(cmd *cobra.Command, args []string) {
	ledger := newLedger(budgetFormat)
	session, err := ledger.RequestIncrease(budgetIncReason, budgetIncAmount)
	if err != nil {
		fatalf("Error increasing budget: %v", err)
	}
	check, err := ledger.CheckBudget(0)
	if err != nil {
		fatalf("Error checking budget: %v", err)
	}
	printResponse(budgetStatusOf(session, check.Status), budgetFormat)
}
