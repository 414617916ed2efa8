package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/contracts"
)

var (
	contractsFormat string
	contractsFile   string
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Snapshot and compare file API surfaces",
}

var contractsSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture a file's exported signatures",
	Run:   runContractsSnapshot,
}

var contractsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a file's API surface changed since its snapshot",
	Run:   runContractsCheck,
}

var contractsDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Refresh a file's snapshot and show the surface diff",
	Run:   runContractsDiff,
}

func init() {
	contractsCmd.PersistentFlags().StringVar(&contractsFormat, "format", "json", "Output format (json, human)")
	contractsCmd.PersistentFlags().StringVarP(&contractsFile, "file", "f", "", "File to inspect")
	_ = contractsCmd.MarkPersistentFlagRequired("file")

	contractsCmd.AddCommand(contractsSnapshotCmd, contractsCheckCmd, contractsDiffCmd)
	rootCmd.AddCommand(contractsCmd)
}

func newContractStore(format string) *contracts.Store {
	logger := newLogger(format)
	repoRoot := mustRepoRoot()
	mustRepoFile(contractsFile, repoRoot)
	return contracts.NewStore(repoRoot, newStateStore(repoRoot, logger), logger)
}

// ContractCheckCLI reports snapshot drift for one file.
type ContractCheckCLI struct {
	FilePath   string `json:"filePath"`
	HasChanged bool   `json:"hasChanged"`
	Snapshot   bool   `json:"snapshot"`
}

func (r *ContractCheckCLI) Human() string {
	if !r.Snapshot {
		return fmt.Sprintf("%s: no snapshot (treat as changed)", r.FilePath)
	}
	if r.HasChanged {
		return fmt.Sprintf("%s: API surface CHANGED since snapshot", r.FilePath)
	}
	return fmt.Sprintf("%s: API surface unchanged", r.FilePath)
}

// ContractDiffCLI is an update result for CLI output.
type ContractDiffCLI struct {
	FilePath string         `json:"filePath"`
	Diff     contracts.Diff `json:"diff"`
	Changed  bool           `json:"changed"`
}

func (r *ContractDiffCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", r.FilePath)
	if !r.Changed {
		fmt.Fprintf(&b, "  no surface changes (%d signatures unchanged)\n", r.Diff.Unchanged)
		return strings.TrimRight(b.String(), "\n")
	}
	for _, name := range r.Diff.Added {
		fmt.Fprintf(&b, "  + %s\n", name)
	}
	for _, name := range r.Diff.Removed {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	for _, name := range r.Diff.Modified {
		fmt.Fprintf(&b, "  ~ %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func runContractsSnapshot(cmd *cobra.Command, args []string) {
	store := newContractStore(contractsFormat)
	result, err := store.Update(contractsFile)
	if err != nil {
		fatalf("Error capturing snapshot: %v", err)
	}
	printResponse(result.Contract, contractsFormat)
}

func runContractsCheck(cmd *cobra.Command, args []string) {
	store := newContractStore(contractsFormat)
	snapshot := store.Snapshot(contractsFile)
	changed, err := store.HasChanged(contractsFile)
	if err != nil {
		fatalf("Error checking contract: %v", err)
	}
	printResponse(&ContractCheckCLI{
		FilePath:   contractsFile,
		HasChanged: changed,
		Snapshot:   snapshot != nil,
	}, contractsFormat)
}

func runContractsDiff(cmd *cobra.Command, args []string) {
	store := newContractStore(contractsFormat)
	result, err := store.Update(contractsFile)
	if err != nil {
		fatalf("Error diffing contract: %v", err)
	}
	printResponse(&ContractDiffCLI{
		FilePath: contractsFile,
		Diff:     result.Diff,
		Changed:  result.Diff.Changed(),
	}, contractsFormat)
}
