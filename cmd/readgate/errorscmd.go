package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/errordb"
)

var (
	errorsFormat   string
	errorsFile     string
	errorsSolution string
	errorsTags     []string
	errorsLimit    int
)

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Record and query the error history",
	Long: `Record errors encountered while working and query them later. The
history feeds the locality scorer: files with repeated errors rank higher.`,
}

var errorsAddCmd = &cobra.Command{
	Use:   "add <message>",
	Short: "Record an error occurrence",
	Args:  cobra.ExactArgs(1),
	Run:   runErrorsAdd,
}

var errorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent errors",
	Run:   runErrorsList,
}

func init() {
	errorsCmd.PersistentFlags().StringVar(&errorsFormat, "format", "json", "Output format (json, human)")

	errorsAddCmd.Flags().StringVarP(&errorsFile, "file", "f", "", "File the error points at")
	errorsAddCmd.Flags().StringVar(&errorsSolution, "solution", "", "How the error was resolved")
	errorsAddCmd.Flags().StringSliceVar(&errorsTags, "tags", nil, "Free-form tags")

	errorsListCmd.Flags().IntVar(&errorsLimit, "limit", 20, "Maximum entries to show")

	errorsCmd.AddCommand(errorsAddCmd, errorsListCmd)
	rootCmd.AddCommand(errorsCmd)
}

func openErrorDB(format string) *errordb.Store {
	logger := newLogger(format)
	db, err := errordb.Open(newStateStore(mustRepoRoot(), logger).Dir(), logger)
	if err != nil {
		fatalf("Error opening error database: %v", err)
	}
	return db
}

// ErrorListCLI is the recent-error listing for CLI output.
type ErrorListCLI struct {
	Entries []errordb.Entry `json:"entries"`
}

func (r *ErrorListCLI) Human() string {
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "#%d %s %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Message)
		if e.FilePath != "" {
			fmt.Fprintf(&b, "    file: %s\n", e.FilePath)
		}
		if e.Solution != "" {
			fmt.Fprintf(&b, "    solved: %s\n", e.Solution)
		}
	}
	if b.Len() == 0 {
		return "No errors recorded"
	}
	return strings.TrimRight(b.String(), "\n")
}

func runErrorsAdd(cmd *cobra.Command, args []string) {
	db := openErrorDB(errorsFormat)
	defer db.Close()

	id, err := db.Record(context.Background(), errordb.Entry{
		Message:  args[0],
		FilePath: errorsFile,
		Solution: errorsSolution,
		Tags:     errorsTags,
	})
	if err != nil {
		fatalf("Error recording error: %v", err)
	}
	printResponse(map[string]interface{}{"id": id, "recorded": true}, errorsFormat)
}

func runErrorsList(cmd *cobra.Command, args []string) {
	db := openErrorDB(errorsFormat)
	defer db.Close()

	entries, err := db.Recent(context.Background(), errorsLimit)
	if err != nil {
		fatalf("Error listing errors: %v", err)
	}
	printResponse(&ErrorListCLI{Entries: entries}, errorsFormat)
}
