package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readgate/internal/contextlock"
)

var (
	lockFormat         string
	lockReason         string
	lockFiles          []string
	lockOverrideFile   string
	lockOverrideReason string
)

var contextLockCmd = &cobra.Command{
	Use:   "context-lock",
	Short: "Freeze reading once context is declared sufficient",
}

var lockLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Declare sufficient context and lock further reads",
	Run:   runLockLock,
}

var lockUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release the context lock",
	Run:   runLockUnlock,
}

var lockOverrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Let one file through the active lock",
	Run:   runLockOverride,
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the lock state and blocked attempts",
	Run:   runLockStatus,
}

func init() {
	contextLockCmd.PersistentFlags().StringVar(&lockFormat, "format", "json", "Output format (json, human)")

	lockLockCmd.Flags().StringVar(&lockReason, "reason", "", "Why context is sufficient")
	lockLockCmd.Flags().StringSliceVar(&lockFiles, "files", nil, "Files already in context, still readable while locked")
	_ = lockLockCmd.MarkFlagRequired("reason")

	lockOverrideCmd.Flags().StringVarP(&lockOverrideFile, "file", "f", "", "File to allow")
	lockOverrideCmd.Flags().StringVar(&lockOverrideReason, "reason", "", "Why the override is needed")
	_ = lockOverrideCmd.MarkFlagRequired("file")
	_ = lockOverrideCmd.MarkFlagRequired("reason")

	contextLockCmd.AddCommand(lockLockCmd, lockUnlockCmd, lockOverrideCmd, lockStatusCmd)
	rootCmd.AddCommand(contextLockCmd)
}

func newContextLock(format string) *contextlock.Lock {
	logger := newLogger(format)
	return contextlock.NewLock(newStateStore(mustRepoRoot(), logger), logger)
}

// LockStatusCLI is the lock state for CLI output.
type LockStatusCLI struct {
	Locked          bool     `json:"locked"`
	Reason          string   `json:"reason,omitempty"`
	LockedFiles     []string `json:"lockedFiles,omitempty"`
	BlockedAttempts int      `json:"blockedAttempts"`
	Overrides       int      `json:"overrides"`
}

func (r *LockStatusCLI) Human() string {
	var b strings.Builder
	if r.Locked {
		fmt.Fprintf(&b, "Context is LOCKED: %s\n", r.Reason)
		for _, f := range r.LockedFiles {
			fmt.Fprintf(&b, "  in context: %s\n", f)
		}
	} else {
		b.WriteString("Context is unlocked\n")
	}
	fmt.Fprintf(&b, "Blocked attempts: %d, overrides: %d\n", r.BlockedAttempts, r.Overrides)
	return strings.TrimRight(b.String(), "\n")
}

func lockStatusOf(s *contextlock.State) *LockStatusCLI {
	return &LockStatusCLI{
		Locked:          s.SufficientContext,
		Reason:          s.Reason,
		LockedFiles:     s.LockedFiles,
		BlockedAttempts: len(s.BlockedAttempts),
		Overrides:       len(s.Overrides),
	}
}

func runLockLock(cmd *cobra.Command, args []string) {
	lock := newContextLock(lockFormat)
	state, err := lock.DeclareSufficientContext(lockReason, lockFiles)
	if err != nil {
		fatalf("Error locking context: %v", err)
	}
	printResponse(lockStatusOf(state), lockFormat)
}

func runLockUnlock(cmd *cobra.Command, args []string) {
	lock := newContextLock(lockFormat)
	state, err := lock.Unlock()
	if err != nil {
		fatalf("Error unlocking context: %v", err)
	}
	printResponse(lockStatusOf(state), lockFormat)
}

func runLockOverride(cmd *cobra.Command, args []string) {
	lock := newContextLock(lockFormat)
	state, err := lock.AddOverride(lockOverrideFile, lockOverrideReason)
	if err != nil {
		fatalf("Error adding override: %v", err)
	}
	printResponse(lockStatusOf(state), lockFormat)
}

func runLockStatus(cmd *cobra.Command, args []string) {
	lock := newContextLock(lockFormat)
	state, err := lock.State()
	if err != nil {
		fatalf("Error loading lock state: %v", err)
	}
	printResponse(lockStatusOf(state), lockFormat)
}
