package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"readgate/internal/config"
	"readgate/internal/paths"
	"readgate/internal/slogutil"
	"readgate/internal/state"
)

const version = "0.3.0"

var (
	repoRootFlag string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "readgate",
	Short: "readgate - read admission control for coding agents",
	Long: `readgate gates an AI coding agent's file reads against a session token
budget and a set of relevance signals (hypotheses, context locks, importance,
risk, locality). State lives under .readgate/ in the repository root.`,
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate("readgate version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo-root", ".",
		"Repository root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn",
		"Log level: debug, info, warn, error")
}

// mustRepoRoot resolves --repo-root to an absolute path or exits.
func mustRepoRoot() string {
	abs, err := filepath.Abs(repoRootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving repo root: %v\n", err)
		os.Exit(1)
	}
	return abs
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// machine-parseable.
func newLogger(format string) *slog.Logger {
	return slogutil.NewCLILogger(format, slogutil.LevelFromString(logLevelFlag))
}

// mustConfig loads the repository config, falling back to defaults.
func mustConfig(repoRoot string, logger *slog.Logger) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		return config.DefaultConfig()
	}
	return cfg
}

// mustRepoFile rejects file arguments that escape the repository root.
func mustRepoFile(filePath, repoRoot string) {
	if !paths.IsWithinRepo(filePath, repoRoot) {
		fatalf("Error: %s is outside the repository at %s", filePath, repoRoot)
	}
}

func newStateStore(repoRoot string, logger *slog.Logger) *state.Store {
	return state.NewStore(repoRoot, logger)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
