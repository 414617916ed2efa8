package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"readgate/internal/config"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize readgate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config to .readgate/config.json",
	Run:   runConfigInit,
}

func init() {
	configCmd.PersistentFlags().StringVar(&configFormat, "format", "json", "Output format (json, human)")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	logger := newLogger(configFormat)
	cfg := mustConfig(mustRepoRoot(), logger)
	printResponse(cfg, configFormat)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	repoRoot := mustRepoRoot()
	cfg := config.DefaultConfig()
	if err := cfg.Save(repoRoot); err != nil {
		fatalf("Error writing config: %v", err)
	}
	fmt.Println("Wrote default configuration")
}
