package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"readgate/internal/paths"
)

const defaultQueryTimeout = 10 * time.Second

// GitAdapter answers repository history questions by shelling out to git.
// Every query degrades to an empty result when git or the repository's
// history is unavailable, so callers can treat history as an optional signal.
type GitAdapter struct {
	repoRoot     string
	logger       *slog.Logger
	queryTimeout time.Duration
}

// NewGitAdapter creates an adapter rooted at repoRoot.
func NewGitAdapter(repoRoot string, logger *slog.Logger) *GitAdapter {
	return &GitAdapter{
		repoRoot:     repoRoot,
		logger:       logger,
		queryTimeout: defaultQueryTimeout,
	}
}

// IsAvailable reports whether repoRoot is inside a git work tree.
func (g *GitAdapter) IsAvailable() bool {
	out, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// ChangedFiles returns files touched in the working tree plus files from the
// most recent commits, normalized and deduplicated. An unavailable repository
// yields an empty list.
func (g *GitAdapter) ChangedFiles(recentCommits int) []string {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		normalized := paths.Normalize(path)
		if normalized == "" || normalized == "." || seen[normalized] {
			return
		}
		seen[normalized] = true
		files = append(files, normalized)
	}

	if lines, err := g.runLines("status", "--porcelain"); err == nil {
		for _, line := range lines {
			if len(line) < 4 {
				continue
			}
			entry := strings.TrimSpace(line[3:])
			// Renames show as "old -> new"; keep the new path.
			if idx := strings.LastIndex(entry, " -> "); idx >= 0 {
				entry = entry[idx+4:]
			}
			add(strings.Trim(entry, `"`))
		}
	} else {
		g.logger.Debug("git status unavailable", "error", err)
	}

	if recentCommits > 0 {
		args := []string{"log", "--name-only", "--pretty=format:",
			fmt.Sprintf("-%d", recentCommits)}
		if lines, err := g.runLines(args...); err == nil {
			for _, line := range lines {
				add(line)
			}
		} else {
			g.logger.Debug("git log unavailable", "error", err)
		}
	}

	sort.Strings(files)
	return files
}

// CommitCount returns how many commits touch a file.
func (g *GitAdapter) CommitCount(path string) (int, error) {
	out, err := g.run("rev-list", "--count", "HEAD", "--", path)
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return count, nil
}

// LastModified returns the author time of the last commit touching a file.
func (g *GitAdapter) LastModified(path string) (time.Time, error) {
	out, err := g.run("log", "-1", "--format=%aI", "--", path)
	if err != nil {
		return time.Time{}, err
	}
	if out == "" {
		return time.Time{}, fmt.Errorf("no commits touch %s", path)
	}
	t, err := time.Parse(time.RFC3339, out)
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected git timestamp %q: %w", out, err)
	}
	return t, nil
}

func (g *GitAdapter) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.queryTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (g *GitAdapter) runLines(args ...string) ([]string, error) {
	out, err := g.run(args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return []string{}, nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}
