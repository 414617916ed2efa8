package risk

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"readgate/internal/paths"
)

// Level buckets a score into a coarse risk grade.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelOrder = map[Level]int{
	LevelMinimal:  0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// ParseLevel validates a level name from config or flags.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if _, ok := levelOrder[l]; !ok {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// AtLeast reports whether l is at or above min.
func (l Level) AtLeast(min Level) bool {
	return levelOrder[l] >= levelOrder[min]
}

// LevelFor maps a total score onto a level.
func LevelFor(score int) Level {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelMinimal
	}
}

const maxExcerptLen = 120

// Match is one pattern hit inside a file.
type Match struct {
	Pattern  string   `json:"pattern"`
	Category Category `json:"category"`
	Line     int      `json:"line"`
	Excerpt  string   `json:"excerpt"`
}

// Assessment is the scored risk profile of a single file.
type Assessment struct {
	FilePath   string           `json:"filePath"`
	Score      int              `json:"score"`
	Level      Level            `json:"level"`
	Categories map[Category]int `json:"categories"`
	Matches    []Match          `json:"matches"`
}

// Assessor scans file content against the risk pattern tables.
type Assessor struct {
	repoRoot string
	logger   *slog.Logger
	patterns []Pattern
}

// NewAssessor creates an assessor with the builtin patterns.
func NewAssessor(repoRoot string, logger *slog.Logger) *Assessor {
	return &Assessor{
		repoRoot: repoRoot,
		logger:   logger,
		patterns: BuiltinPatterns,
	}
}

// overrideFile is the YAML shape for custom risk patterns.
type overrideFile struct {
	Patterns []struct {
		Name        string `yaml:"name"`
		Category    string `yaml:"category"`
		Weight      int    `yaml:"weight"`
		Regex       string `yaml:"regex"`
		Description string `yaml:"description"`
	} `yaml:"patterns"`
	Disable []string `yaml:"disable"`
}

// LoadOverrides layers custom patterns from a YAML file on top of the
// builtins and disables any builtin named in the file's disable list.
func (a *Assessor) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading pattern file: %w", err)
	}
	var of overrideFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return fmt.Errorf("parsing pattern file: %w", err)
	}

	disabled := make(map[string]bool, len(of.Disable))
	for _, name := range of.Disable {
		disabled[name] = true
	}

	merged := make([]Pattern, 0, len(BuiltinPatterns)+len(of.Patterns))
	for _, p := range BuiltinPatterns {
		if !disabled[p.Name] {
			merged = append(merged, p)
		}
	}
	for _, p := range of.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", p.Name, err)
		}
		cat := Category(p.Category)
		if _, ok := levelOrderForCategory(cat); !ok {
			return fmt.Errorf("pattern %s: unknown category %q", p.Name, p.Category)
		}
		merged = append(merged, Pattern{
			Name:        p.Name,
			Category:    cat,
			Weight:      p.Weight,
			Regex:       re,
			Description: p.Description,
		})
	}

	a.patterns = merged
	a.logger.Debug("risk patterns loaded",
		"file", path, "custom", len(of.Patterns), "disabled", len(of.Disable))
	return nil
}

func levelOrderForCategory(c Category) (int, bool) {
	for i, known := range Categories {
		if c == known {
			return i, true
		}
	}
	return 0, false
}

// Assess scans one file and returns its risk profile. An unreadable file
// yields an error; the caller decides whether to degrade open.
func (a *Assessor) Assess(path string) (*Assessment, error) {
	canonical, err := paths.Canonicalize(path, a.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	full := filepath.Join(a.repoRoot, filepath.FromSlash(canonical))

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", canonical, err)
	}
	defer f.Close()

	result := &Assessment{
		FilePath:   canonical,
		Categories: make(map[Category]int, len(Categories)),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		for i := range a.patterns {
			p := &a.patterns[i]
			if !p.Regex.MatchString(line) {
				continue
			}
			result.Categories[p.Category] += p.Weight
			result.Matches = append(result.Matches, Match{
				Pattern:  p.Name,
				Category: p.Category,
				Line:     lineNum,
				Excerpt:  truncate(line, maxExcerptLen),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", canonical, err)
	}

	for _, cat := range Categories {
		score := result.Categories[cat]
		if score > CategoryCap {
			score = CategoryCap
			result.Categories[cat] = score
		}
		result.Score += score
	}
	result.Level = LevelFor(result.Score)

	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
