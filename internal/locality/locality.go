package locality

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"readgate/internal/paths"
)

// DegreeSource provides per-file dependency-graph degree counts.
type DegreeSource interface {
	// DegreeOf returns importedBy + imports for a file, 0 when unknown.
	DegreeOf(path string) int
}

// ErrorHistorySource counts stored error patterns mentioning a file.
type ErrorHistorySource interface {
	// CountMatches returns how many error patterns mention the basename.
	CountMatches(basename string) (int, error)
}

// Factors is the per-signal breakdown, each bounded to [0,25].
type Factors struct {
	Recency       int `json:"recency"`
	DiffProximity int `json:"diffProximity"`
	ErrorHistory  int `json:"errorHistory"`
	Centrality    int `json:"centrality"`
}

// Score is a composite 0-100 relevance score for one file.
type Score struct {
	FilePath string  `json:"filePath"`
	Total    int     `json:"total"`
	Factors  Factors `json:"factors"`
	Rank     int     `json:"rank,omitempty"`
}

// Inputs carries the contextual signals the scorer composes. Any collaborator
// may be nil: the corresponding factor degrades to zero instead of failing
// the score.
type Inputs struct {
	RepoRoot     string
	ChangedFiles []string
	Graph        DegreeSource
	ErrorDB      ErrorHistorySource
	// Now anchors the recency factor; the zero value means time.Now().
	Now time.Time
}

// Calculate computes the locality score for a file. Deterministic given the
// same collaborator state and clock.
func Calculate(filePath string, in Inputs) Score {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	f := Factors{
		Recency:       recencyScore(filePath, in.RepoRoot, now),
		DiffProximity: diffProximityScore(filePath, in.ChangedFiles),
		ErrorHistory:  errorHistoryScore(filePath, in.ErrorDB),
		Centrality:    centralityScore(filePath, in.Graph),
	}

	return Score{
		FilePath: paths.Normalize(filePath),
		Total:    f.Recency + f.DiffProximity + f.ErrorHistory + f.Centrality,
		Factors:  f,
	}
}

// Rank scores all files and sorts them by descending total, assigning dense
// ranks (ties share a rank).
func Rank(files []string, in Inputs) []Score {
	scores := make([]Score, 0, len(files))
	for _, f := range files {
		scores = append(scores, Calculate(f, in))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Total > scores[j].Total
	})

	rank := 0
	prevTotal := -1
	for i := range scores {
		if scores[i].Total != prevTotal {
			rank++
			prevTotal = scores[i].Total
		}
		scores[i].Rank = rank
	}

	return scores
}

// recencyScore steps down with file modification age.
func recencyScore(filePath, repoRoot string, now time.Time) int {
	full := filePath
	if repoRoot != "" && !filepath.IsAbs(filePath) {
		full = filepath.Join(repoRoot, filepath.FromSlash(filePath))
	}

	info, err := os.Stat(full)
	if err != nil {
		return 0
	}

	age := now.Sub(info.ModTime())
	switch {
	case age < time.Hour:
		return 25
	case age < 4*time.Hour:
		return 20
	case age < 24*time.Hour:
		return 15
	case age < 72*time.Hour:
		return 10
	case age < 168*time.Hour:
		return 5
	default:
		return 0
	}
}

// diffProximityScore rewards files in or near the current change set.
func diffProximityScore(filePath string, changed []string) int {
	if len(changed) == 0 {
		return 0
	}
	if paths.MatchAny(filePath, changed) {
		return 25
	}

	dir := parentDir(filePath)
	grand := parentDir(dir)
	for _, c := range changed {
		cdir := parentDir(c)
		if dir != "" && dir == cdir {
			return 15
		}
		if grand != "" && (grand == cdir || grand == parentDir(cdir)) {
			return 5
		}
	}
	return 0
}

// errorHistoryScore steps up with the number of stored error patterns that
// mention the file.
func errorHistoryScore(filePath string, db ErrorHistorySource) int {
	if db == nil {
		return 0
	}
	count, err := db.CountMatches(paths.Basename(filePath))
	if err != nil {
		return 0
	}
	switch {
	case count >= 5:
		return 25
	case count >= 3:
		return 20
	case count >= 2:
		return 15
	case count >= 1:
		return 10
	default:
		return 0
	}
}

// centralityScore steps up with the file's total graph degree.
func centralityScore(filePath string, g DegreeSource) int {
	if g == nil {
		return 0
	}
	degree := g.DegreeOf(paths.Normalize(filePath))
	switch {
	case degree >= 20:
		return 25
	case degree >= 10:
		return 20
	case degree >= 5:
		return 15
	case degree >= 2:
		return 10
	case degree >= 1:
		return 5
	default:
		return 0
	}
}

func parentDir(path string) string {
	n := paths.Normalize(path)
	dir := filepath.ToSlash(filepath.Dir(n))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
