package importance

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"readgate/internal/contracts"
	"readgate/internal/paths"
	"readgate/internal/state"
)

const (
	docName    = "importance.json"
	docVersion = 1
)

// GraphSource provides the file universe and per-file import counts.
type GraphSource interface {
	Files() []string
	ImportersCount(path string) int
	ImportsCount(path string) int
}

// ChurnSource provides per-file commit counts.
type ChurnSource interface {
	CommitCount(path string) (int, error)
}

// Factors is the per-signal breakdown of an importance score.
type Factors struct {
	Centrality int `json:"centrality"` // <= 30
	Churn      int `json:"churn"`      // <= 15
	Size       int `json:"size"`       // <= 20
	Exports    int `json:"exports"`    // <= 20
	IsEntry    int `json:"isEntry"`    // 0 or 15
}

// Entry is one ranked file in the importance index.
type Entry struct {
	FilePath string  `json:"filePath"`
	Score    int     `json:"score"`
	Factors  Factors `json:"factors"`
}

// Document is the persisted importance index, sorted by descending score.
type Document struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	TopK      int       `json:"topK"`
	Files     []Entry   `json:"files"`
}

// Indexer builds and queries the precomputed importance ranking.
type Indexer struct {
	repoRoot string
	state    *state.Store
	logger   *slog.Logger
	doc      *Document
}

// NewIndexer creates an indexer for a repository.
func NewIndexer(repoRoot string, st *state.Store, logger *slog.Logger) *Indexer {
	return &Indexer{repoRoot: repoRoot, state: st, logger: logger}
}

// Build scores every file known to the dependency graph and persists the
// ranked list. A missing churn source degrades the churn factor to zero.
func (ix *Indexer) Build(topK int, graph GraphSource, churn ChurnSource) (*Document, error) {
	files := graph.Files()
	entries := make([]Entry, 0, len(files))

	for _, file := range files {
		importers := graph.ImportersCount(file)
		imports := graph.ImportsCount(file)

		commits := 0
		if churn != nil {
			if c, err := churn.CommitCount(file); err == nil {
				commits = c
			}
		}

		full := filepath.Join(ix.repoRoot, filepath.FromSlash(file))
		lines := countLines(full)
		exports := countExports(full)

		f := Factors{
			Centrality: capInt(importers*3+imports, 30),
			Churn:      capInt((commits/5)*3, 15),
			Size:       sizeScore(lines),
			Exports:    capInt(exports*4, 20),
		}
		if importers == 0 {
			f.IsEntry = 15
		}

		entries = append(entries, Entry{
			FilePath: paths.Normalize(file),
			Score:    f.Centrality + f.Churn + f.Size + f.Exports + f.IsEntry,
			Factors:  f,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].FilePath < entries[j].FilePath
	})

	ix.doc = &Document{
		Version:   docVersion,
		CreatedAt: time.Now().UTC(),
		TopK:      topK,
		Files:     entries,
	}

	ix.logger.Info("importance index built", "files", len(entries), "topK", topK)

	if err := ix.state.Save(docName, ix.doc); err != nil {
		return nil, err
	}
	return ix.doc, nil
}

// Index returns the persisted index, or nil when none has been built.
func (ix *Indexer) Index() *Document {
	if ix.doc != nil {
		return ix.doc
	}
	var doc Document
	if ix.state.Load(docName, docVersion, &doc) {
		ix.doc = &doc
		return ix.doc
	}
	return nil
}

// IsInTopK reports whether a file ranks within the first k entries. With no
// index built, every file passes (the signal degrades open).
func (ix *Indexer) IsInTopK(path string, k int) bool {
	doc := ix.Index()
	if doc == nil {
		return true
	}
	if k <= 0 || k > len(doc.Files) {
		k = len(doc.Files)
	}
	for _, e := range doc.Files[:k] {
		if paths.Match(path, e.FilePath) {
			return true
		}
	}
	return false
}

// sizeScore is an inverse-U over file length: mid-sized files score highest,
// trivial and huge files taper off.
func sizeScore(lines int) int {
	switch {
	case lines < 10:
		return 5
	case lines < 50:
		return 10
	case lines < 100:
		return 20
	case lines < 300:
		return 15
	case lines < 1000:
		return 10
	default:
		return 5
	}
}

func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
	}
	return count
}

func countExports(path string) int {
	sigs, err := contracts.ExtractSignatures(path)
	if err != nil {
		return 0
	}
	return len(sigs)
}

func capInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}
