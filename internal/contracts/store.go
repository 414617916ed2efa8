package contracts

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"readgate/internal/paths"
	"readgate/internal/state"
)

const (
	docName    = "contracts.json"
	docVersion = 1
)

// FileContract fingerprints a file's public surface: its ordered exported
// signatures and a hash over their text. Implementation-only edits leave
// the hash unchanged.
type FileContract struct {
	FilePath    string          `json:"filePath"`
	ContentHash string          `json:"contentHash"`
	Signatures  []SignatureInfo `json:"signatures"`
	LastChecked time.Time       `json:"lastChecked"`
}

// Document is the persisted contract snapshot store, keyed by normalized
// repo-relative path.
type Document struct {
	Version   int                      `json:"version"`
	CreatedAt time.Time                `json:"createdAt"`
	Files     map[string]*FileContract `json:"files"`
}

// Diff describes how a file's contract changed between two snapshots.
type Diff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Unchanged int      `json:"unchanged"`
}

// Changed reports whether the diff contains any surface change.
func (d Diff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// UpdateResult pairs the freshly captured contract with the diff against
// the previous snapshot.
type UpdateResult struct {
	Contract *FileContract `json:"contract"`
	Diff     Diff          `json:"diff"`
}

// Store captures and persists per-file contract snapshots.
type Store struct {
	repoRoot string
	state    *state.Store
	logger   *slog.Logger
	doc      *Document
}

// NewStore creates a contract store for a repository.
func NewStore(repoRoot string, st *state.Store, logger *slog.Logger) *Store {
	return &Store{repoRoot: repoRoot, state: st, logger: logger}
}

func (s *Store) document() *Document {
	if s.doc != nil {
		return s.doc
	}
	var doc Document
	if s.state.Load(docName, docVersion, &doc) && doc.Files != nil {
		s.doc = &doc
		return s.doc
	}
	s.doc = &Document{
		Version:   docVersion,
		CreatedAt: time.Now().UTC(),
		Files:     map[string]*FileContract{},
	}
	return s.doc
}

// Capture extracts the current contract of a file without persisting it.
// The extraction is fully recomputed on every call; the hash is
// deterministic for identical content.
func (s *Store) Capture(filePath string) (*FileContract, error) {
	canonical, err := paths.Canonicalize(filePath, s.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize %s: %w", filePath, err)
	}

	sigs, err := ExtractSignatures(filepath.Join(s.repoRoot, filepath.FromSlash(canonical)))
	if err != nil {
		return nil, fmt.Errorf("failed to extract signatures from %s: %w", filePath, err)
	}

	return &FileContract{
		FilePath:    canonical,
		ContentHash: hashSignatures(sigs),
		Signatures:  sigs,
		LastChecked: time.Now().UTC(),
	}, nil
}

// Snapshot returns the stored contract for a file, or nil when none exists.
func (s *Store) Snapshot(filePath string) *FileContract {
	canonical, err := paths.Canonicalize(filePath, s.repoRoot)
	if err != nil {
		return nil
	}
	return s.document().Files[canonical]
}

// Compare diffs an old contract against a new one by signature name. A nil
// old contract means first capture: everything counts as added.
func Compare(old, new *FileContract) Diff {
	diff := Diff{Added: []string{}, Removed: []string{}, Modified: []string{}}

	oldByName := map[string]SignatureInfo{}
	if old != nil {
		for _, sig := range old.Signatures {
			oldByName[sig.Name] = sig
		}
	}

	seen := map[string]bool{}
	for _, sig := range new.Signatures {
		seen[sig.Name] = true
		prev, ok := oldByName[sig.Name]
		switch {
		case !ok:
			diff.Added = append(diff.Added, sig.Name)
		case prev.Signature != sig.Signature:
			diff.Modified = append(diff.Modified, sig.Name)
		default:
			diff.Unchanged++
		}
	}

	for _, sig := range oldSignatures(old) {
		if !seen[sig.Name] {
			diff.Removed = append(diff.Removed, sig.Name)
		}
	}

	return diff
}

// HasChanged reports whether a file's public surface differs from its stored
// snapshot. A file with no snapshot counts as changed.
func (s *Store) HasChanged(filePath string) (bool, error) {
	current, err := s.Capture(filePath)
	if err != nil {
		return false, err
	}
	stored := s.Snapshot(filePath)
	if stored == nil {
		return true, nil
	}
	return stored.ContentHash != current.ContentHash, nil
}

// Update captures a fresh contract, diffs it against the stored snapshot,
// replaces the snapshot, and persists the document.
func (s *Store) Update(filePath string) (*UpdateResult, error) {
	current, err := s.Capture(filePath)
	if err != nil {
		return nil, err
	}

	doc := s.document()
	old := doc.Files[current.FilePath]
	diff := Compare(old, current)

	doc.Files[current.FilePath] = current
	if err := s.state.Save(docName, doc); err != nil {
		return nil, err
	}

	if diff.Changed() {
		s.logger.Info("contract updated",
			"file", current.FilePath,
			"added", len(diff.Added),
			"removed", len(diff.Removed),
			"modified", len(diff.Modified))
	}

	return &UpdateResult{Contract: current, Diff: diff}, nil
}

func oldSignatures(old *FileContract) []SignatureInfo {
	if old == nil {
		return nil
	}
	return old.Signatures
}

// hashSignatures hashes the ordered signature-text list. Only the set and
// text of exported signatures move the hash.
func hashSignatures(sigs []SignatureInfo) string {
	var b strings.Builder
	for _, sig := range sigs {
		b.WriteString(sig.Signature)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}
