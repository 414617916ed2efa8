package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// StateDirName is the directory under the repo root holding all persisted
// readgate documents.
const StateDirName = ".readgate"

// Store reads and writes versioned JSON documents under the state directory.
// Loads fail open: a missing, unparsable, or version-mismatched document is
// treated as absent, with a warning logged so silent resets stay diagnosable.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a store rooted at <repoRoot>/.readgate.
func NewStore(repoRoot string, logger *slog.Logger) *Store {
	return &Store{
		dir:    filepath.Join(repoRoot, StateDirName),
		logger: logger,
	}
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path for a named document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// versionEnvelope extracts only the version field for the pre-decode check.
type versionEnvelope struct {
	Version int `json:"version"`
}

// Load decodes the named document into out. Returns true when a valid
// document with the expected version was loaded. Missing and corrupt
// documents both return false with out untouched.
func (s *Store) Load(name string, version int, out interface{}) bool {
	path := s.Path(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state document unreadable, treating as absent",
				"document", name, "error", err)
		}
		return false
	}

	var env versionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("state document corrupt, resetting",
			"document", name, "error", err)
		return false
	}
	if env.Version != version {
		s.logger.Warn("state document version mismatch, resetting",
			"document", name, "found", env.Version, "expected", version)
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("state document corrupt, resetting",
			"document", name, "error", err)
		return false
	}

	return true
}

// Save writes the document atomically: marshal, write to a temp file in the
// same directory, then rename over the target. A crash mid-write leaves the
// previous document intact.
func (s *Store) Save(name string, doc interface{}) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}

// Remove deletes the named document. Missing documents are not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
