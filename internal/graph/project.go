package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ProjectFileName is the optional per-repository declaration file.
const ProjectFileName = "readgate.toml"

// ProjectFile is the parsed readgate.toml declaration.
type ProjectFile struct {
	Graph ProjectGraph `toml:"graph"`
}

// ProjectGraph declares scan exclusions and known entry points.
type ProjectGraph struct {
	Ignore      []string `toml:"ignore"`
	EntryPoints []string `toml:"entry_points"`
}

// LoadProjectFile reads readgate.toml from the repository root. A missing
// file is not an error; the zero value applies.
func LoadProjectFile(repoRoot string) (*ProjectFile, error) {
	p := filepath.Join(repoRoot, ProjectFileName)
	var pf ProjectFile
	if _, err := toml.DecodeFile(p, &pf); err != nil {
		if os.IsNotExist(err) {
			return &pf, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", ProjectFileName, err)
	}
	return &pf, nil
}
