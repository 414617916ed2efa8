package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize converts a path to canonical form: forward slashes, cleaned,
// no leading "./". Relative paths stay relative; absolute paths stay absolute.
func Normalize(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(cleaned, "./")
}

// Canonicalize converts an absolute or relative path to a repo-relative
// canonical path with forward slashes. Symlinks are resolved when the file
// exists; missing files are canonicalized as-is so stores can reference
// files that are not yet on disk.
func Canonicalize(path string, repoRoot string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(repoRoot, path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = abs
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = repoRoot
		} else {
			return "", err
		}
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// Match reports whether two paths identify the same file under the suffix
// policy: the normalized paths are equal, or one is a suffix of the other
// starting at a "/" boundary. This tolerates relative/absolute variance
// ("src/parser.ts" matches "/repo/src/parser.ts") without the over-matching
// of plain substring containment ("a/b.ts" never matches "a/bb.ts").
func Match(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" || na == "." || nb == "." {
		return false
	}
	if na == nb {
		return true
	}
	return suffixAtBoundary(na, nb) || suffixAtBoundary(nb, na)
}

// MatchAny reports whether path matches any entry in candidates.
func MatchAny(path string, candidates []string) bool {
	for _, c := range candidates {
		if Match(path, c) {
			return true
		}
	}
	return false
}

// suffixAtBoundary reports whether short is a suffix of long beginning
// immediately after a path separator.
func suffixAtBoundary(long, short string) bool {
	if len(long) <= len(short) {
		return false
	}
	if !strings.HasSuffix(long, short) {
		return false
	}
	return long[len(long)-len(short)-1] == '/'
}

// IsWithinRepo checks if a path is inside the repository root.
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := Canonicalize(path, repoRoot)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(canonical, "..")
}

// Basename returns the final path element of a normalized path.
func Basename(path string) string {
	n := Normalize(path)
	if i := strings.LastIndex(n, "/"); i >= 0 {
		return n[i+1:]
	}
	return n
}
