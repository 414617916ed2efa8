package graph

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// BuildOptions controls a graph scan.
type BuildOptions struct {
	Ignore           []string
	EntryPoints      []string
	MaxFileSizeBytes int64
}

const defaultMaxFileSize = 1 << 20

var defaultSkipDirs = map[string]bool{
	".git":         true,
	".readgate":    true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

var sourceExtensions = map[string]bool{
	".go":  true,
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".py":  true,
}

var (
	tsImportRe  = regexp.MustCompile(`^\s*import\s+(?:[\w${},*\s]+from\s+)?["']([^"']+)["']`)
	tsExportRe  = regexp.MustCompile(`^\s*export\s+[\w${},*\s]+from\s+["']([^"']+)["']`)
	tsRequireRe = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)

	goImportRe      = regexp.MustCompile(`^\s*import\s+(?:\w+\s+)?"([^"]+)"`)
	goImportBlockRe = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"([^"]+)"`)

	pyFromRe   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+([\w.]+)`)

	goModuleRe = regexp.MustCompile(`^module\s+(\S+)`)
)

// Build scans the repository, resolves intra-repo imports, and persists the
// resulting graph. Unresolvable specifiers (third-party packages, stdlib) are
// dropped silently.
func (g *Graph) Build(repoRoot string, opts BuildOptions) (*Document, error) {
	maxSize := opts.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	files, err := collectSourceFiles(repoRoot, opts.Ignore, maxSize)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	fileSet := make(map[string]bool, len(files))
	for _, f := range files {
		fileSet[f] = true
	}
	goModule := readGoModule(repoRoot)

	doc := &Document{
		Version:     docVersion,
		CreatedAt:   time.Now().UTC(),
		EntryPoints: opts.EntryPoints,
		Files:       make(map[string]*Node, len(files)),
	}
	for _, f := range files {
		doc.Files[f] = &Node{}
	}

	for _, file := range files {
		specs, err := extractImports(filepath.Join(repoRoot, filepath.FromSlash(file)), path.Ext(file))
		if err != nil {
			g.logger.Warn("skipping unreadable file during graph scan", "file", file, "error", err)
			continue
		}
		targets := make(map[string]bool)
		for _, spec := range specs {
			for _, target := range resolveImport(file, spec, fileSet, goModule) {
				if target != file {
					targets[target] = true
				}
			}
		}
		for target := range targets {
			doc.Files[file].Imports = append(doc.Files[file].Imports, target)
			doc.Files[target].ImportedBy = append(doc.Files[target].ImportedBy, file)
		}
	}

	for _, n := range doc.Files {
		sort.Strings(n.Imports)
		sort.Strings(n.ImportedBy)
	}

	g.logger.Info("import graph built", "files", len(doc.Files))

	if err := g.state.Save(docName, doc); err != nil {
		return nil, err
	}
	g.doc = doc
	return doc, nil
}

func collectSourceFiles(repoRoot string, ignore []string, maxSize int64) ([]string, error) {
	var files []string
	err := filepath.WalkDir(repoRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(repoRoot, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if defaultSkipDirs[d.Name()] || isIgnored(rel, ignore) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[path.Ext(rel)] || isIgnored(rel, ignore) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxSize {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isIgnored(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
		if strings.HasPrefix(rel, strings.TrimSuffix(pat, "/")+"/") {
			return true
		}
	}
	return false
}

func readGoModule(repoRoot string) string {
	data, err := os.ReadFile(filepath.Join(repoRoot, "go.mod"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if m := goModuleRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractImports pulls raw import specifiers from one source file.
func extractImports(fullPath, ext string) ([]string, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var specs []string
	inGoBlock := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch ext {
		case ".go":
			if inGoBlock {
				if strings.TrimSpace(line) == ")" {
					inGoBlock = false
					continue
				}
				if m := goImportBlockRe.FindStringSubmatch(line); m != nil {
					specs = append(specs, m[1])
				}
				continue
			}
			if strings.HasPrefix(strings.TrimSpace(line), "import (") {
				inGoBlock = true
				continue
			}
			if m := goImportRe.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			}
		case ".py":
			if m := pyFromRe.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			} else if m := pyImportRe.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			}
		default:
			if m := tsImportRe.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			}
			if m := tsExportRe.FindStringSubmatch(line); m != nil {
				specs = append(specs, m[1])
			}
			for _, m := range tsRequireRe.FindAllStringSubmatch(line, -1) {
				specs = append(specs, m[1])
			}
		}
	}
	return specs, scanner.Err()
}

// resolveImport maps a specifier onto repo files. A TypeScript relative
// import resolves to at most one file; a Go package import fans out to every
// file in the target package.
func resolveImport(from, spec string, fileSet map[string]bool, goModule string) []string {
	switch {
	case strings.HasPrefix(spec, "."):
		if strings.HasSuffix(from, ".py") {
			return resolvePythonRelative(from, spec, fileSet)
		}
		return resolveScriptRelative(from, spec, fileSet)
	case goModule != "" && (spec == goModule || strings.HasPrefix(spec, goModule+"/")):
		return resolveGoPackage(spec, fileSet, goModule)
	default:
		// Bare specifiers: try a dotted Python module path; anything else is
		// third-party or stdlib and drops out of the graph.
		return resolvePythonModule(spec, fileSet)
	}
}

var scriptSuffixes = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

func resolveScriptRelative(from, spec string, fileSet map[string]bool) []string {
	base := path.Join(path.Dir(from), spec)
	for _, suffix := range scriptSuffixes {
		if candidate := base + suffix; fileSet[candidate] {
			return []string{candidate}
		}
	}
	return nil
}

func resolveGoPackage(spec string, fileSet map[string]bool, goModule string) []string {
	dir := strings.TrimPrefix(strings.TrimPrefix(spec, goModule), "/")
	var files []string
	for f := range fileSet {
		if path.Ext(f) != ".go" || strings.HasSuffix(f, "_test.go") {
			continue
		}
		if path.Dir(f) == dir || (dir == "" && path.Dir(f) == ".") {
			files = append(files, f)
		}
	}
	return files
}

func resolvePythonModule(spec string, fileSet map[string]bool) []string {
	rel := strings.ReplaceAll(spec, ".", "/")
	for _, candidate := range []string{rel + ".py", rel + "/__init__.py"} {
		if fileSet[candidate] {
			return []string{candidate}
		}
	}
	return nil
}

func resolvePythonRelative(from, spec string, fileSet map[string]bool) []string {
	dots := 0
	for dots < len(spec) && spec[dots] == '.' {
		dots++
	}
	dir := path.Dir(from)
	for i := 1; i < dots; i++ {
		dir = path.Dir(dir)
	}
	rest := strings.ReplaceAll(spec[dots:], ".", "/")
	base := dir
	if rest != "" {
		base = path.Join(dir, rest)
	}
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		if fileSet[candidate] {
			return []string{candidate}
		}
	}
	return nil
}
