package contracts

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// Kind classifies an extracted signature.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindConst     Kind = "const"
	KindMethod    Kind = "method"
)

// SignatureInfo is one extracted declaration, in source-line order.
type SignatureInfo struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Signature string `json:"signature"`
	Exported  bool   `json:"exported"`
	Line      int    `json:"line"`
}

// sigRule is one entry in the line-oriented extraction table. The first
// capture group is the declared name. Extraction is deliberately not
// AST-based: a contract only cares about the declared line of an exported
// symbol, so reordering unrelated code or editing bodies never registers.
type sigRule struct {
	kind Kind
	re   *regexp.Regexp
}

var tsRules = []sigRule{
	{KindFunction, regexp.MustCompile(`^export\s+(?:default\s+)?(?:async\s+)?function\s+([A-Za-z_$][\w$]*)`)},
	{KindClass, regexp.MustCompile(`^export\s+(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)},
	{KindInterface, regexp.MustCompile(`^export\s+interface\s+([A-Za-z_$][\w$]*)`)},
	{KindType, regexp.MustCompile(`^export\s+type\s+([A-Za-z_$][\w$]*)`)},
	{KindConst, regexp.MustCompile(`^export\s+(?:const|let|var)\s+([A-Za-z_$][\w$]*)`)},
}

var goRules = []sigRule{
	{KindMethod, regexp.MustCompile(`^func\s+\([^)]+\)\s+([A-Z]\w*)\s*\(`)},
	{KindFunction, regexp.MustCompile(`^func\s+([A-Z]\w*)\s*\(`)},
	{KindInterface, regexp.MustCompile(`^type\s+([A-Z]\w*)\s+interface\b`)},
	{KindType, regexp.MustCompile(`^type\s+([A-Z]\w*)\b`)},
	{KindConst, regexp.MustCompile(`^(?:const|var)\s+([A-Z]\w*)\b`)},
}

var pyRules = []sigRule{
	{KindFunction, regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z]\w*)\s*\(`)},
	{KindClass, regexp.MustCompile(`^class\s+([A-Za-z]\w*)`)},
	{KindConst, regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*=`)},
}

// langTable pairs an extraction table with its export convention.
type langTable struct {
	rules []sigRule
	// underscorePrivate marks names with a leading underscore as private
	// (Python convention). Go and TS tables select exported declarations
	// through the patterns themselves.
	underscorePrivate bool
}

// rulesFor picks the extraction table by file extension. Unknown extensions
// fall back to the TypeScript table, which also covers plain JavaScript.
func rulesFor(path string) langTable {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".go"):
		return langTable{rules: goRules}
	case strings.HasSuffix(lower, ".py"):
		return langTable{rules: pyRules, underscorePrivate: true}
	default:
		return langTable{rules: tsRules}
	}
}

// ExtractSignatures scans a file line by line against the extraction table
// for its language. Only exported, top-level declarations are returned, in
// source-line order.
func ExtractSignatures(filePath string) ([]SignatureInfo, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := rulesFor(filePath)

	var sigs []SignatureInfo
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		for _, rule := range table.rules {
			m := rule.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			if table.underscorePrivate && strings.HasPrefix(name, "_") {
				continue
			}
			sigs = append(sigs, SignatureInfo{
				Name:      name,
				Kind:      rule.kind,
				Signature: signatureText(line),
				Exported:  true,
				Line:      lineNum,
			})
			break
		}
	}

	return sigs, scanner.Err()
}

// signatureText reduces a declaration line to its stable shape: trailing
// block openers and whitespace are stripped so formatting churn around the
// brace does not move the hash.
func signatureText(line string) string {
	s := strings.TrimRight(strings.TrimSpace(line), " \t")
	s = strings.TrimSuffix(s, "{")
	s = strings.TrimSuffix(s, ":")
	return strings.TrimRight(s, " \t")
}
