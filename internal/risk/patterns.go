package risk

import "regexp"

// Category groups related risk patterns. Each category contributes at most
// CategoryCap points to a file's total score.
type Category string

const (
	CategorySecurity     Category = "security"
	CategoryPerformance  Category = "performance"
	CategoryComplexity   Category = "complexity"
	CategoryExternal     Category = "external"
	CategoryDataHandling Category = "dataHandling"
)

// CategoryCap bounds each category's contribution to the total score.
const CategoryCap = 25

// Categories lists every category in report order.
var Categories = []Category{
	CategorySecurity,
	CategoryPerformance,
	CategoryComplexity,
	CategoryExternal,
	CategoryDataHandling,
}

// Pattern defines one line-level risk signal.
type Pattern struct {
	Name        string
	Category    Category
	Weight      int
	Regex       *regexp.Regexp
	Description string
}

// BuiltinPatterns contains the default risk signals. Custom patterns can be
// layered on top via a YAML override file.
var BuiltinPatterns = []Pattern{
	// ============ Security ============
	{
		Name:        "hardcoded_api_key",
		Category:    CategorySecurity,
		Weight:      20,
		Regex:       regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)\s*[:=]\s*["'][^"']+["']`),
		Description: "API key assigned to a literal string",
	},
	{
		Name:        "hardcoded_password",
		Category:    CategorySecurity,
		Weight:      20,
		Regex:       regexp.MustCompile(`(?i)password\s*[:=]\s*["'][^"']{4,}["']`),
		Description: "Password assigned to a literal string",
	},
	{
		Name:        "hardcoded_secret",
		Category:    CategorySecurity,
		Weight:      15,
		Regex:       regexp.MustCompile(`(?i)(?:secret|token)\s*[:=]\s*["'][A-Za-z0-9/+=_-]{8,}["']`),
		Description: "Secret or token assigned to a literal string",
	},
	{
		Name:        "eval_call",
		Category:    CategorySecurity,
		Weight:      15,
		Regex:       regexp.MustCompile(`\beval\s*\(`),
		Description: "Dynamic code evaluation",
	},
	{
		Name:        "shell_exec",
		Category:    CategorySecurity,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:child_process|subprocess\.|exec\.Command|execSync)`),
		Description: "Shell or subprocess execution",
	},
	{
		Name:        "sql_concat",
		Category:    CategorySecurity,
		Weight:      15,
		Regex:       regexp.MustCompile(`(?i)(?:SELECT|INSERT|UPDATE|DELETE)\b[^"']*["'][^"']*["']\s*\+`),
		Description: "SQL assembled by string concatenation",
	},

	// ============ Performance ============
	{
		Name:        "sync_io",
		Category:    CategoryPerformance,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:readFileSync|writeFileSync|execFileSync)`),
		Description: "Blocking synchronous I/O",
	},
	{
		Name:        "busy_loop",
		Category:    CategoryPerformance,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:for\s*\(\s*;\s*;\s*\)|while\s*\(\s*true\s*\)|while\s+True\s*:)`),
		Description: "Unbounded loop",
	},
	{
		Name:        "sleep_call",
		Category:    CategoryPerformance,
		Weight:      5,
		Regex:       regexp.MustCompile(`(?:time\.Sleep|time\.sleep|setTimeout)\s*\(`),
		Description: "Timing-based wait",
	},
	{
		Name:        "large_alloc",
		Category:    CategoryPerformance,
		Weight:      10,
		Regex:       regexp.MustCompile(`make\(\[\][A-Za-z0-9]+,\s*\d{7,}`),
		Description: "Very large slice allocation",
	},

	// ============ Complexity ============
	{
		Name:        "deep_nesting",
		Category:    CategoryComplexity,
		Weight:      10,
		Regex:       regexp.MustCompile(`^(?:\t{5,}|[ ]{20,})\S`),
		Description: "Deeply nested code",
	},
	{
		Name:        "goto_statement",
		Category:    CategoryComplexity,
		Weight:      10,
		Regex:       regexp.MustCompile(`\bgoto\s+\w+`),
		Description: "Unstructured jump",
	},
	{
		Name:        "nested_ternary",
		Category:    CategoryComplexity,
		Weight:      10,
		Regex:       regexp.MustCompile(`\?[^:?]*\?[^:]*:`),
		Description: "Nested ternary expression",
	},
	{
		Name:        "long_line",
		Category:    CategoryComplexity,
		Weight:      5,
		Regex:       regexp.MustCompile(`^.{200,}`),
		Description: "Line over 200 characters",
	},

	// ============ External ============
	{
		Name:        "network_client",
		Category:    CategoryExternal,
		Weight:      10,
		Regex:       regexp.MustCompile(`\b(?:fetch|axios\.\w+|http\.Get|http\.Post|requests\.(?:get|post|put|delete))\s*\(`),
		Description: "Outbound network call",
	},
	{
		Name:        "raw_socket",
		Category:    CategoryExternal,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:net\.Dial|socket\.socket)\s*\(`),
		Description: "Raw socket connection",
	},
	{
		Name:        "url_literal",
		Category:    CategoryExternal,
		Weight:      5,
		Regex:       regexp.MustCompile(`https?://[^\s"']+`),
		Description: "Hardcoded URL",
	},
	{
		Name:        "env_access",
		Category:    CategoryExternal,
		Weight:      5,
		Regex:       regexp.MustCompile(`(?:os\.Getenv|process\.env|os\.environ)`),
		Description: "Environment variable access",
	},

	// ============ Data handling ============
	{
		Name:        "file_delete",
		Category:    CategoryDataHandling,
		Weight:      15,
		Regex:       regexp.MustCompile(`(?:os\.RemoveAll|os\.Remove|shutil\.rmtree|\brm\s+-rf\b|unlinkSync)`),
		Description: "File or directory deletion",
	},
	{
		Name:        "file_write",
		Category:    CategoryDataHandling,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:os\.WriteFile|writeFile\(|open\([^)]*,\s*["']w)`),
		Description: "File write",
	},
	{
		Name:        "unsafe_deserialize",
		Category:    CategoryDataHandling,
		Weight:      10,
		Regex:       regexp.MustCompile(`(?:pickle\.loads?|yaml\.load\(|JSON\.parse\()`),
		Description: "Deserialization of external data",
	},
	{
		Name:        "global_mutation",
		Category:    CategoryDataHandling,
		Weight:      5,
		Regex:       regexp.MustCompile(`^\s*global\s+\w+`),
		Description: "Global state mutation",
	},
}
