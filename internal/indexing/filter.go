package indexing

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/prism-search/prism/internal/types"
)

// deniedDirs are path segments that are never descended into or indexed.
// The set is fixed at compile time; user config can only add exclusions.
var deniedDirs = map[string]bool{
	"node_modules":     true,
	".git":             true,
	"dist":             true,
	"build":            true,
	"coverage":         true,
	".next":            true,
	types.StateDirName: true,
}

// languageByExt maps allowed extensions to their language tag. A path
// whose extension is absent from this map is not eligible for indexing.
var languageByExt = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".cs":   "csharp",
	".php":  "php",
	".rb":   "ruby",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

// markupLanguages get the reduced config/markup language weight.
var markupLanguages = map[string]bool{
	"markdown": true,
	"json":     true,
	"yaml":     true,
}

// PathFilter decides whether a relative path is eligible for indexing.
// Paths are slash-separated and relative to the project root.
type PathFilter struct {
	extraExcludes []string // doublestar patterns from config
}

// NewPathFilter creates a filter with optional extra exclude patterns.
// Invalid patterns are dropped rather than failing the filter.
func NewPathFilter(extraExcludes []string) *PathFilter {
	valid := make([]string, 0, len(extraExcludes))
	for _, p := range extraExcludes {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return &PathFilter{extraExcludes: valid}
}

// Eligible reports whether relPath should be indexed. It never fails;
// malformed input yields false.
func (f *PathFilter) Eligible(relPath string) bool {
	if relPath == "" || strings.HasPrefix(relPath, "/") || strings.Contains(relPath, "\\") {
		return false
	}

	segments := strings.Split(relPath, "/")
	for _, seg := range segments {
		if seg == "" || seg == ".." {
			return false
		}
		if deniedDirs[seg] {
			return false
		}
	}

	ext := strings.ToLower(path.Ext(segments[len(segments)-1]))
	if _, ok := languageByExt[ext]; !ok {
		return false
	}

	for _, pattern := range f.extraExcludes {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return false
		}
	}

	return true
}

// DeniedDir reports whether a single directory name is in the fixed
// deny-set. The scanner uses this to prune whole subtrees.
func (f *PathFilter) DeniedDir(name string) bool {
	return deniedDirs[name]
}

// LanguageFor returns the language tag for a path, or "" when the
// extension is not in the allow-set.
func LanguageFor(p string) string {
	return languageByExt[strings.ToLower(path.Ext(p))]
}

// LanguageWeight returns the intrinsic salience weight of a language tag:
// full weight for code languages, reduced for config/markup, and a floor
// for anything unrecognized.
func LanguageWeight(language string) float64 {
	switch {
	case language == "":
		return types.OtherLanguageWeight
	case markupLanguages[language]:
		return types.MarkupLanguageWeight
	default:
		return types.CodeLanguageWeight
	}
}
