package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prism-search/prism/internal/types"
)

func TestEligible_AllowedExtensions(t *testing.T) {
	f := NewPathFilter(nil)

	tests := []struct {
		path     string
		eligible bool
	}{
		{"main.go", true},
		{"src/app.ts", true},
		{"src/App.tsx", true},
		{"README.md", true},
		{"config.yaml", true},
		{"config.yml", true},
		{"data.json", true},
		{"lib.rs", true},
		{"Service.java", true},
		{"Program.cs", true},
		{"index.php", true},
		{"app.rb", true},
		{"binary.exe", false},
		{"image.png", false},
		{"Makefile", false},
		{"noext", false},
		{"archive.tar.gz", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.eligible, f.Eligible(tc.path))
		})
	}
}

func TestEligible_DeniedDirectories(t *testing.T) {
	f := NewPathFilter(nil)

	tests := []string{
		"node_modules/lodash/index.js",
		".git/hooks/pre-commit.py",
		"dist/bundle.js",
		"build/output.go",
		"coverage/report.json",
		".next/static/chunk.js",
		types.StateDirName + "/index.snap",
		"packages/app/node_modules/dep/main.js",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			assert.False(t, f.Eligible(path))
		})
	}

	// Denied names only match whole segments
	assert.True(t, f.Eligible("distillery/main.go"))
	assert.True(t, f.Eligible("builders/factory.go"))
}

func TestEligible_MalformedPaths(t *testing.T) {
	f := NewPathFilter(nil)

	tests := []string{
		"",
		"/etc/passwd.go",
		"../outside.go",
		"src/../escape.go",
		"src//double.go",
		"src\\windows.go",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			assert.False(t, f.Eligible(path))
		})
	}
}

func TestEligible_ExtraExcludes(t *testing.T) {
	f := NewPathFilter([]string{"**/testdata/**", "vendor/**"})

	assert.False(t, f.Eligible("pkg/testdata/sample.go"))
	assert.False(t, f.Eligible("vendor/dep/main.go"))
	assert.True(t, f.Eligible("pkg/real/sample.go"))
}

func TestNewPathFilter_DropsInvalidPatterns(t *testing.T) {
	// An unterminated character class is invalid; the filter must keep
	// working rather than reject everything or panic.
	f := NewPathFilter([]string{"[invalid", "**/skip/**"})

	assert.True(t, f.Eligible("main.go"))
	assert.False(t, f.Eligible("a/skip/b.go"))
}

func TestLanguageWeight(t *testing.T) {
	assert.Equal(t, types.CodeLanguageWeight, LanguageWeight("go"))
	assert.Equal(t, types.CodeLanguageWeight, LanguageWeight("typescript"))
	assert.Equal(t, types.MarkupLanguageWeight, LanguageWeight("markdown"))
	assert.Equal(t, types.MarkupLanguageWeight, LanguageWeight("json"))
	assert.Equal(t, types.MarkupLanguageWeight, LanguageWeight("yaml"))
	assert.Equal(t, types.OtherLanguageWeight, LanguageWeight(""))
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", LanguageFor("cmd/main.go"))
	assert.Equal(t, "typescript", LanguageFor("src/App.TSX"))
	assert.Equal(t, "", LanguageFor("noext"))
}
