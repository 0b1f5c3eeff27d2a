package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-search/prism/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newTestScanner(t *testing.T, root string) (*Scanner, *config.Config) {
	t.Helper()
	cfg := config.Default(root)
	filter := NewPathFilter(cfg.Exclude)
	return NewScanner(cfg, filter), cfg
}

func TestScanner_WalkCollectsEligibleFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "docs/readme.md", "# Docs\n")
	writeFile(t, root, "image.png", "not code")
	writeFile(t, root, "node_modules/dep/index.js", "skip me")
	writeFile(t, root, ".git/config.yaml", "skip me too")

	sc, _ := newTestScanner(t, root)
	files, stats, err := sc.Walk(context.Background())
	require.NoError(t, err)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	assert.Equal(t, []string{"docs/readme.md", "main.go"}, paths, "walk order is lexical")
	assert.Equal(t, "package main\n", string(files[1].Data))
	assert.Zero(t, stats.Oversized)
	assert.Zero(t, stats.ReadErrors)
}

func TestScanner_WalkSkipsOversized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "ok\n")

	sc, cfg := newTestScanner(t, root)
	cfg.Index.MaxFileSize = 16

	big := make([]byte, 17)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.go"), big, 0644))

	// Exactly at the cap is still indexed.
	atCap := make([]byte, 16)
	for i := range atCap {
		atCap[i] = 'y'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "cap.go"), atCap, 0644))

	files, stats, err := sc.Walk(context.Background())
	require.NoError(t, err)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{"cap.go", "small.go"}, paths)
	assert.Equal(t, int64(1), stats.Oversized)
}

func TestScanner_WalkSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real.go", "package real\n")
	require.NoError(t, os.Symlink(
		filepath.Join(root, "real.go"),
		filepath.Join(root, "link.go"),
	))

	sc, _ := newTestScanner(t, root)
	files, _, err := sc.Walk(context.Background())
	require.NoError(t, err)

	require.Len(t, files, 1)
	assert.Equal(t, "real.go", files[0].Path)
}

func TestScanner_WalkRootMissing(t *testing.T) {
	sc, _ := newTestScanner(t, filepath.Join(t.TempDir(), "does-not-exist"))

	_, _, err := sc.Walk(context.Background())
	assert.ErrorIs(t, err, ErrRootInaccessible)
}

func TestScanner_WalkCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "x\n")

	sc, _ := newTestScanner(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := sc.Walk(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_ReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/util.go", "package pkg\n")

	sc, cfg := newTestScanner(t, root)

	data, err := sc.ReadFile("pkg/util.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(data))

	_, err = sc.ReadFile("missing.go")
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg.Index.MaxFileSize = 4
	_, err = sc.ReadFile("pkg/util.go")
	assert.ErrorContains(t, err, "size cap")
}
