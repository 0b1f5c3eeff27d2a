package indexing

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
)

// ScannedFile is one eligible file emitted by a walk: the canonical
// slash-separated relative path and the raw bytes.
type ScannedFile struct {
	Path string
	Data []byte
}

// ScanStats counts what a walk skipped or failed on. Per-file problems
// never fail the walk.
type ScanStats struct {
	Oversized  int64
	ReadErrors int64
}

// Scanner walks the project root and streams eligible file contents.
type Scanner struct {
	cfg    *config.Config
	filter *PathFilter
}

// NewScanner creates a scanner over the configured project root.
func NewScanner(cfg *config.Config, filter *PathFilter) *Scanner {
	return &Scanner{cfg: cfg, filter: filter}
}

// Walk traverses the root and returns every eligible file with its
// contents, in walk (lexical path) order. Symlinks, unreadable entries,
// and files over the byte cap are skipped and counted; the walk itself
// fails only when the root is inaccessible. ctx cancels between files.
func (sc *Scanner) Walk(ctx context.Context) ([]ScannedFile, ScanStats, error) {
	var stats ScanStats
	root := sc.cfg.Project.Root

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, stats, fmt.Errorf("%w: %s", ErrRootInaccessible, root)
	}

	type candidate struct {
		rel  string
		size int64
	}
	var candidates []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("%w: %v", ErrRootInaccessible, err)
			}
			return nil // unreadable entry, keep walking
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != root && sc.filter.DeniedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are never followed
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !sc.filter.Eligible(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			atomic.AddInt64(&stats.ReadErrors, 1)
			return nil
		}
		if info.Size() > sc.cfg.Index.MaxFileSize {
			log.Printf("Skipping oversized file %s (%d bytes > %d limit)", rel, info.Size(), sc.cfg.Index.MaxFileSize)
			atomic.AddInt64(&stats.Oversized, 1)
			return nil
		}

		candidates = append(candidates, candidate{rel: rel, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	debug.LogIndexing("walk found %d candidate files under %s\n", len(candidates), root)

	// Read contents in parallel; slots keep walk order so emission is
	// deterministic and duplicate-free.
	slots := make([]*ScannedFile, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, c := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(c.rel)))
			if err != nil {
				log.Printf("Skipping unreadable file %s: %v", c.rel, err)
				atomic.AddInt64(&stats.ReadErrors, 1)
				return nil
			}
			// Size may have grown between stat and read
			if int64(len(data)) > sc.cfg.Index.MaxFileSize {
				atomic.AddInt64(&stats.Oversized, 1)
				return nil
			}
			slots[i] = &ScannedFile{Path: c.rel, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	files := make([]ScannedFile, 0, len(slots))
	for _, sf := range slots {
		if sf != nil {
			files = append(files, *sf)
		}
	}
	return files, stats, nil
}

// ReadFile reads one file under the root, applying the same byte cap as
// a walk. Used by watcher dispatches and single-file updates.
func (sc *Scanner) ReadFile(relPath string) ([]byte, error) {
	full := filepath.Join(sc.cfg.Project.Root, filepath.FromSlash(relPath))

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.Size() > sc.cfg.Index.MaxFileSize {
		return nil, fmt.Errorf("file %s exceeds size cap (%d > %d)", relPath, info.Size(), sc.cfg.Index.MaxFileSize)
	}

	return os.ReadFile(full)
}
