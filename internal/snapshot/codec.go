// Package snapshot persists the index to a single on-disk artifact.
// The body is JSON, optionally gzip-compressed, behind a one-byte
// header that records which of the two encodings follows. The inverted
// index is never persisted; it is rebuilt from the stored line records.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/types"
)

// Index is the self-describing on-disk form of the index store.
type Index struct {
	Version     string            `json:"version"`
	IndexedAt   time.Time         `json:"indexed_at"`
	ProjectRoot string            `json:"project_root"`
	FileCount   int               `json:"file_count"`
	Files       []File            `json:"files"`
	FileHashes  map[string]string `json:"file_hashes"`
}

// File carries one file record without its postings.
type File struct {
	Path      string `json:"path"`
	Language  string `json:"language"`
	LineCount int    `json:"line_count"`
	Lines     []Line `json:"lines"`
}

// Line is one stored line record.
type Line struct {
	Idx    int    `json:"idx"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// Save writes the snapshot atomically via write-to-temp-then-rename.
// Bodies above the compression threshold are gzip-compressed.
func Save(idx *Index, path string) error {
	body, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 1)

	if len(body) > types.CompressionThreshold {
		buf.WriteByte(types.SnapshotHeaderCompressed)
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
	} else {
		buf.WriteByte(types.SnapshotHeaderPlain)
		buf.Write(body)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snap-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to install snapshot: %w", err)
	}

	debug.LogIndexing("saved snapshot %s (%d files, %d bytes)\n", path, idx.FileCount, buf.Len())
	return nil
}

// Load reads a snapshot. It returns (nil, nil) — triggering a full
// rebuild — when the file is missing, fails to parse, or carries a
// version other than expectedVersion. Parse failures are logged, never
// fatal.
func Load(path, expectedVersion string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		log.Printf("Snapshot unreadable, rebuilding: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		log.Printf("Snapshot empty, rebuilding")
		return nil, nil
	}

	var body []byte
	switch data[0] {
	case types.SnapshotHeaderPlain:
		body = data[1:]
	case types.SnapshotHeaderCompressed:
		zr, err := gzip.NewReader(bytes.NewReader(data[1:]))
		if err != nil {
			log.Printf("Snapshot corrupt (bad gzip stream), rebuilding: %v", err)
			return nil, nil
		}
		body, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			log.Printf("Snapshot corrupt (truncated gzip stream), rebuilding: %v", err)
			return nil, nil
		}
	default:
		// Header byte missing: accept as plain iff it still parses.
		body = data
	}

	var idx Index
	if err := json.Unmarshal(body, &idx); err != nil {
		log.Printf("Snapshot corrupt, rebuilding: %v", err)
		return nil, nil
	}

	if idx.Version != expectedVersion {
		log.Printf("Snapshot version %q does not match expected %q, rebuilding", idx.Version, expectedVersion)
		return nil, nil
	}

	return &idx, nil
}
