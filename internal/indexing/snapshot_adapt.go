package indexing

import (
	"time"

	"github.com/prism-search/prism/internal/snapshot"
	"github.com/prism-search/prism/internal/types"
	"github.com/prism-search/prism/internal/version"
)

// StoreFromSnapshot reconstructs a store from a loaded snapshot,
// rebuilding the inverted index from the stored line records. File
// array order follows snapshot order, so postings are reproducible.
func StoreFromSnapshot(snap *snapshot.Index) *Store {
	s := NewStore(snap.ProjectRoot)
	s.createdAt = snap.IndexedAt

	for _, f := range snap.Files {
		lines := make([]LineRecord, len(f.Lines))
		for i, l := range f.Lines {
			lines[i] = LineRecord{Number: l.Idx, Text: l.Text, Length: l.Length}
		}

		rec := &FileRecord{
			Path:      f.Path,
			Language:  f.Language,
			LineCount: f.LineCount,
			Lines:     lines,
			Hash:      snap.FileHashes[f.Path],
			SeenAt:    snap.IndexedAt,
		}

		id := s.allocIDLocked()
		s.files[id] = rec
		s.byPath[f.Path] = id
		s.hashes[f.Path] = rec.Hash
		s.lineTotal += len(lines)
		s.addPostingsLocked(id, rec)
	}

	return s
}

// StoreToSnapshot captures the store as a self-describing snapshot.
// It takes the read lock itself; callers must not already hold it.
func StoreToSnapshot(s *Store) *snapshot.Index {
	s.RLock()
	defer s.RUnlock()

	snap := &snapshot.Index{
		Version:     version.SnapshotVersion,
		IndexedAt:   time.Now().UTC(),
		ProjectRoot: s.Root(),
		FileCount:   s.FileCount(),
		Files:       make([]snapshot.File, 0, s.FileCount()),
		FileHashes:  make(map[string]string, s.FileCount()),
	}

	s.ForEachFile(func(_ types.FileID, rec *FileRecord) bool {
		lines := make([]snapshot.Line, len(rec.Lines))
		for i, l := range rec.Lines {
			lines[i] = snapshot.Line{Idx: l.Number, Text: l.Text, Length: l.Length}
		}
		snap.Files = append(snap.Files, snapshot.File{
			Path:      rec.Path,
			Language:  rec.Language,
			LineCount: rec.LineCount,
			Lines:     lines,
		})
		snap.FileHashes[rec.Path] = rec.Hash
		return true
	})

	return snap
}
