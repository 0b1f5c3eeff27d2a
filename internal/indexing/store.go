package indexing

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/prism-search/prism/internal/types"
)

// FileRecord is the per-file unit of the index: the canonical relative
// path, language tag, total line count (blank lines included), the
// ordered non-empty line records, and the content digests used for
// change detection.
type FileRecord struct {
	Path      string
	Language  string
	LineCount int
	Lines     []LineRecord
	Hash      string // sha256 hex of the raw bytes
	FastHash  uint64 // xxhash for quick equality pre-checks
	SeenAt    time.Time
}

// Posting locates one line where a term occurs. File and Line index into
// the store's file array and that file's Lines slice; the base score and
// line number are duplicated here so ranking never touches the record.
type Posting struct {
	File       types.FileID
	Line       int32
	Score      float32
	LineNumber int32
}

// Store is the in-memory authoritative index state: the file array, the
// inverted term index, and the path -> content-hash map.
//
// Locking discipline: mutators acquire the write lock internally and are
// atomic with respect to readers. Read accessors do NOT lock; callers
// must hold RLock (or be the single writer) across every multi-step
// read so that (file, line) references stay coherent.
type Store struct {
	mu        sync.RWMutex
	createdAt time.Time
	root      string

	files   []*FileRecord // nil slot after removal, reused on insert
	byPath  map[string]types.FileID
	freeIDs []types.FileID

	inverted map[string][]Posting
	termKeys map[types.FileID][]string // terms a file contributed, for removal
	hashes   map[string]string         // path -> sha256 hex

	lineTotal int // count of line records across all files
}

// NewStore creates an empty store rooted at root.
func NewStore(root string) *Store {
	return &Store{
		createdAt: time.Now(),
		root:      root,
		byPath:    make(map[string]types.FileID),
		inverted:  make(map[string][]Posting),
		termKeys:  make(map[types.FileID][]string),
		hashes:    make(map[string]string),
	}
}

// RLock acquires the read lock. Search holds it across posting lookups
// so a concurrent writer cannot invalidate references mid-query.
func (s *Store) RLock() { s.mu.RLock() }

// RUnlock releases the read lock.
func (s *Store) RUnlock() { s.mu.RUnlock() }

// HashBytes returns the canonical content digest: sha256 hex.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// InsertOrReplaceFile builds a FileRecord from data and installs it,
// replacing any prior record for the path and swapping its postings in
// the same critical section. Returns ChangeAdded or ChangeModified.
func (s *Store) InsertOrReplaceFile(relPath string, data []byte) Change {
	language := LanguageFor(relPath)
	total, lines := ExtractLines(data)

	rec := &FileRecord{
		Path:      relPath,
		Language:  language,
		LineCount: total,
		Lines:     lines,
		Hash:      HashBytes(data),
		FastHash:  xxhash.Sum64(data),
		SeenAt:    time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	change := ChangeAdded
	id, existed := s.byPath[relPath]
	if existed {
		change = ChangeModified
		s.removePostingsLocked(id)
		s.lineTotal -= len(s.files[id].Lines)
	} else {
		id = s.allocIDLocked()
		s.byPath[relPath] = id
	}

	s.files[id] = rec
	s.hashes[relPath] = rec.Hash
	s.lineTotal += len(lines)
	s.addPostingsLocked(id, rec)

	return change
}

// RemoveFile deletes the record, its postings, and its hash in one
// atomic mutation. Returns whether a record existed.
func (s *Store) RemoveFile(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPath[relPath]
	if !ok {
		return false
	}

	s.removePostingsLocked(id)
	s.lineTotal -= len(s.files[id].Lines)
	s.files[id] = nil
	s.freeIDs = append(s.freeIDs, id)
	delete(s.byPath, relPath)
	delete(s.hashes, relPath)

	return true
}

// allocIDLocked returns a free file slot, reusing removed slots first.
func (s *Store) allocIDLocked() types.FileID {
	if n := len(s.freeIDs); n > 0 {
		id := s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
		return id
	}
	s.files = append(s.files, nil)
	return types.FileID(len(s.files) - 1)
}

// addPostingsLocked tokenizes every line record and appends one posting
// per distinct term per line. Duplicate (file, line) postings for a term
// are suppressed by the distinct-token pass.
func (s *Store) addPostingsLocked(id types.FileID, rec *FileRecord) {
	var keys []string
	seen := make(map[string]bool)

	for lineIdx, line := range rec.Lines {
		base := float32(BaseScore(rec.Language, line.Length))
		for _, term := range UniqueTokens(line.Text) {
			s.inverted[term] = append(s.inverted[term], Posting{
				File:       id,
				Line:       int32(lineIdx),
				Score:      base,
				LineNumber: int32(line.Number),
			})
			if !seen[term] {
				seen[term] = true
				keys = append(keys, term)
			}
		}
	}

	if len(keys) > 0 {
		s.termKeys[id] = keys
	}
}

// removePostingsLocked drops every posting the file contributed, using
// the reverse term keys to avoid a full index sweep.
func (s *Store) removePostingsLocked(id types.FileID) {
	for _, term := range s.termKeys[id] {
		postings := s.inverted[term]
		kept := postings[:0]
		for _, p := range postings {
			if p.File != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(s.inverted, term)
		} else {
			s.inverted[term] = kept
		}
	}
	delete(s.termKeys, id)
}

// Read accessors. Callers must hold RLock; see the locking discipline
// note on Store.

// Root returns the project root the store was built for.
func (s *Store) Root() string { return s.root }

// CreatedAt returns the store creation timestamp.
func (s *Store) CreatedAt() time.Time { return s.createdAt }

// FileCount returns the number of live file records.
func (s *Store) FileCount() int { return len(s.byPath) }

// ChunkCount returns the total number of line records.
func (s *Store) ChunkCount() int { return s.lineTotal }

// TermCount returns the number of distinct terms in the inverted index.
func (s *Store) TermCount() int { return len(s.inverted) }

// FileByID resolves a posting's file reference. Returns nil for removed
// slots.
func (s *Store) FileByID(id types.FileID) *FileRecord {
	if id < 0 || int(id) >= len(s.files) {
		return nil
	}
	return s.files[id]
}

// FileByPath returns the record for a canonical relative path.
func (s *Store) FileByPath(relPath string) (*FileRecord, bool) {
	id, ok := s.byPath[relPath]
	if !ok {
		return nil, false
	}
	return s.files[id], true
}

// HasTerm reports whether term has at least one posting.
func (s *Store) HasTerm(term string) bool {
	return len(s.inverted[term]) > 0
}

// PostingsFor returns the postings of a term in insertion order. The
// returned slice is shared; callers must not mutate it.
func (s *Store) PostingsFor(term string) []Posting {
	return s.inverted[term]
}

// Hashes returns a copy of the path -> content-hash map for delta
// classification.
func (s *Store) Hashes() map[string]string {
	out := make(map[string]string, len(s.hashes))
	for p, h := range s.hashes {
		out[p] = h
	}
	return out
}

// HashFor returns the stored content hash for a path.
func (s *Store) HashFor(relPath string) (string, bool) {
	h, ok := s.hashes[relPath]
	return h, ok
}

// Paths returns the live file paths in unspecified order.
func (s *Store) Paths() []string {
	out := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		out = append(out, p)
	}
	return out
}

// ForEachFile visits every live record in file-array order. Returning
// false from fn stops iteration.
func (s *Store) ForEachFile(fn func(id types.FileID, rec *FileRecord) bool) {
	for i, rec := range s.files {
		if rec == nil {
			continue
		}
		if !fn(types.FileID(i), rec) {
			return
		}
	}
}

// Terms returns every distinct term in unspecified order. Used by the
// suggestion layer, which sorts before scoring.
func (s *Store) Terms() []string {
	out := make([]string, 0, len(s.inverted))
	for t := range s.inverted {
		out = append(out, t)
	}
	return out
}
