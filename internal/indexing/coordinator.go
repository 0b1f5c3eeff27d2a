package indexing

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/snapshot"
	"github.com/prism-search/prism/internal/types"
	"github.com/prism-search/prism/internal/version"
)

// Coordinator owns the single writer role for the index store. Every
// mutation — full rebuild, reconcile, watcher dispatch, API update —
// goes through its writer mutex; readers dereference the atomic store
// pointer and never block on it.
type Coordinator struct {
	cfg     *config.Config
	filter  *PathFilter
	scanner *Scanner

	store    atomic.Pointer[Store]
	writerMu sync.Mutex

	watcherMu sync.Mutex
	watcher   *FileWatcher

	// commitHooks run under the writer mutex around every commit;
	// the search layer registers its cache purge here. Registration
	// happens during wiring, before any mutation.
	commitHooks []func()

	// Snapshot save throttling, guarded by writerMu.
	dispatchesSinceSave int
	lastSave            time.Time
	dirty               bool

	absorbedErrors atomic.Int64
}

// Summary reports the outcome of a rebuild or reconcile.
type Summary struct {
	Files     int           `json:"files"`
	Chunks    int           `json:"chunks"`
	Added     int           `json:"added"`
	Modified  int           `json:"modified"`
	Deleted   int           `json:"deleted"`
	Unchanged int           `json:"unchanged"`
	Errors    int64         `json:"errors"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Stats is the operator-visible index state.
type Stats struct {
	Files          int         `json:"files"`
	Chunks         int         `json:"chunks"`
	Terms          int         `json:"terms"`
	IndexedAt      time.Time   `json:"indexed_at"`
	AbsorbedErrors int64       `json:"absorbed_errors"`
	Watcher        *WatchStats `json:"watcher,omitempty"`
}

// NewCoordinator creates a coordinator for the configured project root.
// Call Init before serving queries.
func NewCoordinator(cfg *config.Config) *Coordinator {
	filter := NewPathFilter(cfg.Exclude)
	c := &Coordinator{
		cfg:     cfg,
		filter:  filter,
		scanner: NewScanner(cfg, filter),
	}
	c.store.Store(NewStore(cfg.Project.Root))
	return c
}

// OnCommit registers fn to run under the writer mutex at every commit.
// Must be called during wiring, before Init.
func (c *Coordinator) OnCommit(fn func()) {
	c.commitHooks = append(c.commitHooks, fn)
}

// Store returns the current index store. The pointer swap on full
// rebuild gives searches that start after a commit a happens-before
// view of it.
func (c *Coordinator) Store() *Store {
	return c.store.Load()
}

// Filter exposes the path filter for watcher wiring.
func (c *Coordinator) Filter() *PathFilter { return c.filter }

// Init loads the snapshot and brings the index up to date: a missing or
// stale snapshot triggers a full rebuild, a usable one is reconciled
// against the filesystem.
func (c *Coordinator) Init(ctx context.Context) error {
	if err := c.cfg.EnsureStateDir(); err != nil {
		return err
	}

	snap, err := snapshot.Load(c.cfg.SnapshotPath(), version.SnapshotVersion)
	if err != nil {
		return err
	}

	if snap == nil {
		_, err := c.FullRebuild(ctx)
		return err
	}

	debug.LogIndexing("loaded snapshot with %d files, reconciling\n", snap.FileCount)
	c.store.Store(StoreFromSnapshot(snap))

	_, err = c.Reconcile(ctx)
	return err
}

// FullRebuild walks the root, builds a fresh store offline, and swaps
// it in atomically. The previous store is discarded whole.
func (c *Coordinator) FullRebuild(ctx context.Context) (Summary, error) {
	start := time.Now()

	files, scanStats, err := c.scanner.Walk(ctx)
	if err != nil {
		return Summary{}, err
	}

	fresh := NewStore(c.cfg.Project.Root)
	for _, f := range files {
		if ctx.Err() != nil {
			return Summary{}, ctx.Err()
		}
		fresh.InsertOrReplaceFile(f.Path, f.Data)
	}

	c.absorbedErrors.Add(scanStats.ReadErrors)

	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	c.runCommitHooksLocked()
	c.store.Store(fresh)
	c.dirty = true
	c.saveLocked()

	fresh.RLock()
	summary := Summary{
		Files:   fresh.FileCount(),
		Chunks:  fresh.ChunkCount(),
		Added:   fresh.FileCount(),
		Errors:  scanStats.ReadErrors,
		Elapsed: time.Since(start),
	}
	fresh.RUnlock()

	log.Printf("Full rebuild indexed %d files (%d chunks) in %v", summary.Files, summary.Chunks, summary.Elapsed)
	return summary, nil
}

// Reconcile walks the root, classifies every path against the stored
// hashes, and applies only the differences.
func (c *Coordinator) Reconcile(ctx context.Context) (Summary, error) {
	start := time.Now()

	files, scanStats, err := c.scanner.Walk(ctx)
	if err != nil {
		return Summary{}, err
	}

	st := c.Store()
	st.RLock()
	stored := st.Hashes()
	st.RUnlock()

	delta := Classify(stored, files)

	byPath := make(map[string][]byte, len(files))
	for _, f := range files {
		byPath[f.Path] = f.Data
	}

	c.absorbedErrors.Add(scanStats.ReadErrors)

	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	for _, p := range delta.Added {
		st.InsertOrReplaceFile(p, byPath[p])
	}
	for _, p := range delta.Modified {
		st.InsertOrReplaceFile(p, byPath[p])
	}
	for _, p := range delta.Deleted {
		st.RemoveFile(p)
	}

	c.runCommitHooksLocked()
	if len(delta.Added)+len(delta.Modified)+len(delta.Deleted) > 0 {
		c.dirty = true
	}
	c.flushSaveLocked()

	st.RLock()
	summary := Summary{
		Files:     st.FileCount(),
		Chunks:    st.ChunkCount(),
		Added:     len(delta.Added),
		Modified:  len(delta.Modified),
		Deleted:   len(delta.Deleted),
		Unchanged: len(delta.Unchanged),
		Errors:    scanStats.ReadErrors,
		Elapsed:   time.Since(start),
	}
	st.RUnlock()

	debug.LogIndexing("reconcile: +%d ~%d -%d =%d in %v\n",
		summary.Added, summary.Modified, summary.Deleted, summary.Unchanged, summary.Elapsed)
	return summary, nil
}

// UpdateFile re-reads one file and upserts it. Returns whether the
// index changed. Ineligible paths are ignored without error.
func (c *Coordinator) UpdateFile(relPath string) (bool, error) {
	if !c.filter.Eligible(relPath) {
		return false, nil
	}

	data, err := c.scanner.ReadFile(relPath)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	st := c.Store()

	// Cheap no-op detection before touching the inverted index. The
	// fast hash is zero for records restored from a snapshot; fall back
	// to the canonical digest there.
	st.RLock()
	rec, ok := st.FileByPath(relPath)
	var unchanged bool
	if ok {
		if rec.FastHash != 0 {
			unchanged = rec.FastHash == xxhash.Sum64(data)
		} else {
			unchanged = rec.Hash == HashBytes(data)
		}
	}
	st.RUnlock()
	if unchanged {
		return false, nil
	}

	st.InsertOrReplaceFile(relPath, data)
	c.runCommitHooksLocked()
	c.noteDispatchLocked()

	return true, nil
}

// RemoveFilePath removes one file from the index. Returns whether a
// record existed.
func (c *Coordinator) RemoveFilePath(relPath string) bool {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	st := c.Store()
	existed := st.RemoveFile(relPath)
	if existed {
		c.runCommitHooksLocked()
		c.noteDispatchLocked()
	}
	return existed
}

// GetFileContext returns the stored line records for a path.
func (c *Coordinator) GetFileContext(relPath string) ([]LineRecord, error) {
	st := c.Store()
	st.RLock()
	defer st.RUnlock()

	rec, ok := st.FileByPath(relPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	lines := make([]LineRecord, len(rec.Lines))
	copy(lines, rec.Lines)
	return lines, nil
}

// Stats reports current index counts.
func (c *Coordinator) Stats() Stats {
	st := c.Store()
	st.RLock()
	stats := Stats{
		Files:          st.FileCount(),
		Chunks:         st.ChunkCount(),
		Terms:          st.TermCount(),
		IndexedAt:      st.CreatedAt(),
		AbsorbedErrors: c.absorbedErrors.Load(),
	}
	st.RUnlock()

	c.watcherMu.Lock()
	if c.watcher != nil {
		ws := c.watcher.GetStats()
		stats.Watcher = &ws
	}
	c.watcherMu.Unlock()

	return stats
}

// CountAbsorbedError bumps the absorbed-error counter for failures that
// were logged and swallowed outside the coordinator.
func (c *Coordinator) CountAbsorbedError() {
	c.absorbedErrors.Add(1)
}

// StartWatcher begins incremental updates driven by filesystem events.
// Failure is non-fatal for the daemon; the caller decides how loudly to
// report it.
func (c *Coordinator) StartWatcher() error {
	c.watcherMu.Lock()
	defer c.watcherMu.Unlock()

	if c.watcher != nil {
		return nil
	}

	fw, err := NewFileWatcher(c.cfg, c.filter, c)
	if err != nil {
		return fmt.Errorf("watcher init failed: %w", err)
	}
	if err := fw.Start(); err != nil {
		return fmt.Errorf("watcher init failed: %w", err)
	}

	c.watcher = fw
	return nil
}

// StopWatcher stops incremental updates.
func (c *Coordinator) StopWatcher() {
	c.watcherMu.Lock()
	defer c.watcherMu.Unlock()

	if c.watcher != nil {
		c.watcher.Stop()
		c.watcher = nil
	}
}

// Shutdown stops the watcher and flushes any pending snapshot save.
func (c *Coordinator) Shutdown() {
	c.StopWatcher()

	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	c.flushSaveLocked()
}

// runCommitHooksLocked fires registered hooks (cache purge) under the
// writer mutex.
func (c *Coordinator) runCommitHooksLocked() {
	for _, fn := range c.commitHooks {
		fn()
	}
}

// noteDispatchLocked marks the index dirty and saves when the dispatch
// count or time window threshold is reached.
func (c *Coordinator) noteDispatchLocked() {
	c.dirty = true
	c.dispatchesSinceSave++

	if c.dispatchesSinceSave >= types.SaveEveryDispatches ||
		time.Since(c.lastSave) >= types.SaveWindowSeconds*time.Second {
		c.saveLocked()
	}
}

// flushSaveLocked forces a save if any mutation is unsaved.
func (c *Coordinator) flushSaveLocked() {
	if c.dirty {
		c.saveLocked()
	}
}

// saveLocked persists the current store. Save failures are absorbed:
// the in-memory index stays authoritative and the next successful save
// supersedes whatever is on disk.
func (c *Coordinator) saveLocked() {
	snap := StoreToSnapshot(c.Store())
	if err := snapshot.Save(snap, c.cfg.SnapshotPath()); err != nil {
		log.Printf("Snapshot save failed: %v", err)
		c.absorbedErrors.Add(1)
		return
	}
	c.dirty = false
	c.dispatchesSinceSave = 0
	c.lastSave = time.Now()
}
