package indexing

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
)

// FileEventKind is the collapsed event classification a dispatch sees.
type FileEventKind int

const (
	FileEventCreated FileEventKind = iota
	FileEventModified
	FileEventDeleted
)

// dispatcher is the mutation surface the watcher drives. The
// coordinator implements it; tests substitute fakes.
type dispatcher interface {
	UpdateFile(relPath string) (bool, error)
	RemoveFilePath(relPath string) bool
	CountAbsorbedError()
}

// FileWatcher subscribes to filesystem events under the project root
// and drives single-file index updates through the coordinator. Events
// for the same path within the debounce window collapse to the latest
// kind. A broken dispatch is logged and counted, never fatal.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	cfg       *config.Config
	filter    *PathFilter
	dispatch  dispatcher
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex
}

// WatchStats contains statistics about file watching operations.
type WatchStats struct {
	EventsProcessed int64     `json:"events_processed"`
	ErrorCount      int64     `json:"error_count"`
	LastEventTime   time.Time `json:"last_event_time"`
	IsActive        bool      `json:"is_active"`
}

// NewFileWatcher creates a watcher wired to the given dispatcher.
func NewFileWatcher(cfg *config.Config, filter *PathFilter, dispatch dispatcher) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FileWatcher{
		watcher:  watcher,
		cfg:      cfg,
		filter:   filter,
		dispatch: dispatch,
		ctx:      ctx,
		cancel:   cancel,
	}
	fw.debouncer = newEventDebouncer(time.Duration(cfg.Index.WatchDebounceMs)*time.Millisecond, fw.dispatchBatch)

	return fw, nil
}

// Start adds watches for every directory under the root and begins
// processing events.
func (fw *FileWatcher) Start() error {
	root := fw.cfg.Project.Root
	debug.LogWatch("starting file watcher for %s\n", root)

	if err := fw.addWatches(root); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// Stop stops the watcher and waits for in-flight dispatches.
func (fw *FileWatcher) Stop() {
	fw.cancel()

	if err := fw.watcher.Close(); err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}

	fw.debouncer.stop()
	fw.wg.Wait()
}

// addWatches recursively adds watches for all relevant directories,
// tracking resolved paths to survive symlink cycles.
func (fw *FileWatcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if path != root && fw.filter.DeniedDir(info.Name()) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// processEvents drains fsnotify events into the debouncer.
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
			fw.incrementStats(0, 1)
		}
	}
}

// handleEvent classifies one fsnotify event and feeds the debouncer.
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(fw.cfg.Project.Root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if fw.filter.Eligible(rel) {
			fw.debouncer.addEvent(rel, FileEventDeleted)
		}
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		// New directories need their own watch to see files created
		// inside them later.
		if event.Op&fsnotify.Create != 0 && !fw.filter.DeniedDir(info.Name()) {
			if err := fw.watcher.Add(event.Name); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	if !fw.filter.Eligible(rel) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		fw.debouncer.addEvent(rel, FileEventCreated)
	case event.Op&fsnotify.Write != 0:
		fw.debouncer.addEvent(rel, FileEventModified)
	}
}

// dispatchBatch applies one debounced batch of events to the index.
// Removals go first so a rename observed as remove+create settles on
// the create.
func (fw *FileWatcher) dispatchBatch(events map[string]FileEventKind) {
	debug.LogWatch("dispatching %d debounced events\n", len(events))

	var upserts []string
	for rel, kind := range events {
		if kind == FileEventDeleted {
			fw.dispatch.RemoveFilePath(rel)
			fw.incrementStats(1, 0)
			continue
		}
		upserts = append(upserts, rel)
	}
	sort.Strings(upserts)

	for _, rel := range upserts {
		if _, err := fw.dispatch.UpdateFile(rel); err != nil {
			// The file may be gone again by dispatch time.
			if errors.Is(err, os.ErrNotExist) {
				fw.dispatch.RemoveFilePath(rel)
			} else {
				log.Printf("Watcher dispatch failed for %s: %v", rel, err)
				fw.dispatch.CountAbsorbedError()
				fw.incrementStats(0, 1)
			}
		}
		fw.incrementStats(1, 0)
	}
}

// incrementStats updates watch mode statistics.
func (fw *FileWatcher) incrementStats(events, errors int64) {
	fw.statsMu.Lock()
	defer fw.statsMu.Unlock()

	fw.eventsProcessed += events
	fw.errorCount += errors
	fw.lastEventTime = time.Now()
}

// GetStats returns current watch mode statistics.
func (fw *FileWatcher) GetStats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed: fw.eventsProcessed,
		ErrorCount:      fw.errorCount,
		LastEventTime:   fw.lastEventTime,
		IsActive:        fw.ctx.Err() == nil,
	}
}

// eventDebouncer collapses repeated events per path into the latest
// kind, dispatching the accumulated batch once the window goes quiet.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]FileEventKind
	debounce time.Duration
	timer    *time.Timer
	flush    func(map[string]FileEventKind)
	stopped  bool
}

func newEventDebouncer(debounce time.Duration, flush func(map[string]FileEventKind)) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]FileEventKind),
		debounce: debounce,
		flush:    flush,
	}
}

// addEvent records the latest kind for a path and re-arms the timer.
func (d *eventDebouncer) addEvent(path string, kind FileEventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.events[path] = kind

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.fire)
}

func (d *eventDebouncer) fire() {
	d.mu.Lock()
	events := d.events
	d.events = make(map[string]FileEventKind)
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || len(events) == 0 {
		return
	}
	d.flush(events)
}

// stop drops pending events. Events pending at shutdown are acceptable
// to lose; the next startup reconcile picks them up from hashes.
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.events = make(map[string]FileEventKind)
}
