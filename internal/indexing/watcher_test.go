package indexing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/prism-search/prism/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDispatcher records watcher dispatches without touching an index.
type fakeDispatcher struct {
	mu       sync.Mutex
	updates  []string
	removals []string
	errors   int
	failWith error
}

func (f *fakeDispatcher) UpdateFile(relPath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	f.updates = append(f.updates, relPath)
	return true, nil
}

func (f *fakeDispatcher) RemoveFilePath(relPath string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, relPath)
	return true
}

func (f *fakeDispatcher) CountAbsorbedError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors++
}

func (f *fakeDispatcher) snapshot() (updates, removals []string, errs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...), append([]string(nil), f.removals...), f.errors
}

func TestEventDebouncer_CollapsesToLatestKind(t *testing.T) {
	var mu sync.Mutex
	var batches []map[string]FileEventKind

	d := newEventDebouncer(30*time.Millisecond, func(events map[string]FileEventKind) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	})
	defer d.stop()

	d.addEvent("a.go", FileEventCreated)
	d.addEvent("a.go", FileEventModified)
	d.addEvent("a.go", FileEventDeleted)
	d.addEvent("b.go", FileEventCreated)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	batch := batches[0]
	assert.Equal(t, FileEventDeleted, batch["a.go"], "latest kind wins")
	assert.Equal(t, FileEventCreated, batch["b.go"])
}

func TestEventDebouncer_QuietWindowRestartsOnNewEvents(t *testing.T) {
	var mu sync.Mutex
	fired := 0

	d := newEventDebouncer(50*time.Millisecond, func(map[string]FileEventKind) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer d.stop()

	// Events arriving faster than the window keep deferring the flush.
	for i := 0; i < 4; i++ {
		d.addEvent("a.go", FileEventModified)
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	assert.Zero(t, fired, "no flush while events keep arriving")
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEventDebouncer_StopDropsPending(t *testing.T) {
	var mu sync.Mutex
	fired := 0

	d := newEventDebouncer(20*time.Millisecond, func(map[string]FileEventKind) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	d.addEvent("a.go", FileEventModified)
	d.stop()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, fired)
}

func TestDispatchBatch_RemovalsBeforeUpserts(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.Index.WatchDebounceMs = 20
	filter := NewPathFilter(nil)
	fake := &fakeDispatcher{}

	fw, err := NewFileWatcher(cfg, filter, fake)
	require.NoError(t, err)
	defer fw.Stop()

	fw.dispatchBatch(map[string]FileEventKind{
		"zz.go": FileEventModified,
		"aa.go": FileEventCreated,
		"rm.go": FileEventDeleted,
	})

	updates, removals, _ := fake.snapshot()
	assert.Equal(t, []string{"rm.go"}, removals)
	assert.Equal(t, []string{"aa.go", "zz.go"}, updates, "upserts apply in path order")
}

func TestDispatchBatch_MissingFileFallsBackToRemoval(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default(root)
	filter := NewPathFilter(nil)
	fake := &fakeDispatcher{failWith: os.ErrNotExist}

	fw, err := NewFileWatcher(cfg, filter, fake)
	require.NoError(t, err)
	defer fw.Stop()

	fw.dispatchBatch(map[string]FileEventKind{"gone.go": FileEventModified})

	_, removals, errs := fake.snapshot()
	assert.Equal(t, []string{"gone.go"}, removals)
	assert.Zero(t, errs, "a vanished file is not an error")
}

func TestFileWatcher_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "existing.go", "package p\n\nvar Old = 1\n")

	cfg := config.Default(root)
	cfg.Index.WatchDebounceMs = 30

	coord := NewCoordinator(cfg)
	require.NoError(t, coord.Init(context.Background()))
	require.NoError(t, coord.StartWatcher())
	defer coord.Shutdown()

	writeFile(t, root, "created.go", "package p\n\nvar Freshly = 2\n")

	require.Eventually(t, func() bool {
		st := coord.Store()
		st.RLock()
		defer st.RUnlock()
		return st.HasTerm("freshly")
	}, 5*time.Second, 20*time.Millisecond, "created file reaches the index")

	require.NoError(t, os.Remove(filepath.Join(root, "existing.go")))

	require.Eventually(t, func() bool {
		st := coord.Store()
		st.RLock()
		defer st.RUnlock()
		_, ok := st.FileByPath("existing.go")
		return !ok && !st.HasTerm("old")
	}, 5*time.Second, 20*time.Millisecond, "deleted file leaves the index")
}
