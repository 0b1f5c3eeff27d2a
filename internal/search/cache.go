package search

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ResultCache is a bounded LRU from (query, limit) to a computed result
// list. Entries are immutable once inserted; re-inserts replace. Any
// index mutation purges the cache entirely via the coordinator's commit
// hook, so entries never outlive the store state they were computed on.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[string]*list.Element

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	key     string
	results []Result
}

// CacheStats is the operator-visible cache state.
type CacheStats struct {
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewResultCache creates a cache holding at most capacity entries.
func NewResultCache(capacity int) *ResultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ResultCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// cacheKey builds the lookup key from the trimmed query and limit. The
// query is collapsed to its xxhash so arbitrarily long queries stay
// cheap map keys.
func cacheKey(query string, limit int) string {
	var b strings.Builder
	b.Grow(16 + 4)
	b.WriteString(strconv.FormatUint(xxhash.Sum64String(query), 16))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}

// Get returns the cached results for (query, limit) and refreshes the
// entry's LRU position.
func (rc *ResultCache) Get(query string, limit int) ([]Result, bool) {
	key := cacheKey(query, limit)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	el, ok := rc.entries[key]
	if !ok {
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}

	rc.order.MoveToFront(el)
	atomic.AddInt64(&rc.hits, 1)
	return el.Value.(*cacheEntry).results, true
}

// Put stores results for (query, limit), evicting the least recently
// used entry past capacity.
func (rc *ResultCache) Put(query string, limit int, results []Result) {
	key := cacheKey(query, limit)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if el, ok := rc.entries[key]; ok {
		el.Value.(*cacheEntry).results = results
		rc.order.MoveToFront(el)
		return
	}

	rc.entries[key] = rc.order.PushFront(&cacheEntry{key: key, results: results})

	for rc.order.Len() > rc.capacity {
		oldest := rc.order.Back()
		rc.order.Remove(oldest)
		delete(rc.entries, oldest.Value.(*cacheEntry).key)
		atomic.AddInt64(&rc.evictions, 1)
	}
}

// Purge drops every entry. Called under the coordinator's writer mutex
// at each commit.
func (rc *ResultCache) Purge() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.order.Init()
	rc.entries = make(map[string]*list.Element)
}

// Stats returns cache counters.
func (rc *ResultCache) Stats() CacheStats {
	rc.mu.Lock()
	size := rc.order.Len()
	capacity := rc.capacity
	rc.mu.Unlock()

	return CacheStats{
		Size:      size,
		Capacity:  capacity,
		Hits:      atomic.LoadInt64(&rc.hits),
		Misses:    atomic.LoadInt64(&rc.misses),
		Evictions: atomic.LoadInt64(&rc.evictions),
	}
}
