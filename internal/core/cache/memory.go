package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/openscope/wavescope/internal/core/render"
)

const defaultCapacity = 256

// entry pairs a render set with access time tracking for eviction. The
// access time is atomic because Get touches it under the read lock, and
// overlapping frame builds call Get concurrently.
type entry struct {
	set          *render.Set
	lastAccessed atomic.Int64
}

// RenderCache memoizes built render sets keyed by channel, viewport, and data
// version. At the interactive refresh rate most frames repeat the previous
// viewport over unchanged data, so a hit skips the whole decimation query.
// Any growth in the underlying channel changes the key, which makes stale
// entries unreachable; they age out by eviction.
type RenderCache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	capacity int
}

// NewRenderCache creates a cache bounded to capacity entries; 0 selects the
// default.
func NewRenderCache(capacity int) *RenderCache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &RenderCache{
		entries:  make(map[string]*entry),
		capacity: capacity,
	}
}

// Get returns the cached set for key, if present.
func (c *RenderCache) Get(key string) (*render.Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e.lastAccessed.Store(time.Now().UnixNano())
	return e.set, true
}

// Put stores a set, evicting the least recently used entry when full.
func (c *RenderCache) Put(key string, set *render.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	e := &entry{set: set}
	e.lastAccessed.Store(time.Now().UnixNano())
	c.entries[key] = e
}

// Clear drops every entry.
func (c *RenderCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len reports the number of cached sets.
func (c *RenderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RenderCache) evictOldestLocked() {
	var oldestKey string
	var oldest int64
	first := true
	for key, e := range c.entries {
		if at := e.lastAccessed.Load(); first || at < oldest {
			oldestKey = key
			oldest = at
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
