package feed

import (
	"sync"
	"time"
)

// fetchCache keeps recently fetched feeds for a few minutes so that
// back-to-back cycles (or categories sharing a source) do not hammer the
// same endpoint within one scheduling window.
type fetchCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]fetchCacheEntry
}

type fetchCacheEntry struct {
	items     []Item
	expiresAt time.Time
}

func newFetchCache(ttl time.Duration) *fetchCache {
	return &fetchCache{
		ttl:   ttl,
		items: make(map[string]fetchCacheEntry),
	}
}

func (c *fetchCache) get(url string) ([]Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.items[url]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.items, true
}

func (c *fetchCache) put(url string, items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[url] = fetchCacheEntry{
		items:     items,
		expiresAt: time.Now().Add(c.ttl),
	}
}
