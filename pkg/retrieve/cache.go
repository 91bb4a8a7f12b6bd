package retrieve

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// entityCache memoizes entity lookups per seed-document set. Entries expire
// lazily on read; there is no background sweeper, so stale entries sit in
// memory until they are touched or the process restarts.
type entityCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	names   []string
	storedAt time.Time
}

func newEntityCache(ttl time.Duration, now func() time.Time) *entityCache {
	return &entityCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// cacheKey derives a stable key from a document-ID set: sorted, so the same
// set of seeds hits the same entry regardless of vector-result order.
func cacheKey(docIDs []string) string {
	sorted := append([]string(nil), docIDs...)
	sort.Strings(sorted)
	return "entities:" + strings.Join(sorted, ",")
}

func (c *entityCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.names, true
}

func (c *entityCache) set(key string, names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{names: names, storedAt: c.now()}
}
