package manifest

import (
	"sync"
	"time"
)

// ShortTTLCache is the second, parallel cache from spec.md §4.7: an
// in-memory, short-TTL cache keyed on raw request URL that the HTTP
// client consults before re-issuing an identical small request (e.g.
// the manifest URL fetched twice in quick succession by two orchestrator
// steps). It is intentionally process-local and unbounded in size —
// the URL set it sees is a handful of small registry endpoints, not the
// multi-gigabyte archive itself.
type ShortTTLCache struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]shortTTLItem
}

type shortTTLItem struct {
	body      []byte
	headers   map[string]string
	expiresAt time.Time
}

// NewShortTTLCache builds a cache with the given per-entry TTL.
func NewShortTTLCache(ttl time.Duration) *ShortTTLCache {
	return &ShortTTLCache{ttl: ttl, items: make(map[string]shortTTLItem)}
}

// Get returns the cached response for url if present and unexpired.
func (c *ShortTTLCache) Get(url string, now time.Time) (body []byte, headers map[string]string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, found := c.items[url]
	if !found || now.After(item.expiresAt) {
		return nil, nil, false
	}
	return item.body, item.headers, true
}

// Put stores a response for url, valid until now+ttl.
func (c *ShortTTLCache) Put(url string, body []byte, headers map[string]string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[url] = shortTTLItem{body: body, headers: headers, expiresAt: now.Add(c.ttl)}
}
