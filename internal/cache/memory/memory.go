// Package memory provides an in-process audit.PageCache.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/website-audit/internal/audit"
)

type entry struct {
	page    audit.ExtractedPage
	expires time.Time
}

// Cache is a TTL map safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	clock     audit.Clock
	entries   map[string]entry
	lastSweep time.Time
}

// New builds a Cache. A zero ttl keeps entries forever.
func New(ttl time.Duration, clock audit.Clock) *Cache {
	return &Cache{ttl: ttl, clock: clock, entries: make(map[string]entry)}
}

// Get implements audit.PageCache.
func (c *Cache) Get(_ context.Context, url string) (audit.ExtractedPage, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok {
		return audit.ExtractedPage{}, false, nil
	}
	if c.expired(e, c.clock.Now()) {
		c.mu.Lock()
		// A Set may have replaced the entry since the read lock was released.
		if cur, ok := c.entries[url]; ok && c.expired(cur, c.clock.Now()) {
			delete(c.entries, url)
		}
		c.mu.Unlock()
		return audit.ExtractedPage{}, false, nil
	}
	return e.page, true, nil
}

// Set implements audit.PageCache. At most once per ttl it also drops every
// expired entry, so URLs that are never read again do not accumulate.
func (c *Cache) Set(_ context.Context, url string, page audit.ExtractedPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if c.ttl > 0 && now.Sub(c.lastSweep) >= c.ttl {
		for key, e := range c.entries {
			if c.expired(e, now) {
				delete(c.entries, key)
			}
		}
		c.lastSweep = now
	}
	c.entries[url] = entry{page: page, expires: now.Add(c.ttl)}
	return nil
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return c.ttl > 0 && !now.Before(e.expires)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
