package loader

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cached keeps loaded documents in memory for a fixed TTL. Concurrent loads
// of the same key share one backend call and errors are never cached.
type Cached struct {
	next  Loader
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cachedEntry
}

type cachedEntry struct {
	data    []byte
	expires time.Time
}

// NewCached wraps next. A ttl <= 0 keeps entries until invalidated.
func NewCached(next Loader, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cachedEntry{},
	}
}

func (c *Cached) Load(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.lookup(key); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok := c.lookup(key); ok {
			return data, nil
		}
		data, err := c.next.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		entry := cachedEntry{data: data}
		if c.ttl > 0 {
			entry.expires = c.now().Add(c.ttl)
		}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cached) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		return nil, false
	}
	return e.data, true
}

func (c *Cached) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cachedEntry{}
}

func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
