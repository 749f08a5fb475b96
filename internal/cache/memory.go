package cache

import (
	"sync"
	"time"
)

type item struct {
	value      interface{}
	expiration int64
}

// MemoryCache is a small TTL cache with lazy expiration: stale entries are
// dropped on the next Get for their key.
type MemoryCache struct {
	items map[string]item
	mu    sync.RWMutex
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
	}
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{
		value:      value,
		expiration: time.Now().Add(ttl).UnixNano(),
	}
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if time.Now().UnixNano() > it.expiration {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have refreshed the key.
		if cur, ok := c.items[key]; ok && time.Now().UnixNano() > cur.expiration {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}
