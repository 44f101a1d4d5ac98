package utils

import (
	"sync"
	"time"
)

// cacheItem represents a cached value with expiration
type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// MemoryCache is an in-memory cache with per-item expiration
type MemoryCache[V any] struct {
	items map[string]*cacheItem[V]
	ttl   time.Duration
	mu    sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose items live for ttl and starts the
// cleanup loop. Call Close to stop it.
func NewMemoryCache[V any](ttl time.Duration, cleanupInterval time.Duration) *MemoryCache[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	cache := &MemoryCache[V]{
		items: make(map[string]*cacheItem[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go cache.cleanupLoop(cleanupInterval)

	return cache
}

// Set stores a value using the cache's default ttl
func (c *MemoryCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if time.Now().After(item.expiration) {
		c.Delete(key)
		return zero, false
	}
	return item.value, true
}

// Delete removes an item from cache
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Size returns the number of items in cache, expired ones included
func (c *MemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup loop
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop periodically removes expired items
func (c *MemoryCache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *MemoryCache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}
