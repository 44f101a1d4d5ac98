package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache[string](time.Minute, time.Minute)
	defer cache.Close()

	cache.Set("a", "alpha")
	value, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "alpha", value)
	assert.Equal(t, 1, cache.Size())

	cache.Delete("a")
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache[int](20*time.Millisecond, 10*time.Millisecond)
	defer cache.Close()

	cache.Set("n", 1)
	time.Sleep(50 * time.Millisecond)

	_, ok := cache.Get("n")
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return cache.Size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache[int](time.Minute, time.Minute)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := idOf(i)
			cache.Set(key, i)
			value, ok := cache.Get(key)
			assert.True(t, ok)
			assert.Equal(t, i, value)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, cache.Size())
	cache.Close()
	cache.Close()
}
