package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/cache"
)

func TestLRUCache_Basic(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)

	_, existed := c.Put("a", 1)
	assert.False(t, existed)

	old, existed := c.Put("a", 2)
	assert.True(t, existed)
	assert.Equal(t, 1, old)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	removed, ok := c.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_Eviction(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)

	var evicted []string
	c.SetEvictCallback(func(k string, _ int) { evicted = append(evicted, k) })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // b is now least recently used
	c.Put("c", 3)

	assert.Equal(t, []string{"b"}, evicted)
	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_TTL(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	c := cache.NewLRUCache[string, string](10)
	c.SetClock(func() time.Time { return now })

	c.PutWithTTL("short", "x", time.Second)
	c.PutWithTTL("long", "y", time.Hour)
	c.Put("forever", "z")

	now = now.Add(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)

	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, "y", v)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, c.PurgeExpired())

	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestLRUCache_Clear(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[int, int](5)
	count := 0
	c.SetEvictCallback(func(int, int) { count++ })

	for i := range 5 {
		c.Put(i, i)
	}
	c.Clear()

	assert.Equal(t, 5, count)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_PanicsOnInvalidCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
}

func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[int, int](64)

	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				key := (g*500 + i) % 128
				c.PutWithTTL(key, i, time.Minute)
				c.Get(key)
				if i%7 == 0 {
					c.Remove(key)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
