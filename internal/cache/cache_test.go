package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/ducky/internal/store"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string](10)

	_, ok := c.Get("q")
	assert.False(t, ok)

	c.Set("q", "https://example.com")
	v, ok := c.Get("q")
	require.True(t, ok)
	assert.Equal(t, "https://example.com", v)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCache_EvictsOldestInserted(t *testing.T) {
	c := New[int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Updating does not refresh age
	c.Set("a", 10)
	c.Set("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok)
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCache_NilValues(t *testing.T) {
	c := New[*string](0)
	assert.Equal(t, DefaultCapacity, c.Stats().Capacity)

	c.Set("miss", nil)
	v, ok := c.Get("miss")
	assert.True(t, ok, "a cached nil is still a hit")
	assert.Nil(t, v)
}

func TestCache_Clear(t *testing.T) {
	c := New[int](5)
	c.Set("a", 1)
	c.Get("a")
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				k := fmt.Sprintf("%d-%d", n, j)
				c.Set(k, j)
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestSuperCache_DisabledByDefault(t *testing.T) {
	ctx := context.Background()
	sc := NewSuperCache(store.NewMemory(), nil)

	assert.False(t, sc.Enabled(ctx))
	require.NoError(t, sc.Put(ctx, "g", "q", "https://x"))
	_, ok := sc.Get(ctx, "g", "q")
	assert.False(t, ok)
	assert.Empty(t, sc.Entries(ctx))
}

func TestSuperCache_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	sc := NewSuperCache(mem, nil)
	require.NoError(t, sc.SetEnabled(ctx, true))
	require.NoError(t, sc.Put(ctx, "g", "!gh foo", "https://github.com/search?q=foo"))

	again := NewSuperCache(mem, nil)
	url, ok := again.Get(ctx, "g", "!gh foo")
	require.True(t, ok)
	assert.Equal(t, "https://github.com/search?q=foo", url)

	raw, err := mem.Get(ctx, store.KeySuperCacheOn)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))
}

func TestSuperCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	sc := NewSuperCache(store.NewMemory(), nil, WithForcedOn(true), WithClock(clock.Now))

	require.NoError(t, sc.Put(ctx, "g", "q", "https://x"))
	clock.Advance(SuperTTL)
	_, ok := sc.Get(ctx, "g", "q")
	assert.True(t, ok, "entry at exactly the TTL is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = sc.Get(ctx, "g", "q")
	assert.False(t, ok)
	assert.Empty(t, sc.Entries(ctx))
}

func TestSuperCache_Capacity(t *testing.T) {
	ctx := context.Background()
	sc := NewSuperCache(store.NewMemory(), nil, WithForcedOn(true), WithCapacity(2), WithTTL(time.Hour))

	require.NoError(t, sc.Put(ctx, "g", "a", "1"))
	require.NoError(t, sc.Put(ctx, "g", "b", "2"))
	require.NoError(t, sc.Put(ctx, "g", "c", "3"))

	entries := sc.Entries(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Query)
	assert.Equal(t, "c", entries[1].Query)
}

func TestSuperCache_ClearAndMalformed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Set(ctx, store.KeySuperCache, []byte(`{bad`)))

	sc := NewSuperCache(mem, nil, WithForcedOn(true))
	assert.Empty(t, sc.Entries(ctx))

	require.NoError(t, sc.Put(ctx, "g", "a", "1"))
	require.NoError(t, sc.Clear(ctx))
	assert.Empty(t, sc.Entries(ctx))
	_, err := mem.Get(ctx, store.KeySuperCache)
	assert.True(t, store.IsNotFound(err))
}

func TestSuperCache_KeyedByDefaultBang(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sc := NewSuperCache(mem, nil, WithForcedOn(true))

	require.NoError(t, sc.Put(ctx, "g", "golang", "https://www.google.com/search?q=golang"))
	require.NoError(t, sc.Put(ctx, "b", "golang", "https://www.bing.com/search?q=golang"))

	url, ok := sc.Get(ctx, "g", "golang")
	require.True(t, ok)
	assert.Equal(t, "https://www.google.com/search?q=golang", url)

	_, ok = sc.Get(ctx, "w", "golang")
	assert.False(t, ok)

	again := NewSuperCache(mem, nil, WithForcedOn(true))
	url, ok = again.Get(ctx, "b", "golang")
	require.True(t, ok)
	assert.Equal(t, "https://www.bing.com/search?q=golang", url)

	entries := again.Entries(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "golang", entries[0].Query)
	assert.Equal(t, "g", entries[0].DefaultBang)
	assert.Equal(t, "b", entries[1].DefaultBang)
}

func TestSuperCache_StoredFlagOverridesConfig(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	sc := NewSuperCache(mem, nil, WithForcedOn(true))

	assert.True(t, sc.Enabled(ctx), "config enables it while no flag is stored")

	require.NoError(t, sc.SetEnabled(ctx, false))
	assert.False(t, sc.Enabled(ctx))
	require.NoError(t, sc.Put(ctx, "g", "q", "https://x"))
	assert.Empty(t, sc.Entries(ctx))

	require.NoError(t, sc.SetEnabled(ctx, true))
	assert.True(t, sc.Enabled(ctx))
}
