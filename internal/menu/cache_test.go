package menu

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBuildsOncePerKey(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)

	var builds atomic.Int32
	build := func() []Item {
		builds.Add(1)
		return []Item{{Name: "food"}}
	}
	key := Key{Version: 1, View: ViewMenu, Flags: FlagIncludeRoot}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := Cached(c, key, build)
			assert.Equal(t, "food", got[0].Name)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, builds.Load(), int32(16))

	before := builds.Load()
	Cached(c, key, build)
	assert.Equal(t, before, builds.Load(), "second lookup should hit")

	Cached(c, Key{Version: 2, View: ViewMenu, Flags: FlagIncludeRoot}, build)
	assert.Equal(t, before+1, builds.Load(), "new version should miss")
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCacheDisabled(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)

	calls := 0
	for range 3 {
		Cached(c, Key{View: ViewLevel, Level: 2}, func() int { calls++; return calls })
	}
	assert.Equal(t, 3, calls)
	assert.Zero(t, c.Len())

	var nilCache *Cache
	assert.Equal(t, 7, Cached(nilCache, Key{}, func() int { return 7 }))
}
