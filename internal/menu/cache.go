package menu

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gyaneshwarpardhi/navtree/internal/metrics"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

// View names a cached query shape.
type View string

const (
	ViewMenu       View = "menu"
	ViewBreadcrumb View = "breadcrumb"
	ViewLevel      View = "level"
	ViewMain       View = "main"
	ViewLeft       View = "left"
)

// Key identifies a composed result. Version ties it to one snapshot and Gen
// to one route and menu configuration, so neither a commit nor a reload
// serves stale entries.
type Key struct {
	Version  uint64
	Gen      uint64
	View     View
	Selected tree.ID
	Level    int
	Flags    uint8
}

// Flag bits for Key.Flags.
const (
	FlagIncludeRoot uint8 = 1 << iota
	FlagExcludeSelected
	FlagWithChildren
)

func (k Key) String() string {
	return fmt.Sprintf("%d.%d/%s/%d/%d/%d", k.Version, k.Gen, k.View, k.Selected, k.Level, k.Flags)
}

// Cache memoizes composed views per snapshot. Concurrent misses on the same
// key are collapsed into one build. Cached values are shared and must be
// treated as read-only.
type Cache struct {
	entries *lru.Cache[Key, any]
	group   singleflight.Group
}

// NewCache creates a cache holding up to size results. A non-positive size
// disables caching.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return &Cache{}, nil
	}
	entries, err := lru.New[Key, any](size)
	if err != nil {
		return nil, fmt.Errorf("menu cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c != nil && c.entries != nil {
		c.entries.Purge()
	}
}

// Len reports the number of cached results.
func (c *Cache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Cached returns the value stored under key, building it on a miss.
func Cached[T any](c *Cache, key Key, build func() T) T {
	if c == nil || c.entries == nil {
		return build()
	}
	if v, ok := c.entries.Get(key); ok {
		if t, ok := v.(T); ok {
			metrics.MenuCache.WithLabelValues("hit").Inc()
			return t
		}
	}
	metrics.MenuCache.WithLabelValues("miss").Inc()
	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		t := build()
		c.entries.Add(key, t)
		return t, nil
	})
	return v.(T)
}
