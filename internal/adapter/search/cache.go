package search

import (
	"context"
	"sync"
	"time"

	"scoutchat/internal/domain"
)

// Cache stores search responses by key until they expire.
type Cache interface {
	Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error)
	Put(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error
	Close() error
}

const defaultMaxEntries = 100

// cacheEntry holds a cached response with its expiration time.
type cacheEntry struct {
	resp      *domain.SearchResponse
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped on read
// and swept once the map grows past maxEntries.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates a MemoryCache. maxEntries <= 0 uses a default of 100.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*domain.SearchResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.resp, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = cacheEntry{resp: resp, expiresAt: now.Add(ttl)}

	if len(c.entries) <= c.maxEntries {
		return nil
	}
	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
	// Still full of live entries: evict the one closest to expiry.
	for len(c.entries) > c.maxEntries {
		var oldest string
		var oldestAt time.Time
		for k, v := range c.entries {
			if oldest == "" || v.expiresAt.Before(oldestAt) {
				oldest, oldestAt = k, v.expiresAt
			}
		}
		delete(c.entries, oldest)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error { return nil }
