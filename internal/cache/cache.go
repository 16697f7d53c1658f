// Package cache provides an optional in-memory TTL cache for successful
// upstream responses.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cmc-proxy/internal/model"
)

// Fetcher loads a response on a cache miss.
type Fetcher func(ctx context.Context) (*model.UpstreamResponse, error)

// entry stores one upstream response with its expiry.
type entry struct {
	expiresAt time.Time
	resp      *model.UpstreamResponse
}

// Cache stores 2xx upstream responses per key for a fixed TTL.
// Concurrent misses for the same key share one upstream call.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.RWMutex
	items map[string]entry

	group singleflight.Group
}

// New creates a Cache. maxEntries <= 0 means unbounded.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		items:      make(map[string]entry),
	}
}

// Get returns the cached response for key if it is still fresh.
func (c *Cache) Get(key string) (*model.UpstreamResponse, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.resp, true
}

// Set stores resp under key. Non-2xx responses are ignored.
func (c *Cache) Set(key string, resp *model.UpstreamResponse) {
	if resp == nil || !resp.OK() || c.ttl <= 0 {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{expiresAt: now.Add(c.ttl), resp: resp}
	if c.maxEntries <= 0 || len(c.items) <= c.maxEntries {
		return
	}
	// Drop expired entries first, then arbitrary ones until under the cap.
	for k, v := range c.items {
		if !now.Before(v.expiresAt) {
			delete(c.items, k)
		}
	}
	for k := range c.items {
		if len(c.items) <= c.maxEntries {
			break
		}
		if k != key {
			delete(c.items, k)
		}
	}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetOrFetch returns the fresh cached response for key, or calls fetch once
// for all concurrent callers of the same key and stores a successful result.
// The boolean reports whether the response came from the cache.
//
// The shared fetch is detached from the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch Fetcher) (*model.UpstreamResponse, bool, error) {
	if resp, ok := c.Get(key); ok {
		return resp, true, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		resp, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		c.Set(key, resp)
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*model.UpstreamResponse), false, nil
	}
}
