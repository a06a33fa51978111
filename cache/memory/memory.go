// Package memory provides an in-process implementation of cache.Cache backed
// by github.com/hashicorp/golang-lru/v2, with optional per-item expiry.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ggoodman/incognito-go/cache"
	lru "github.com/hashicorp/golang-lru/v2"
)

const cleanupInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt *time.Time
}

func (e *entry) expired(now time.Time) bool {
	return e.expiresAt != nil && now.After(*e.expiresAt)
}

// Cache implements cache.Cache in memory.
type Cache struct {
	mu    sync.RWMutex
	items *lru.Cache[string, *entry]

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates an in-memory cache holding at most maxItems entries.
func New(maxItems int) (*Cache, error) {
	items, err := lru.New[string, *entry](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	c := &Cache{
		items: items,
		stop:  make(chan struct{}),
	}

	go c.cleanupExpired()

	return c, nil
}

// Get returns the item stored under key, or a miss.
func (c *Cache) Get(ctx context.Context, key string) (cache.Item, error) {
	c.mu.RLock()
	e, ok := c.items.Get(key)
	c.mu.RUnlock()

	if !ok {
		return cache.Miss(key), nil
	}

	if e.expired(time.Now()) {
		c.mu.Lock()
		// A Save may have replaced the entry since the read lock was released.
		if cur, ok := c.items.Peek(key); ok && cur.expired(time.Now()) {
			c.items.Remove(key)
		}
		c.mu.Unlock()
		return cache.Miss(key), nil
	}

	return cache.NewItem(key, e.data, true), nil
}

// Save stores a copy of item's value.
func (c *Cache) Save(ctx context.Context, item cache.Item, opts ...cache.Option) error {
	options := cache.ApplyOptions(opts...)

	data := item.Value()
	e := &entry{data: make([]byte, len(data))}
	copy(e.data, data)

	if options.TTL != nil {
		expiresAt := time.Now().Add(*options.TTL)
		e.expiresAt = &expiresAt
	}

	c.mu.Lock()
	c.items.Add(item.Key(), e)
	c.mu.Unlock()

	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	c.items.Remove(key)
	c.mu.Unlock()
	return nil
}

// Close purges all entries and stops the background sweeper.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.mu.Lock()
	c.items.Purge()
	c.mu.Unlock()
	return nil
}

// cleanupExpired periodically evicts expired entries so they do not occupy
// LRU slots until the next Get.
func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		now := time.Now()
		for _, key := range c.items.Keys() {
			if e, ok := c.items.Peek(key); ok && e.expired(now) {
				c.items.Remove(key)
			}
		}
		c.mu.Unlock()
	}
}

var _ cache.Cache = (*Cache)(nil)
