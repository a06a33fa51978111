// Package redis provides a Redis-backed implementation of cache.Cache so that
// a fleet of verifiers can share one copy of the provider's keyset.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ggoodman/incognito-go/cache"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is prepended to every key when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "incognito:cache:"

// Config contains configuration options for the Redis cache.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys.
	// Default: "incognito:cache:"
	KeyPrefix string
}

// Cache implements cache.Cache using Redis.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the envelope written to Redis.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a Redis-backed cache.
func New(config Config) (*Cache, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	return &Cache{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Get returns the item stored under key, or a miss.
func (c *Cache) Get(ctx context.Context, key string) (cache.Item, error) {
	redisKey := c.keyPrefix + key

	raw, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.Miss(key), nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, err)
	}

	var item storedItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	// Redis expires keys itself; this covers clock skew between writer and
	// the server's own expiry.
	if item.ExpiresAt != nil && time.Now().After(*item.ExpiresAt) {
		c.client.Del(ctx, redisKey)
		return cache.Miss(key), nil
	}

	return cache.NewItem(key, item.Data, true), nil
}

// Save stores item. A TTL option maps to a native Redis expiry.
func (c *Cache) Save(ctx context.Context, item cache.Item, opts ...cache.Option) error {
	options := cache.ApplyOptions(opts...)
	redisKey := c.keyPrefix + item.Key()

	now := time.Now()
	stored := storedItem{
		Data:      item.Value(),
		CreatedAt: now,
	}

	var redisTTL time.Duration
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		stored.ExpiresAt = &expiresAt
		redisTTL = *options.TTL
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal cache item: %w", err)
	}

	if err := c.client.Set(ctx, redisKey, payload, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, err)
	}

	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	redisKey := c.keyPrefix + key
	if err := c.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.Cache = (*Cache)(nil)
