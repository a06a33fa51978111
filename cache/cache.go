// Package cache defines the key-value capability the keychain uses to persist
// the identity provider's public keyset between verifications.
//
// The core never talks to a concrete store. Backends live in subpackages
// (memory, redis, file) and every one of them satisfies Cache. Items are
// produced by an ItemFactory so applications can bridge to whatever cache item
// representation their framework already uses.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the minimal capability needed by the keychain.
type Cache interface {
	// Get retrieves the item stored under key. A miss is reported through
	// Item.IsHit, never through an error; errors are reserved for backend
	// failures.
	Get(ctx context.Context, key string) (Item, error)

	// Save stores item under item.Key(), replacing any existing value.
	Save(ctx context.Context, item Item, opts ...Option) error

	// Delete removes the value stored under key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Item is a single cache entry: a key, its value, and whether it was the
// result of a cache hit.
type Item interface {
	Key() string
	Value() []byte
	IsHit() bool
}

// ItemFactory builds Items. The keychain uses it to construct the entry it
// saves after fetching a fresh keyset.
type ItemFactory interface {
	Make(key string, data []byte, isHit bool) Item
}

// ItemFactoryFunc adapts a function to the ItemFactory interface.
type ItemFactoryFunc func(key string, data []byte, isHit bool) Item

// Make calls f.
func (f ItemFactoryFunc) Make(key string, data []byte, isHit bool) Item {
	return f(key, data, isHit)
}

// DefaultFactory produces *BasicItem values.
var DefaultFactory ItemFactory = ItemFactoryFunc(func(key string, data []byte, isHit bool) Item {
	return NewItem(key, data, isHit)
})

// BasicItem is the Item implementation used by the bundled backends.
type BasicItem struct {
	key  string
	data []byte
	hit  bool
}

// NewItem returns an item holding a private copy of data.
func NewItem(key string, data []byte, isHit bool) *BasicItem {
	var cp []byte
	if data != nil {
		cp = make([]byte, len(data))
		copy(cp, data)
	}
	return &BasicItem{key: key, data: cp, hit: isHit}
}

// Miss returns the item a backend reports when nothing is stored under key.
func Miss(key string) *BasicItem {
	return &BasicItem{key: key}
}

func (i *BasicItem) Key() string   { return i.key }
func (i *BasicItem) Value() []byte { return i.data }
func (i *BasicItem) IsHit() bool   { return i.hit }

// Option configures a Save operation.
type Option func(*Options)

// Options holds the resolved Save options.
type Options struct {
	TTL *time.Duration // nil = no expiration
}

// WithTTL bounds how long a saved item stays visible.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// ApplyOptions resolves opts into an Options value. Backends call this from
// Save.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ErrInvalidKey is returned when a backend cannot represent the given key.
var ErrInvalidKey = errors.New("cache: invalid key")
