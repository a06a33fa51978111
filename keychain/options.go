package keychain

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ggoodman/incognito-go/cache"
)

// DefaultCacheKey is the cache key the raw keyset document is stored under.
const DefaultCacheKey = "cognito.jwt.public-keys"

// HTTPDoer is the subset of *http.Client the keychain needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Keychain.
type Option func(*Keychain)

// WithHTTPClient sets the client used to fetch the keyset. Defaults to
// http.DefaultClient.
func WithHTTPClient(c HTTPDoer) Option {
	return func(k *Keychain) {
		if c != nil {
			k.client = c
		}
	}
}

// WithCache sets the cache holding the raw keyset document. Without it the
// keychain uses a small private in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(k *Keychain) {
		if c != nil {
			k.cache = c
		}
	}
}

// WithItemFactory sets the factory used to build the item saved after a
// fetch.
func WithItemFactory(f cache.ItemFactory) Option {
	return func(k *Keychain) {
		if f != nil {
			k.factory = f
		}
	}
}

// WithCacheKey overrides DefaultCacheKey.
func WithCacheKey(key string) Option {
	return func(k *Keychain) {
		if key != "" {
			k.cacheKey = key
		}
	}
}

// WithCacheTTL bounds how long a fetched keyset stays cached. Zero (the
// default) caches until the entry is invalidated or evicted.
func WithCacheTTL(d time.Duration) Option {
	return func(k *Keychain) {
		if d > 0 {
			k.ttl = d
		}
	}
}

// WithLogger sets the logger for cache and fetch diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(k *Keychain) {
		if log != nil {
			k.log = log
		}
	}
}
