// Package keychain supplies the public keys that sign identity provider
// tokens. A Keychain reads the JWK Set document through a cache.Cache and
// fetches it from the provider only when the cache has nothing usable.
package keychain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/go-jose/go-jose/v4"

	"github.com/ggoodman/incognito-go/cache"
	"github.com/ggoodman/incognito-go/cache/memory"
)

// maxKeysetBytes caps the size of a keyset response body.
const maxKeysetBytes = 1 << 20

var (
	jsonMediaType   = contenttype.NewMediaType("application/json")
	jwkSetMediaType = contenttype.NewMediaType("application/jwk-set+json")
)

// Keychain is a read-through cache of a remote JWK Set. It does no locking of
// its own: concurrent misses each fetch and the last save wins.
type Keychain struct {
	url      string
	client   HTTPDoer
	cache    cache.Cache
	ownCache bool
	factory  cache.ItemFactory
	cacheKey string
	ttl      time.Duration
	log      *slog.Logger
}

// New returns a Keychain for the JWK Set published at jwksURL.
func New(jwksURL string, opts ...Option) (*Keychain, error) {
	if jwksURL == "" {
		return nil, errors.New("keychain: keyset URL is required")
	}
	k, err := newKeychain(opts)
	if err != nil {
		return nil, err
	}
	k.url = jwksURL
	return k, nil
}

func newKeychain(opts []Option) (*Keychain, error) {
	k := &Keychain{
		client:   http.DefaultClient,
		factory:  cache.DefaultFactory,
		cacheKey: DefaultCacheKey,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.cache == nil {
		c, err := memory.New(8)
		if err != nil {
			return nil, fmt.Errorf("keychain: default cache: %w", err)
		}
		k.cache = c
		k.ownCache = true
	}
	return k, nil
}

// URL returns the address the keyset is fetched from.
func (k *Keychain) URL() string { return k.url }

// CacheKey returns the key the raw keyset is cached under.
func (k *Keychain) CacheKey() string { return k.cacheKey }

// PublicKeyset returns the current keyset. A cached document is used when
// present and parseable; otherwise the keyset is fetched once and saved.
// Failures are reported as *FetchError.
func (k *Keychain) PublicKeyset(ctx context.Context) (*jose.JSONWebKeySet, error) {
	_, set, err := k.load(ctx)
	return set, err
}

// RawKeyset is PublicKeyset returning the JSON document instead.
func (k *Keychain) RawKeyset(ctx context.Context) ([]byte, error) {
	raw, _, err := k.load(ctx)
	return raw, err
}

// Refresh fetches the keyset unconditionally and replaces the cached copy.
func (k *Keychain) Refresh(ctx context.Context) (*jose.JSONWebKeySet, error) {
	raw, set, err := k.fetch(ctx)
	if err != nil {
		return nil, err
	}
	k.save(ctx, raw)
	return set, nil
}

// Invalidate drops the cached keyset so the next read fetches it again.
func (k *Keychain) Invalidate(ctx context.Context) error {
	if err := k.cache.Delete(ctx, k.cacheKey); err != nil {
		return fmt.Errorf("keychain: invalidate: %w", err)
	}
	return nil
}

// Close releases the default cache. Caches passed with WithCache belong to
// the caller and are left open.
func (k *Keychain) Close() error {
	if k.ownCache {
		return k.cache.Close()
	}
	return nil
}

func (k *Keychain) load(ctx context.Context) ([]byte, *jose.JSONWebKeySet, error) {
	item, err := k.cache.Get(ctx, k.cacheKey)
	switch {
	case err != nil:
		k.log.WarnContext(ctx, "keychain.cache.get_fail", slog.String("key", k.cacheKey), slog.String("err", err.Error()))
	case item.IsHit() && len(item.Value()) > 0:
		raw := item.Value()
		set, perr := parseKeyset(raw)
		if perr == nil {
			k.log.DebugContext(ctx, "keychain.cache.hit", slog.String("key", k.cacheKey), slog.Int("keys", len(set.Keys)))
			return raw, set, nil
		}
		k.log.WarnContext(ctx, "keychain.cache.corrupt", slog.String("key", k.cacheKey), slog.String("err", perr.Error()))
	default:
		k.log.DebugContext(ctx, "keychain.cache.miss", slog.String("key", k.cacheKey))
	}

	raw, set, err := k.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	k.save(ctx, raw)
	return raw, set, nil
}

func (k *Keychain) save(ctx context.Context, raw []byte) {
	var opts []cache.Option
	if k.ttl > 0 {
		opts = append(opts, cache.WithTTL(k.ttl))
	}
	if err := k.cache.Save(ctx, k.factory.Make(k.cacheKey, raw, true), opts...); err != nil {
		k.log.WarnContext(ctx, "keychain.cache.save_fail", slog.String("key", k.cacheKey), slog.String("err", err.Error()))
	}
}

func (k *Keychain) fetch(ctx context.Context) ([]byte, *jose.JSONWebKeySet, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, nil, &FetchError{URL: k.url, Err: err}
	}
	req.Header.Set("Accept", "application/jwk-set+json, application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		k.log.WarnContext(ctx, "keychain.fetch.fail", slog.String("url", k.url), slog.String("err", err.Error()))
		return nil, nil, &FetchError{URL: k.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxKeysetBytes))
		k.log.WarnContext(ctx, "keychain.fetch.fail", slog.String("url", k.url), slog.Int("status", resp.StatusCode))
		return nil, nil, &FetchError{URL: k.url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	ctype := resp.Header.Get("Content-Type")
	mt := contenttype.NewMediaType(ctype)
	if !mt.Matches(jsonMediaType) && !mt.Matches(jwkSetMediaType) {
		k.log.WarnContext(ctx, "keychain.fetch.fail", slog.String("url", k.url), slog.String("content_type", ctype))
		return nil, nil, &FetchError{URL: k.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %q", ErrUnexpectedContentType, ctype)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxKeysetBytes))
	if err != nil {
		return nil, nil, &FetchError{URL: k.url, StatusCode: resp.StatusCode, Err: err}
	}

	set, err := parseKeyset(raw)
	if err != nil {
		k.log.WarnContext(ctx, "keychain.fetch.fail", slog.String("url", k.url), slog.String("err", err.Error()))
		return nil, nil, &FetchError{URL: k.url, StatusCode: resp.StatusCode, Err: err}
	}

	k.log.InfoContext(ctx, "keychain.fetch.ok",
		slog.String("url", k.url),
		slog.Int("keys", len(set.Keys)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return raw, set, nil
}

// parseKeyset decodes a JWK Set document. The keys member must be present,
// though it may be empty.
func parseKeyset(raw []byte) (*jose.JSONWebKeySet, error) {
	var probe struct {
		Keys json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyset, err)
	}
	if len(probe.Keys) == 0 || string(probe.Keys) == "null" {
		return nil, fmt.Errorf("%w: missing keys member", ErrInvalidKeyset)
	}
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyset, err)
	}
	return &set, nil
}
