package keychain

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/ggoodman/incognito-go/cache"
	"github.com/ggoodman/incognito-go/cache/memory"
)

type jwksServer struct {
	srv  *httptest.Server
	hits atomic.Int32

	mu          sync.Mutex
	body        []byte
	status      int
	contentType string
}

func newJWKSServer(t *testing.T, body []byte) *jwksServer {
	t.Helper()
	s := &jwksServer{body: body, status: http.StatusOK, contentType: "application/json"}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		body, status, ct := s.body, s.status, s.contentType
		s.mu.Unlock()
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) respond(status int, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.contentType, s.body = status, contentType, body
}

func (s *jwksServer) URL() string { return s.srv.URL + "/.well-known/jwks.json" }

func genKeyset(t *testing.T, kid string) (*rsa.PrivateKey, []byte) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	jwk := jose.JSONWebKey{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
	raw, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return pk, raw
}

func newMemoryCache(t *testing.T) *memory.Cache {
	t.Helper()
	c, err := memory.New(16)
	if err != nil {
		t.Fatalf("memory.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestKeychain(t *testing.T, url string, opts ...Option) *Keychain {
	t.Helper()
	k, err := New(url, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = k.Close() })
	return k
}

func keyIDs(set *jose.JSONWebKeySet) []string {
	var ids []string
	for _, k := range set.Keys {
		ids = append(ids, k.KeyID)
	}
	return ids
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestColdCacheFetchesOnceThenServesFromCache(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	c := newMemoryCache(t)
	k := newTestKeychain(t, srv.URL(), WithCache(c))
	ctx := context.Background()

	first, err := k.PublicKeyset(ctx)
	if err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if n := srv.hits.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	item, err := c.Get(ctx, DefaultCacheKey)
	if err != nil || !item.IsHit() {
		t.Fatalf("keyset was not cached: hit=%v err=%v", item != nil && item.IsHit(), err)
	}
	if string(item.Value()) != string(body) {
		t.Fatal("cached value differs from the fetched document")
	}

	second, err := k.PublicKeyset(ctx)
	if err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if n := srv.hits.Load(); n != 1 {
		t.Fatalf("expected no further fetches, got %d total", n)
	}
	if diff := cmp.Diff(keyIDs(first), keyIDs(second)); diff != "" {
		t.Fatalf("keysets differ (-first +second):\n%s", diff)
	}
}

func TestWarmCacheDoesNotFetch(t *testing.T) {
	_, body := genKeyset(t, "warm")
	srv := newJWKSServer(t, []byte(`{"keys":[]}`))
	c := newMemoryCache(t)
	if err := c.Save(context.Background(), cache.NewItem(DefaultCacheKey, body, true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	k := newTestKeychain(t, srv.URL(), WithCache(c))

	set, err := k.PublicKeyset(context.Background())
	if err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if n := srv.hits.Load(); n != 0 {
		t.Fatalf("expected no fetch, got %d", n)
	}
	if diff := cmp.Diff([]string{"warm"}, keyIDs(set)); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
}

func TestZeroKeysAreCachedNotRefetched(t *testing.T) {
	srv := newJWKSServer(t, []byte(`{"keys":[]}`))
	k := newTestKeychain(t, srv.URL())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		set, err := k.PublicKeyset(ctx)
		if err != nil {
			t.Fatalf("PublicKeyset() failed: %v", err)
		}
		if len(set.Keys) != 0 {
			t.Fatalf("expected empty keyset, got %d keys", len(set.Keys))
		}
	}
	if n := srv.hits.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestEmptyCachedValueFetches(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	c := newMemoryCache(t)
	if err := c.Save(context.Background(), cache.NewItem(DefaultCacheKey, nil, true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	k := newTestKeychain(t, srv.URL(), WithCache(c))

	if _, err := k.PublicKeyset(context.Background()); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if n := srv.hits.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestCorruptCacheIsRefetchedAndOverwritten(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	c := newMemoryCache(t)
	ctx := context.Background()
	if err := c.Save(ctx, cache.NewItem(DefaultCacheKey, []byte("{not json"), true)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	k := newTestKeychain(t, srv.URL(), WithCache(c))

	if _, err := k.PublicKeyset(ctx); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	item, _ := c.Get(ctx, DefaultCacheKey)
	if string(item.Value()) != string(body) {
		t.Fatal("corrupt cache entry was not overwritten")
	}
}

func TestFetchFailures(t *testing.T) {
	_, body := genKeyset(t, "1")

	cases := []struct {
		name        string
		status      int
		contentType string
		body        []byte
		cause       error
		wantStatus  int
	}{
		{"not found", http.StatusNotFound, "application/json", []byte(`{}`), ErrUnexpectedStatus, http.StatusNotFound},
		{"server error", http.StatusInternalServerError, "application/json", body, ErrUnexpectedStatus, http.StatusInternalServerError},
		{"html", http.StatusOK, "text/html", body, ErrUnexpectedContentType, http.StatusOK},
		{"no content type", http.StatusOK, "", body, ErrUnexpectedContentType, http.StatusOK},
		{"malformed json", http.StatusOK, "application/json", []byte(`{"keys":[`), ErrInvalidKeyset, http.StatusOK},
		{"missing keys", http.StatusOK, "application/json", []byte(`{"foo":1}`), ErrInvalidKeyset, http.StatusOK},
		{"null keys", http.StatusOK, "application/json", []byte(`{"keys":null}`), ErrInvalidKeyset, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newJWKSServer(t, tc.body)
			srv.respond(tc.status, tc.contentType, tc.body)
			c := newMemoryCache(t)
			k := newTestKeychain(t, srv.URL(), WithCache(c))

			set, err := k.PublicKeyset(context.Background())
			if set != nil {
				t.Fatal("expected no keyset on failure")
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fe.URL != srv.URL() {
				t.Fatalf("FetchError.URL = %q, want %q", fe.URL, srv.URL())
			}
			if fe.StatusCode != tc.wantStatus {
				t.Fatalf("FetchError.StatusCode = %d, want %d", fe.StatusCode, tc.wantStatus)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}

			item, _ := c.Get(context.Background(), DefaultCacheKey)
			if item.IsHit() {
				t.Fatal("failed fetch must not populate the cache")
			}
		})
	}
}

func TestAcceptedContentTypes(t *testing.T) {
	_, body := genKeyset(t, "1")
	for _, ct := range []string{"application/json", "application/json; charset=utf-8", "application/jwk-set+json"} {
		t.Run(ct, func(t *testing.T) {
			srv := newJWKSServer(t, body)
			srv.respond(http.StatusOK, ct, body)
			k := newTestKeychain(t, srv.URL())
			if _, err := k.PublicKeyset(context.Background()); err != nil {
				t.Fatalf("PublicKeyset() failed: %v", err)
			}
		})
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/jwks.json"
	srv.Close()

	k := newTestKeychain(t, url)
	_, err := k.PublicKeyset(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fe.StatusCode != 0 {
		t.Fatalf("expected no status code, got %d", fe.StatusCode)
	}
}

type countingFactory struct{ calls atomic.Int32 }

func (f *countingFactory) Make(key string, data []byte, isHit bool) cache.Item {
	f.calls.Add(1)
	return cache.NewItem(key, data, isHit)
}

func TestItemFactoryAndCacheKey(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	c := newMemoryCache(t)
	f := &countingFactory{}
	k := newTestKeychain(t, srv.URL(), WithCache(c), WithItemFactory(f), WithCacheKey("pool-a.jwks"))

	if _, err := k.PublicKeyset(context.Background()); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected factory to build 1 item, got %d", f.calls.Load())
	}
	item, _ := c.Get(context.Background(), "pool-a.jwks")
	if !item.IsHit() {
		t.Fatal("keyset not stored under the configured key")
	}
}

type failingSaveCache struct {
	cache.Cache
}

func (failingSaveCache) Save(context.Context, cache.Item, ...cache.Option) error {
	return errors.New("disk full")
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	k := newTestKeychain(t, srv.URL(), WithCache(failingSaveCache{Cache: newMemoryCache(t)}))

	set, err := k.PublicKeyset(context.Background())
	if err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(set.Keys))
	}
}

type recordingCache struct {
	cache.Cache
	ttl *time.Duration
}

func (r *recordingCache) Save(ctx context.Context, item cache.Item, opts ...cache.Option) error {
	r.ttl = cache.ApplyOptions(opts...).TTL
	return r.Cache.Save(ctx, item, opts...)
}

func TestCacheTTLIsPassedToSave(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	rc := &recordingCache{Cache: newMemoryCache(t)}
	k := newTestKeychain(t, srv.URL(), WithCache(rc), WithCacheTTL(time.Hour))

	if _, err := k.PublicKeyset(context.Background()); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if rc.ttl == nil || *rc.ttl != time.Hour {
		t.Fatalf("expected TTL of 1h, got %v", rc.ttl)
	}
}

func TestInvalidateAndRefresh(t *testing.T) {
	_, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	k := newTestKeychain(t, srv.URL())
	ctx := context.Background()

	if _, err := k.PublicKeyset(ctx); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if err := k.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}
	if _, err := k.PublicKeyset(ctx); err != nil {
		t.Fatalf("PublicKeyset() failed: %v", err)
	}
	if n := srv.hits.Load(); n != 2 {
		t.Fatalf("expected 2 fetches after invalidate, got %d", n)
	}

	_, rotated := genKeyset(t, "2")
	srv.respond(http.StatusOK, "application/json", rotated)
	set, err := k.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"2"}, keyIDs(set)); diff != "" {
		t.Fatalf("unexpected keys after refresh (-want +got):\n%s", diff)
	}
	raw, err := k.RawKeyset(ctx)
	if err != nil {
		t.Fatalf("RawKeyset() failed: %v", err)
	}
	if string(raw) != string(rotated) {
		t.Fatal("refresh did not replace the cached document")
	}
	if n := srv.hits.Load(); n != 3 {
		t.Fatalf("expected 3 fetches, got %d", n)
	}
}

func TestKeyfunc(t *testing.T) {
	pk, body := genKeyset(t, "1")
	srv := newJWKSServer(t, body)
	k := newTestKeychain(t, srv.URL())

	kf, err := k.Keyfunc(context.Background())
	if err != nil {
		t.Fatalf("Keyfunc() failed: %v", err)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "abc", "token_use": "access"})
	tok.Header["kid"] = "1"
	signed, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := jwt.Parse(signed, kf, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		t.Fatalf("jwt.Parse() failed: %v", err)
	}
	if sub, _ := parsed.Claims.GetSubject(); sub != "abc" {
		t.Fatalf("subject = %q, want abc", sub)
	}
}
