package incognito

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ggoodman/incognito-go/auth"
	"github.com/ggoodman/incognito-go/cache"
	"github.com/ggoodman/incognito-go/cache/file"
	"github.com/ggoodman/incognito-go/cache/memory"
	"github.com/ggoodman/incognito-go/cache/redis"
	"github.com/ggoodman/incognito-go/keychain"
	"github.com/ggoodman/incognito-go/token"
)

type options struct {
	log        *slog.Logger
	httpClient *http.Client
	cache      cache.Cache
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHTTPClient sets the client used for discovery and keyset fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithCache supplies the keyset cache, overriding Config.Cache. The caller
// keeps ownership of c.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// Verifier verifies tokens issued by one user pool. It is safe for concurrent
// use.
type Verifier struct {
	cfg      Config
	log      *slog.Logger
	cache    cache.Cache
	closers  []func() error
	keychain *keychain.Keychain
	service  *token.Service
	authn    auth.Authenticator
}

// NewFromEnv is New with the Config read by LoadConfig.
func NewFromEnv(ctx context.Context, opts ...Option) (*Verifier, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// New builds the cache, keychain and verification service described by cfg.
// When cfg has no keyset URL it is discovered from the issuer, which needs
// network access.
func New(ctx context.Context, cfg Config, opts ...Option) (*Verifier, error) {
	o := &options{log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Verifier{cfg: cfg, log: o.log}

	c := o.cache
	if c == nil {
		var err error
		c, err = v.openCache(ctx)
		if err != nil {
			return nil, err
		}
	}
	v.cache = c

	kopts := []keychain.Option{
		keychain.WithCache(c),
		keychain.WithCacheKey(cfg.CacheKey),
		keychain.WithCacheTTL(cfg.CacheTTL),
		keychain.WithLogger(o.log),
	}
	if o.httpClient != nil {
		kopts = append(kopts, keychain.WithHTTPClient(o.httpClient))
	}

	var (
		kc  *keychain.Keychain
		err error
	)
	if cfg.JWKSURL != "" {
		kc, err = keychain.New(cfg.JWKSURL, kopts...)
	} else {
		kc, err = keychain.Discover(ctx, cfg.Issuer, kopts...)
	}
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	v.keychain = kc
	v.cfg.JWKSURL = kc.URL()

	topts := append(cfg.tokenOptions(), token.WithLogger(o.log))
	svc, err := token.NewService(cfg.ClientID, kc, topts...)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	v.service = svc
	v.authn = auth.NewFromVerifier(svc)

	o.log.InfoContext(ctx, "incognito.ready",
		slog.String("jwks_url", v.cfg.JWKSURL),
		slog.String("issuer", cfg.Issuer),
		slog.String("cache", cfg.Cache),
	)
	return v, nil
}

func (v *Verifier) openCache(ctx context.Context) (cache.Cache, error) {
	switch v.cfg.Cache {
	case CacheRedis:
		client := goredis.NewClient(&goredis.Options{Addr: v.cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("incognito: redis ping: %w", err)
		}
		c, err := redis.New(redis.Config{Client: client})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		v.closers = append(v.closers, c.Close)
		return c, nil
	case CacheFile:
		c, err := file.New(v.cfg.CacheDir, file.WithLogger(v.log))
		if err != nil {
			return nil, err
		}
		v.closers = append(v.closers, c.Close)
		return c, nil
	default:
		c, err := memory.New(8)
		if err != nil {
			return nil, err
		}
		v.closers = append(v.closers, c.Close)
		return c, nil
	}
}

// Config returns the normalized configuration, including a discovered keyset
// URL.
func (v *Verifier) Config() Config { return v.cfg }

// SecurityConfig describes the tokens the verifier accepts, e.g. for
// auth.ResourceMetadata.
func (v *Verifier) SecurityConfig() auth.SecurityConfig {
	sec := auth.SecurityConfig{
		Issuer:     v.cfg.Issuer,
		Audience:   v.cfg.ClientID,
		AllowedAlg: v.cfg.Algorithm,
		JWKSURL:    v.cfg.JWKSURL,
		Leeway:     v.cfg.Leeway,
	}
	if v.cfg.TokenUse != "" {
		sec.TokenUses = []string{v.cfg.TokenUse}
	}
	return sec
}

// Keychain returns the keychain serving the pool's public keys.
func (v *Verifier) Keychain() *keychain.Keychain { return v.keychain }

// Service returns the underlying verification pipeline.
func (v *Verifier) Service() *token.Service { return v.service }

// VerifyToken verifies raw. See token.Service.VerifyToken.
func (v *Verifier) VerifyToken(ctx context.Context, raw string) (*token.Token, error) {
	return v.service.VerifyToken(ctx, raw)
}

// Authenticator returns the verifier as an auth.Authenticator.
func (v *Verifier) Authenticator() auth.Authenticator { return v.authn }

// Middleware returns an HTTP middleware that rejects requests without a valid
// bearer token.
func (v *Verifier) Middleware(opts ...auth.MiddlewareOption) func(http.Handler) http.Handler {
	opts = append([]auth.MiddlewareOption{auth.WithMiddlewareLogger(v.log)}, opts...)
	return auth.Middleware(v.authn, opts...)
}

// Close releases the cache and any connection opened by New.
func (v *Verifier) Close() error {
	var errs []error
	if v.keychain != nil {
		errs = append(errs, v.keychain.Close())
	}
	for i := len(v.closers) - 1; i >= 0; i-- {
		errs = append(errs, v.closers[i]())
	}
	v.closers = nil
	return errors.Join(errs...)
}
