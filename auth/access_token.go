package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ggoodman/incognito-go/keychain"
	"github.com/ggoodman/incognito-go/token"
)

// Verifier verifies a raw bearer token. *token.Service implements it.
type Verifier interface {
	VerifyToken(ctx context.Context, raw string) (*token.Token, error)
}

type accessTokenConfig struct {
	sec          SecurityConfig
	keychainOpts []keychain.Option
	log          *slog.Logger
}

// AccessTokenAuthOption configures optional aspects of the access token
// authenticator (algorithm, leeway, token use, keyset caching). Issuer and
// audience are formal arguments or SecurityConfig fields instead.
type AccessTokenAuthOption func(*accessTokenConfig)

// WithAllowedAlg replaces the accepted JWS algorithm. Defaults to RS256.
func WithAllowedAlg(alg string) AccessTokenAuthOption {
	return func(c *accessTokenConfig) { c.sec.AllowedAlg = alg }
}

// WithLeeway sets clock skew tolerance for time-based claims.
func WithLeeway(d time.Duration) AccessTokenAuthOption {
	return func(c *accessTokenConfig) { c.sec.Leeway = d }
}

// WithTokenUse restricts the accepted token_use values, e.g. to "access".
func WithTokenUse(uses ...string) AccessTokenAuthOption {
	return func(c *accessTokenConfig) { c.sec.TokenUses = append([]string(nil), uses...) }
}

// WithKeychainOptions forwards options (cache, HTTP client, TTL) to the
// keychain that serves the issuer's public keys.
func WithKeychainOptions(opts ...keychain.Option) AccessTokenAuthOption {
	return func(c *accessTokenConfig) { c.keychainOpts = append(c.keychainOpts, opts...) }
}

// WithLogger sets the logger used by the verification pipeline.
func WithLogger(log *slog.Logger) AccessTokenAuthOption {
	return func(c *accessTokenConfig) { c.log = log }
}

// NewFromDiscovery returns an Authenticator that verifies identity provider
// JWTs using the keyset advertised by OpenID Connect discovery.
//
// Required:
//   - issuer:   user pool issuer URL
//   - audience: expected aud claim, typically the app client id
func NewFromDiscovery(ctx context.Context, issuer string, audience string, opts ...AccessTokenAuthOption) (SecurityProvider, error) {
	cfg := &accessTokenConfig{sec: SecurityConfig{Issuer: issuer, Audience: audience}, log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sec.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.sec.Audience == "" {
		return nil, errors.New("audience is required")
	}
	cfg.sec.Normalize()
	if err := cfg.sec.Validate(); err != nil {
		return nil, err
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}

	kopts := append([]keychain.Option{keychain.WithLogger(cfg.log)}, cfg.keychainOpts...)
	kc, err := keychain.Discover(ctx, cfg.sec.Issuer, kopts...)
	if err != nil {
		return nil, err
	}
	cfg.sec.JWKSURL = kc.URL()
	return newProvider(cfg.sec, kc, cfg.log)
}

// NewFromVerifier adapts any Verifier into an Authenticator.
func NewFromVerifier(v Verifier) Authenticator {
	return &adapter{v: v}
}

func newProvider(sec SecurityConfig, keys token.KeysetSource, log *slog.Logger) (SecurityProvider, error) {
	topts := []token.Option{
		token.WithAlgorithm(sec.algorithm()),
		token.WithLeeway(sec.Leeway),
		token.WithLogger(log),
	}
	if sec.Issuer != "" {
		topts = append(topts, token.WithIssuer(sec.Issuer))
	}
	if len(sec.TokenUses) > 0 {
		topts = append(topts, token.WithTokenUse(sec.TokenUses...))
	}
	svc, err := token.NewService(sec.Audience, keys, topts...)
	if err != nil {
		return nil, err
	}
	return &adapter{v: svc, sec: sec}, nil
}

// adapter wraps a token verifier to satisfy the public interface.
type adapter struct {
	v   Verifier
	sec SecurityConfig
}

func (ad *adapter) CheckAuthentication(ctx context.Context, raw string) (UserInfo, error) {
	if raw == "" {
		return nil, errors.Join(ErrUnauthorized, errors.New("empty token"))
	}
	tok, err := ad.v.VerifyToken(ctx, raw)
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}
	sub, _ := tok.Subject()
	return tokenUserInfo{tok: tok, sub: sub}, nil
}

func (ad *adapter) SecurityConfig() SecurityConfig { return ad.sec.Copy() }

type tokenUserInfo struct {
	tok *token.Token
	sub string
}

func (u tokenUserInfo) UserID() string       { return u.sub }
func (u tokenUserInfo) Claims(ref any) error { return u.tok.UnmarshalClaims(ref) }

// TokenFromUserInfo returns the verified token behind ui when ui was produced
// by an authenticator from this package.
func TokenFromUserInfo(ui UserInfo) (*token.Token, bool) {
	tu, ok := ui.(tokenUserInfo)
	if !ok {
		return nil, false
	}
	return tu.tok, true
}
