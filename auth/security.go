package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/ggoodman/incognito-go/keychain"
	"github.com/ggoodman/incognito-go/token"
)

// SecurityConfig describes how bearer tokens are validated: who issued them,
// who they are for and which keys sign them.
//
// A zero value is invalid; populate required fields then call Validate.
type SecurityConfig struct {
	Issuer     string        // optional; enables the iss check
	Audience   string        // required; the app client id
	AllowedAlg string        // default: "RS256" if empty
	JWKSURL    string        // required for manual authenticators; filled by discovery
	Leeway     time.Duration // clock skew tolerance (default 0)
	TokenUses  []string      // accepted token_use values; default access and id
}

// Normalize fills defaults.
func (c *SecurityConfig) Normalize() {
	if c.AllowedAlg == "" {
		c.AllowedAlg = string(token.DefaultAlgorithm)
	}
	if c.Leeway < 0 {
		c.Leeway = 0
	}
}

// Validate returns an error if required invariants are not met.
func (c SecurityConfig) Validate() error {
	if c.Audience == "" {
		return errors.New("security: audience required")
	}
	if c.AllowedAlg == "none" {
		return errors.New("security: alg none is never allowed")
	}
	for _, u := range c.TokenUses {
		if u != token.TokenUseAccess && u != token.TokenUseID {
			return errors.New("security: token use must be access or id")
		}
	}
	return nil
}

// Copy returns a deep copy safe for mutation by the caller.
func (c SecurityConfig) Copy() SecurityConfig {
	dup := c
	dup.TokenUses = append([]string(nil), c.TokenUses...)
	return dup
}

func (c SecurityConfig) algorithm() jose.SignatureAlgorithm {
	if c.AllowedAlg == "" {
		return token.DefaultAlgorithm
	}
	return jose.SignatureAlgorithm(c.AllowedAlg)
}

// NewManualJWTAuthenticator constructs an authenticator from this
// configuration without performing OIDC discovery. It expects c.Audience and
// c.JWKSURL to be set.
func (c SecurityConfig) NewManualJWTAuthenticator(opts ...AccessTokenAuthOption) (SecurityProvider, error) {
	cfg := &accessTokenConfig{sec: c.Copy()}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.sec.Normalize()
	if err := cfg.sec.Validate(); err != nil {
		return nil, err
	}
	if cfg.sec.JWKSURL == "" {
		return nil, errors.New("security: JWKSURL required for manual JWT authenticator")
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}

	kopts := append([]keychain.Option{keychain.WithLogger(cfg.log)}, cfg.keychainOpts...)
	kc, err := keychain.New(cfg.sec.JWKSURL, kopts...)
	if err != nil {
		return nil, err
	}
	return newProvider(cfg.sec, kc, cfg.log)
}

// SecurityDescriptor exposes the security configuration an authenticator enforces.
type SecurityDescriptor interface{ SecurityConfig() SecurityConfig }

// SecurityProvider combines validation + descriptor. Returned by constructors.
type SecurityProvider interface {
	Authenticator
	SecurityDescriptor
}
