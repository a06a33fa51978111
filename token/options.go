package token

import (
	"log/slog"
	"slices"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// DefaultAlgorithm is the only signature algorithm accepted unless
// WithAlgorithm says otherwise.
const DefaultAlgorithm = jose.RS256

// Token use values issued by the identity provider.
const (
	TokenUseAccess = "access"
	TokenUseID     = "id"
)

type config struct {
	alg            jose.SignatureAlgorithm
	issuer         string
	leeway         time.Duration
	now            func() time.Time
	requiredClaims []string
	tokenUses      []string
	log            *slog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		alg:            DefaultAlgorithm,
		now:            time.Now,
		requiredClaims: []string{"token_use"},
		tokenUses:      []string{TokenUseAccess, TokenUseID},
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures the validators and the Service.
type Option func(*config)

// WithAlgorithm replaces the single accepted signature algorithm.
func WithAlgorithm(alg jose.SignatureAlgorithm) Option {
	return func(c *config) {
		if alg != "" {
			c.alg = alg
		}
	}
}

// WithIssuer enables the iss check against the given issuer URL.
func WithIssuer(issuer string) Option {
	return func(c *config) { c.issuer = issuer }
}

// WithLeeway sets the clock skew tolerated by the iat, nbf and exp checks.
func WithLeeway(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// WithClock overrides the time source used by the time-based checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequiredClaims adds claims that must be present in addition to
// token_use.
func WithRequiredClaims(names ...string) Option {
	return func(c *config) {
		for _, n := range names {
			if n == "" || slices.Contains(c.requiredClaims, n) {
				continue
			}
			c.requiredClaims = append(c.requiredClaims, n)
		}
	}
}

// WithTokenUse narrows the accepted token_use values. Values outside
// {"access", "id"} are ignored.
func WithTokenUse(uses ...string) Option {
	return func(c *config) {
		var keep []string
		for _, u := range uses {
			if (u == TokenUseAccess || u == TokenUseID) && !slices.Contains(keep, u) {
				keep = append(keep, u)
			}
		}
		if len(keep) > 0 {
			c.tokenUses = keep
		}
	}
}

// WithLogger sets the logger for verification diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}
