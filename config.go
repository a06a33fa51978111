package incognito

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/joeshaw/envdecode"

	"github.com/ggoodman/incognito-go/idp"
	"github.com/ggoodman/incognito-go/keychain"
	"github.com/ggoodman/incognito-go/token"
)

// Cache backends accepted in Config.Cache.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheFile   = "file"
)

// Config describes a user pool and how its keyset is cached. Every field can
// be loaded from the environment with LoadConfig.
type Config struct {
	// Region of the user pool, e.g. "eu-west-1". ENV: COGNITO_REGION
	Region string `env:"COGNITO_REGION"`
	// UserPoolID like "eu-west-1_AbCdEf". ENV: COGNITO_USER_POOL_ID
	UserPoolID string `env:"COGNITO_USER_POOL_ID"`
	// ClientID of the app client; tokens must be addressed to it.
	// ENV: COGNITO_CLIENT_ID
	ClientID string `env:"COGNITO_CLIENT_ID"`
	// ClientSecret of the app client, used only by the idp services.
	// ENV: COGNITO_CLIENT_SECRET
	ClientSecret string `env:"COGNITO_CLIENT_SECRET"`

	// JWKSURL overrides the keyset location derived from Region and
	// UserPoolID. ENV: COGNITO_JWKS_URL
	JWKSURL string `env:"COGNITO_JWKS_URL"`
	// Issuer overrides the issuer derived from Region and UserPoolID. When
	// JWKSURL is empty and no pool is configured, the keyset location is
	// discovered from the issuer. ENV: COGNITO_ISSUER
	Issuer string `env:"COGNITO_ISSUER"`

	// Algorithm accepted in the alg header. ENV: COGNITO_JWT_ALG
	Algorithm string `env:"COGNITO_JWT_ALG,default=RS256"`
	// Leeway tolerated on iat, nbf and exp. ENV: COGNITO_JWT_LEEWAY
	Leeway time.Duration `env:"COGNITO_JWT_LEEWAY,default=0s"`
	// TokenUse restricts token_use to "access" or "id". Empty accepts both.
	// ENV: COGNITO_TOKEN_USE
	TokenUse string `env:"COGNITO_TOKEN_USE"`

	// Cache selects the keyset cache backend: memory, redis or file.
	// ENV: COGNITO_CACHE
	Cache string `env:"COGNITO_CACHE,default=memory"`
	// CacheKey the raw keyset is stored under. ENV: COGNITO_KEYSET_CACHE_KEY
	CacheKey string `env:"COGNITO_KEYSET_CACHE_KEY,default=cognito.jwt.public-keys"`
	// CacheTTL bounds how long a keyset stays cached; zero keeps it until
	// evicted. ENV: COGNITO_KEYSET_CACHE_TTL
	CacheTTL time.Duration `env:"COGNITO_KEYSET_CACHE_TTL,default=0s"`
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// CacheDir is the directory of the file cache. ENV: COGNITO_CACHE_DIR
	CacheDir string `env:"COGNITO_CACHE_DIR"`
}

// LoadConfig populates a Config from the environment. Unset variables take
// the defaults in the struct tags.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("incognito: load config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize trims fields, applies defaults and derives the issuer and keyset
// URLs from Region and UserPoolID when they are not set explicitly.
func (c *Config) Normalize() {
	c.Region = strings.TrimSpace(c.Region)
	c.UserPoolID = strings.TrimSpace(c.UserPoolID)
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.Issuer = strings.TrimSpace(c.Issuer)
	c.TokenUse = strings.TrimSpace(c.TokenUse)
	c.Cache = strings.ToLower(strings.TrimSpace(c.Cache))

	if c.Algorithm == "" {
		c.Algorithm = string(token.DefaultAlgorithm)
	}
	if c.Cache == "" {
		c.Cache = CacheMemory
	}
	if c.CacheKey == "" {
		c.CacheKey = keychain.DefaultCacheKey
	}
	if c.Region != "" && c.UserPoolID != "" {
		if c.Issuer == "" {
			c.Issuer = keychain.CognitoIssuer(c.Region, c.UserPoolID)
		}
		if c.JWKSURL == "" {
			c.JWKSURL = keychain.CognitoJWKSURL(c.Region, c.UserPoolID)
		}
	}
}

// Validate reports every problem with c. Call Normalize first.
func (c Config) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.JWKSURL == "" && c.Issuer == "" {
		errs = append(errs, errors.New("one of region and user pool id, jwks url or issuer is required"))
	}
	if strings.EqualFold(c.Algorithm, "none") {
		errs = append(errs, errors.New("algorithm none is not allowed"))
	}
	if c.Leeway < 0 {
		errs = append(errs, errors.New("leeway must not be negative"))
	}
	if c.TokenUse != "" && c.TokenUse != token.TokenUseAccess && c.TokenUse != token.TokenUseID {
		errs = append(errs, fmt.Errorf("token use %q must be %q or %q", c.TokenUse, token.TokenUseAccess, token.TokenUseID))
	}
	if !slices.Contains([]string{CacheMemory, CacheRedis, CacheFile}, c.Cache) {
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache))
	}
	if c.Cache == CacheRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("redis address is required for the redis cache"))
	}
	if c.Cache == CacheFile && c.CacheDir == "" {
		errs = append(errs, errors.New("cache directory is required for the file cache"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("incognito: invalid config: %w", err)
	}
	return nil
}

// Credentials returns the app client credentials for the idp services.
func (c Config) Credentials() idp.Credentials {
	return idp.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		UserPoolID:   c.UserPoolID,
	}
}

func (c Config) tokenOptions() []token.Option {
	opts := []token.Option{
		token.WithAlgorithm(jose.SignatureAlgorithm(c.Algorithm)),
		token.WithLeeway(c.Leeway),
	}
	if c.Issuer != "" {
		opts = append(opts, token.WithIssuer(c.Issuer))
	}
	if c.TokenUse != "" {
		opts = append(opts, token.WithTokenUse(c.TokenUse))
	}
	return opts
}
