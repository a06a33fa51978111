package keychain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

const cognitoHostFormat = "https://cognito-idp.%s.amazonaws.com/%s"

// CognitoIssuer returns the issuer URL of a Cognito user pool.
func CognitoIssuer(region, userPoolID string) string {
	return fmt.Sprintf(cognitoHostFormat, region, userPoolID)
}

// CognitoJWKSURL returns the JWK Set URL of a Cognito user pool.
func CognitoJWKSURL(region, userPoolID string) string {
	return CognitoIssuer(region, userPoolID) + "/.well-known/jwks.json"
}

// DiscoverJWKSURL resolves the jwks_uri advertised in the issuer's OpenID
// Provider metadata.
func DiscoverJWKSURL(ctx context.Context, issuer string, client *http.Client) (string, error) {
	if issuer == "" {
		return "", errors.New("keychain: issuer is required")
	}
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("keychain: oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("keychain: invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return "", errors.New("keychain: discovery incomplete: missing jwks_uri")
	}
	return meta.JwksURI, nil
}

// Discover builds a Keychain for the keyset advertised by issuer. When the
// client set with WithHTTPClient is an *http.Client it is used for discovery
// too.
func Discover(ctx context.Context, issuer string, opts ...Option) (*Keychain, error) {
	k, err := newKeychain(opts)
	if err != nil {
		return nil, err
	}
	hc, _ := k.client.(*http.Client)
	url, err := DiscoverJWKSURL(ctx, issuer, hc)
	if err != nil {
		_ = k.Close()
		return nil, err
	}
	k.url = url
	k.log.DebugContext(ctx, "keychain.discover.ok", slog.String("issuer", issuer), slog.String("jwks_uri", url))
	return k, nil
}
