// Package auth provides bearer token authentication for HTTP services whose
// users sign in to an identity provider user pool.
//
// The public surface stays small: an Authenticator validates an incoming
// bearer token string and returns a UserInfo (or an error), and Middleware
// extracts the token from requests and turns failures into 401 challenges.
//
// # Access Token Authentication
//
// NewFromDiscovery constructs an Authenticator that resolves the issuer's
// JWK Set through OpenID Connect discovery. SecurityConfig.NewManualJWTAuthenticator
// does the same from an explicit JWKS URL, and NewFromVerifier adapts any
// token verifier. Callers tune validation with functional options (allowed
// algorithm, leeway, accepted token_use values, keyset caching).
//
// Example:
//
//	ctx := context.Background()
//	authn, err := auth.NewFromDiscovery(ctx, "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_abc", clientID,
//	    auth.WithTokenUse("access"),
//	)
//	if err != nil { log.Fatal(err) }
//
//	mux.Handle("/api/", auth.Middleware(authn)(apiHandler))
//
//	// Inside apiHandler:
//	ui, _ := auth.UserInfoFromContext(r.Context())
//	userID := ui.UserID()
//
// # Protected Resource Metadata
//
// ResourceMetadata and ResourceMetadataHandler publish an RFC 9728 document
// naming the issuer and keyset. Pass its location to Middleware with
// WithResourceMetadataURL so challenges point clients at it.
//
// # Errors
//
// ErrUnauthorized signals the token is invalid (malformed, bad header or
// claims, signature, unavailable keyset). The underlying token error is
// joined to it so errors.Is works for both.
package auth
