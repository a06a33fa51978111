package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ggoodman/incognito-go/internal/logctx"
	"github.com/ggoodman/incognito-go/token"
)

const (
	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-Id"
)

type middlewareConfig struct {
	realm            string
	resourceMetadata string
	log              *slog.Logger
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithRealm sets the realm advertised in WWW-Authenticate challenges. If
// empty (default) the realm attribute is omitted.
func WithRealm(realm string) MiddlewareOption {
	return func(c *middlewareConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithResourceMetadataURL advertises the protected resource metadata document
// in every challenge (resource_metadata parameter). See ResourceMetadataURL.
func WithResourceMetadataURL(url string) MiddlewareOption {
	return func(c *middlewareConfig) { c.resourceMetadata = strings.TrimSpace(url) }
}

// WithMiddlewareLogger sets the logger used for authentication events.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Middleware authenticates every request with authn. Requests without a
// valid bearer token get a 401 challenge and never reach next. Authenticated
// requests carry their UserInfo in the context (see UserInfoFromContext).
func Middleware(authn Authenticator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
				RequestID:  reqID,
				Method:     r.Method,
				Path:       r.URL.Path,
				RemoteAddr: r.RemoteAddr,
				UserAgent:  r.UserAgent(),
			})

			raw, challenge := cfg.bearerToken(r)
			if challenge != nil {
				cfg.log.InfoContext(ctx, "auth.check.invalid")
				challenge.Write(w)
				return
			}

			ui, err := authn.CheckAuthentication(ctx, raw)
			if err != nil {
				level := slog.LevelInfo
				if errors.Is(err, token.ErrKeysetUnavailable) {
					level = slog.LevelError
				}
				cfg.log.Log(ctx, level, "auth.check.fail", slog.String("err", flatten(err)))
				cfg.challenge("invalid_token", describe(err)).Write(w)
				return
			}

			td := &logctx.TokenData{Subject: ui.UserID()}
			if tok, ok := TokenFromUserInfo(ui); ok {
				td.TokenUse, _ = tok.TokenUse()
			}
			ctx = logctx.WithTokenData(ctx, td)
			cfg.log.DebugContext(ctx, "auth.check.ok")

			next.ServeHTTP(w, r.WithContext(NewContext(ctx, ui)))
		})
	}
}

// bearerToken extracts the token from the Authorization header. The scheme
// is matched case-insensitively and surrounding whitespace is ignored.
func (c *middlewareConfig) bearerToken(r *http.Request) (string, *AuthenticationChallenge) {
	h := strings.TrimSpace(r.Header.Get(authorizationHeader))
	if h == "" {
		return "", c.challenge("", "")
	}
	fields := strings.Fields(h)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", c.challenge("invalid_request", "malformed bearer authorization header")
	}
	return fields[1], nil
}

// challenge builds a 401 challenge; an empty code yields one without error
// parameters.
func (c *middlewareConfig) challenge(code, description string) *AuthenticationChallenge {
	if code == "" {
		return newChallenge(c.realm, c.resourceMetadata, nil)
	}
	return newChallenge(c.realm, c.resourceMetadata, map[string]string{"error": code, "error_description": description})
}

// describe picks the error_description for an invalid token challenge.
func describe(err error) string {
	switch {
	case errors.Is(err, token.ErrKeysetUnavailable):
		return "token could not be verified"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, token.ErrMalformedToken):
		return "malformed token"
	}
	var ce *token.InvalidClaimError
	if errors.As(err, &ce) {
		return ce.Claim + ": " + ce.Err.Error()
	}
	var he *token.InvalidHeaderError
	if errors.As(err, &he) {
		return he.Header + ": " + he.Err.Error()
	}
	return "invalid token"
}

func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}
