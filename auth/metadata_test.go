package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ggoodman/incognito-go/auth"
	"github.com/ggoodman/incognito-go/auth/authtest"
	"github.com/ggoodman/incognito-go/internal/wellknown"
)

func TestResourceMetadataURL(t *testing.T) {
	cases := map[string]string{
		"https://api.example":       "https://api.example/.well-known/oauth-protected-resource",
		"https://api.example/":      "https://api.example/.well-known/oauth-protected-resource",
		"https://api.example/v1/":   "https://api.example/.well-known/oauth-protected-resource/v1",
		"http://localhost:8080/a/b": "http://localhost:8080/.well-known/oauth-protected-resource/a/b",
		"not a url":                 "",
	}
	for in, want := range cases {
		if got := auth.ResourceMetadataURL(in); got != want {
			t.Fatalf("ResourceMetadataURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResourceMetadataHandler(t *testing.T) {
	sec := auth.SecurityConfig{
		Issuer:   "https://cognito-idp.eu-west-1.amazonaws.com/pool",
		Audience: "client",
		JWKSURL:  "https://cognito-idp.eu-west-1.amazonaws.com/pool/.well-known/jwks.json",
	}
	doc := auth.ResourceMetadata(sec, "https://api.example", "openid")
	h := auth.ResourceMetadataHandler(doc)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, wellknown.ProtectedResourcePath, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
	var got wellknown.ProtectedResourceMetadata
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := wellknown.ProtectedResourceMetadata{
		Resource:                          "https://api.example",
		AuthorizationServers:              []string{sec.Issuer},
		JwksURI:                           sec.JWKSURL,
		ScopesSupported:                   []string{"openid"},
		BearerMethodsSupported:            []string{"header"},
		ResourceSigningAlgValuesSupported: []string{"RS256"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, wellknown.ProtectedResourcePath, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, wellknown.ProtectedResourcePath, nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rr.Code)
	}
}

func TestMiddlewareAdvertisesResourceMetadata(t *testing.T) {
	rec := &recorder{}
	metaURL := auth.ResourceMetadataURL("https://api.example")
	h := auth.Middleware(authtest.NewNoAuth(""),
		auth.WithRealm("api"),
		auth.WithResourceMetadataURL(metaURL),
	)(rec.handler())

	rr := serve(t, h, "")
	want := `Bearer realm="api", resource_metadata="` + metaURL + `"`
	if got := rr.Header().Get("WWW-Authenticate"); got != want {
		t.Fatalf("WWW-Authenticate = %q, want %q", got, want)
	}

	rr = serve(t, h, "Basic Zm9vOmJhcg==")
	if got := rr.Header().Get("WWW-Authenticate"); !strings.Contains(got, `resource_metadata="`+metaURL+`", error="invalid_request"`) {
		t.Fatalf("WWW-Authenticate = %q", got)
	}
}
