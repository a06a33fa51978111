package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ggoodman/incognito-go/internal/wellknown"
)

// ResourceMetadata returns the OAuth 2.0 Protected Resource Metadata document
// for a resource guarded by tokens matching sec.
func ResourceMetadata(sec SecurityConfig, resource string, scopes ...string) wellknown.ProtectedResourceMetadata {
	sec.Normalize()
	doc := wellknown.ProtectedResourceMetadata{
		Resource:                          resource,
		JwksURI:                           sec.JWKSURL,
		ScopesSupported:                   append([]string(nil), scopes...),
		BearerMethodsSupported:            []string{"header"},
		ResourceSigningAlgValuesSupported: []string{string(sec.algorithm())},
	}
	if sec.Issuer != "" {
		doc.AuthorizationServers = []string{sec.Issuer}
	}
	return doc
}

// ResourceMetadataURL returns the metadata location for resource, per the
// well-known URI insertion rule: https://api.example/v1 maps to
// https://api.example/.well-known/oauth-protected-resource/v1.
func ResourceMetadataURL(resource string) string {
	scheme, rest, ok := strings.Cut(resource, "://")
	if !ok {
		return ""
	}
	host, path, _ := strings.Cut(rest, "/")
	path = strings.TrimSuffix(path, "/")
	u := scheme + "://" + host + wellknown.ProtectedResourcePath
	if path != "" {
		u += "/" + path
	}
	return u
}

// ResourceMetadataHandler serves doc as JSON, including CORS preflight, so
// browser clients can discover how to obtain tokens.
func ResourceMetadataHandler(doc wellknown.ProtectedResourceMetadata) http.Handler {
	body, err := json.Marshal(doc)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		switch r.Method {
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet, http.MethodHead:
			if err != nil {
				http.Error(w, fmt.Sprintf("failed to encode protected resource metadata: %v", err), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		default:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}
