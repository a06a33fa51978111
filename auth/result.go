package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	wwwAuthenticateHeader = "WWW-Authenticate"
	jsonAPIMediaType      = "application/vnd.api+json"

	unauthorizedDetail = "The request has not been applied because it lacks valid authentication credentials for the target resource"
)

// AuthenticationChallenge describes an HTTP challenge (status + WWW-Authenticate header).
type AuthenticationChallenge struct {
	Status          int
	WWWAuthenticate string
}

// NewAuthenticationRequired builds a challenge for a request that carried no
// credentials. It has no error code.
func NewAuthenticationRequired(realm string) *AuthenticationChallenge {
	return newChallenge(realm, "", nil)
}

// NewInvalidAuthorizationHeader builds a challenge for a malformed Authorization header.
func NewInvalidAuthorizationHeader(realm string, description string) *AuthenticationChallenge {
	return newChallenge(realm, "", map[string]string{"error": "invalid_request", "error_description": description})
}

// NewInvalidTokenResult builds a challenge indicating the token is invalid.
func NewInvalidTokenResult(realm string, description string) *AuthenticationChallenge {
	return newChallenge(realm, "", map[string]string{"error": "invalid_token", "error_description": description})
}

func newChallenge(realm, resourceMetadata string, params map[string]string) *AuthenticationChallenge {
	return &AuthenticationChallenge{
		Status:          http.StatusUnauthorized,
		WWWAuthenticate: buildBearerChallenge(realm, resourceMetadata, params),
	}
}

// ErrorObject is a JSON:API error object.
type ErrorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ErrorDocument is a JSON:API top-level document carrying errors.
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

// Write sends the challenge header, the status and a JSON:API error body.
func (c *AuthenticationChallenge) Write(w http.ResponseWriter) {
	w.Header().Add(wwwAuthenticateHeader, c.WWWAuthenticate)
	w.Header().Set("Content-Type", jsonAPIMediaType)
	w.WriteHeader(c.Status)
	_ = json.NewEncoder(w).Encode(ErrorDocument{Errors: []ErrorObject{{
		Status: strconv.Itoa(c.Status),
		Title:  http.StatusText(c.Status),
		Detail: unauthorizedDetail,
	}}})
}

// buildBearerChallenge builds a standardized Bearer challenge header value.
// Format:
//
//	Bearer realm="<realm>", resource_metadata="<url>", error="...", error_description="..."
//
// Realm and resource_metadata are omitted if empty. Known params are emitted
// in a fixed order.
func buildBearerChallenge(realm string, resourceMetadata string, params map[string]string) string {
	pieces := make([]string, 0, 2+len(params))
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", " ", "\n", " ")
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc.Replace(realm)))
	}
	if resourceMetadata != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc.Replace(resourceMetadata)))
	}
	for _, k := range []string{"error", "error_description", "scope"} {
		if v, ok := params[k]; ok {
			pieces = append(pieces, fmt.Sprintf(`%s="%s"`, k, esc.Replace(v)))
		}
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}
