package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testAudience = "client-123"

var testNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return testNow }

func genRSA(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	return pk
}

func keysetFor(t *testing.T, pk *rsa.PrivateKey, kid string) *StaticKeyset {
	t.Helper()
	jwk := jose.JSONWebKey{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
	raw, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	ks, err := NewStaticKeysetFromJSON(raw)
	if err != nil {
		t.Fatalf("parse jwks: %v", err)
	}
	return ks
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":       "user-1",
		"aud":       testAudience,
		"iat":       testNow.Add(-time.Minute).Unix(),
		"exp":       testNow.Add(time.Hour).Unix(),
		"token_use": "access",
	}
}

func signRS256(t *testing.T, pk *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// rawToken assembles a compact token from arbitrary header and payload JSON.
func rawToken(header, payload string, sig []byte) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + "." + enc.EncodeToString(sig)
}

type countingKeyset struct {
	inner KeysetSource
	calls atomic.Int32
}

func (c *countingKeyset) PublicKeyset(ctx context.Context) (*jose.JSONWebKeySet, error) {
	c.calls.Add(1)
	return c.inner.PublicKeyset(ctx)
}

type failingKeyset struct{ err error }

func (f failingKeyset) PublicKeyset(context.Context) (*jose.JSONWebKeySet, error) {
	return nil, f.err
}
