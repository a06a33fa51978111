package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

func mustParse(t *testing.T, raw string) *Token {
	t.Helper()
	tok, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return tok
}

func TestSignatureValidatorAcceptsMatchingKey(t *testing.T) {
	pk := genRSA(t)
	v := NewSignatureValidator(keysetFor(t, pk, "1"))

	ok, err := v.Validate(context.Background(), mustParse(t, signRS256(t, pk, "1", validClaims())))
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if !ok {
		t.Fatal("expected valid signature")
	}
}

func TestSignatureValidatorRejections(t *testing.T) {
	pk := genRSA(t)
	other := genRSA(t)
	ctx := context.Background()

	tampered := func() string {
		raw := signRS256(t, pk, "1", validClaims())
		return raw[:len(raw)-4] + "AAAA"
	}

	hsToken := func() string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
		tok.Header["kid"] = "1"
		s, err := tok.SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	cases := []struct {
		name string
		keys KeysetSource
		raw  string
	}{
		{"unknown kid", keysetFor(t, pk, "1"), signRS256(t, pk, "2", validClaims())},
		{"wrong key", keysetFor(t, pk, "1"), signRS256(t, other, "1", validClaims())},
		{"empty keyset", &StaticKeyset{}, signRS256(t, pk, "1", validClaims())},
		{"hmac token", keysetFor(t, pk, "1"), hsToken()},
		{"tampered signature", keysetFor(t, pk, "1"), tampered()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			ok, err := NewSignatureValidator(tc.keys).Validate(ctx, tok)
			if err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
			if ok {
				t.Fatal("expected signature to be rejected")
			}
		})
	}
}

func TestSignatureValidatorSkipsKeysForOtherAlgorithms(t *testing.T) {
	pk := genRSA(t)
	set := &StaticKeyset{Set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &pk.PublicKey, KeyID: "1", Algorithm: "RS512", Use: "sig"},
	}}}

	ok, err := NewSignatureValidator(set).Validate(context.Background(), mustParse(t, signRS256(t, pk, "1", validClaims())))
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if ok {
		t.Fatal("expected key published for RS512 to be ignored")
	}
}

func TestSignatureValidatorPicksKeyByKid(t *testing.T) {
	pk := genRSA(t)
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("gen ec key: %v", err)
	}
	other := genRSA(t)
	set := &StaticKeyset{Set: jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &ec.PublicKey, KeyID: "ec", Algorithm: "ES256", Use: "sig"},
		{Key: &other.PublicKey, KeyID: "old", Algorithm: "RS256", Use: "sig"},
		{Key: &pk.PublicKey, KeyID: "current", Algorithm: "RS256", Use: "sig"},
	}}}

	ok, err := NewSignatureValidator(set).Validate(context.Background(), mustParse(t, signRS256(t, pk, "current", validClaims())))
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify with the key named by kid")
	}
}

func TestSignatureValidatorKeysetUnavailable(t *testing.T) {
	pk := genRSA(t)
	cause := errors.New("boom")

	_, err := NewSignatureValidator(failingKeyset{err: cause}).Validate(context.Background(), mustParse(t, signRS256(t, pk, "1", validClaims())))
	if !errors.Is(err, ErrKeysetUnavailable) {
		t.Fatalf("expected ErrKeysetUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying cause to be preserved, got %v", err)
	}
	var ke *KeysetUnavailableError
	if !errors.As(err, &ke) {
		t.Fatalf("expected *KeysetUnavailableError, got %T", err)
	}
}
