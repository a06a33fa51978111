package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-jose/go-jose/v4"
)

// KeysetSource supplies the public keys tokens are verified against.
// *keychain.Keychain implements it.
type KeysetSource interface {
	PublicKeyset(ctx context.Context) (*jose.JSONWebKeySet, error)
}

// StaticKeyset is a KeysetSource over a fixed set of keys.
type StaticKeyset struct {
	Set jose.JSONWebKeySet
}

// NewStaticKeysetFromJSON parses a JWK Set document into a StaticKeyset.
func NewStaticKeysetFromJSON(raw []byte) (*StaticKeyset, error) {
	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("token: parse keyset: %w", err)
	}
	return &StaticKeyset{Set: set}, nil
}

// PublicKeyset returns the fixed set.
func (s *StaticKeyset) PublicKeyset(context.Context) (*jose.JSONWebKeySet, error) {
	return &s.Set, nil
}

// SignatureValidator verifies a token's signature against the keyset of a
// KeysetSource using the configured algorithm.
type SignatureValidator struct {
	keys KeysetSource
	cfg  *config
}

// NewSignatureValidator returns a validator drawing keys from keys.
func NewSignatureValidator(keys KeysetSource, opts ...Option) *SignatureValidator {
	return &SignatureValidator{keys: keys, cfg: newConfig(opts)}
}

// Validate reports whether tok carries a valid signature made by a key in the
// current keyset. Every cryptographic or matching failure (unknown kid, key
// for another algorithm, bad signature, empty keyset) yields false with a nil
// error. An error is returned only when the keyset cannot be obtained, and it
// is a *KeysetUnavailableError.
func (v *SignatureValidator) Validate(ctx context.Context, tok *Token) (bool, error) {
	set, err := v.keys.PublicKeyset(ctx)
	if err != nil {
		kerr := &KeysetUnavailableError{Err: err}
		if u, ok := v.keys.(interface{ URL() string }); ok {
			kerr.URL = u.URL()
		}
		return false, kerr
	}
	if set == nil || len(set.Keys) == 0 {
		v.cfg.log.DebugContext(ctx, "token.signature.no_keys")
		return false, nil
	}

	jws, err := jose.ParseSignedCompact(tok.Raw(), []jose.SignatureAlgorithm{v.cfg.alg})
	if err != nil {
		v.cfg.log.DebugContext(ctx, "token.signature.parse_fail", slog.String("err", err.Error()))
		return false, nil
	}
	if len(jws.Signatures) != 1 {
		return false, nil
	}

	kid := jws.Signatures[0].Protected.KeyID
	for _, key := range set.Key(kid) {
		if key.Algorithm != "" && key.Algorithm != string(v.cfg.alg) {
			continue
		}
		if key.Use != "" && key.Use != "sig" {
			continue
		}
		pub := key.Public()
		if !pub.Valid() {
			continue
		}
		if _, err := jws.Verify(pub); err == nil {
			return true, nil
		}
	}

	v.cfg.log.DebugContext(ctx, "token.signature.no_match", slog.String("kid", kid))
	return false, nil
}
