package token

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Signature is one signature entry of a JWS together with its headers.
// Compact tokens carry exactly one and never have unprotected headers.
type Signature struct {
	Protected   map[string]any
	Unprotected map[string]any
	Value       []byte
}

// Token is a parsed, immutable JWS. A Token returned by Parse is structurally
// sound but not yet validated; one returned by Service.VerifyToken has passed
// every check.
type Token struct {
	raw        string
	payload    []byte
	signatures []Signature
}

// Raw returns the compact serialization the token was parsed from.
func (t *Token) Raw() string { return t.raw }

// Payload returns a copy of the decoded payload bytes.
func (t *Token) Payload() []byte { return bytes.Clone(t.payload) }

// Signatures returns copies of the token's signature entries.
func (t *Token) Signatures() []Signature {
	out := make([]Signature, len(t.signatures))
	for i, s := range t.signatures {
		out[i] = Signature{
			Protected:   maps.Clone(s.Protected),
			Unprotected: maps.Clone(s.Unprotected),
			Value:       slices.Clone(s.Value),
		}
	}
	return out
}

// ProtectedHeader returns the protected header value name of the first
// signature and whether it was present.
func (t *Token) ProtectedHeader(name string) (any, bool) {
	v, ok := t.signatures[0].Protected[name]
	return v, ok
}

// KeyID returns the kid protected header if it is present and a string.
func (t *Token) KeyID() (string, bool) {
	v, ok := t.ProtectedHeader("kid")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Claims decodes the payload as a JSON object. Numbers are kept as
// json.Number.
func (t *Token) Claims() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(t.payload))
	dec.UseNumber()
	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, &MalformedTokenError{Reason: "payload is not a JSON object", Err: err}
	}
	if claims == nil {
		return nil, &MalformedTokenError{Reason: "payload is not a JSON object"}
	}
	if dec.More() {
		return nil, &MalformedTokenError{Reason: "trailing data after payload object"}
	}
	return claims, nil
}

// UnmarshalClaims decodes the payload into dest.
func (t *Token) UnmarshalClaims(dest any) error {
	if err := json.Unmarshal(t.payload, dest); err != nil {
		return &MalformedTokenError{Reason: "payload does not match destination", Err: err}
	}
	return nil
}

// Claim returns a single payload claim and whether it was present.
func (t *Token) Claim(name string) (any, bool, error) {
	claims, err := t.Claims()
	if err != nil {
		return nil, false, err
	}
	v, ok := claims[name]
	return v, ok, nil
}

// Subject returns the sub claim when it is present and a string.
func (t *Token) Subject() (string, bool) {
	return t.stringClaim("sub")
}

// TokenUse returns the token_use claim when it is present and a string.
func (t *Token) TokenUse() (string, bool) {
	return t.stringClaim("token_use")
}

func (t *Token) stringClaim(name string) (string, bool) {
	v, ok, err := t.Claim(name)
	if err != nil || !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
