package token

import (
	"errors"
	"fmt"
)

// Category sentinels. Every error returned by the pipeline matches exactly one
// of these with errors.Is.
var (
	ErrMalformedToken    = errors.New("token: malformed token")
	ErrInvalidHeader     = errors.New("token: invalid header")
	ErrInvalidClaim      = errors.New("token: invalid claim")
	ErrSignatureInvalid  = errors.New("token: signature invalid")
	ErrKeysetUnavailable = errors.New("token: keyset unavailable")
)

// Cause sentinels carried by InvalidHeaderError and InvalidClaimError.
var (
	ErrMissingHeader       = errors.New("required header is missing")
	ErrAlgorithmNotAllowed = errors.New("algorithm not allowed")
	ErrInvalidKeyID        = errors.New("key id must be a non-empty string")

	ErrMissingClaim     = errors.New("required claim is missing")
	ErrInvalidClaimType = errors.New("claim has an unexpected type")
	ErrIssuedInFuture   = errors.New("token issued in the future")
	ErrNotYetValid      = errors.New("token not yet valid")
	ErrExpired          = errors.New("token expired")
	ErrBadAudience      = errors.New("bad audience")
	ErrBadIssuer        = errors.New("bad issuer")
	ErrInvalidTokenUse  = errors.New(`token_use must be "access" or "id"`)
)

// MalformedTokenError reports a token string that does not have the shape of
// a compact JWS, or whose payload is not a JSON object.
type MalformedTokenError struct {
	Reason string
	Err    error
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedToken, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedToken, e.Reason)
}

func (e *MalformedTokenError) Unwrap() error        { return e.Err }
func (e *MalformedTokenError) Is(target error) bool { return target == ErrMalformedToken }

// InvalidHeaderError reports a missing protected header or one that failed its
// check.
type InvalidHeaderError struct {
	Header string
	Value  any
	Err    error
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrInvalidHeader, e.Header, e.Err)
}

func (e *InvalidHeaderError) Unwrap() error        { return e.Err }
func (e *InvalidHeaderError) Is(target error) bool { return target == ErrInvalidHeader }

// InvalidClaimError reports a missing payload claim or one that failed its
// check. Value holds the offending claim value (nil when missing).
type InvalidClaimError struct {
	Claim string
	Value any
	Err   error
}

func (e *InvalidClaimError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s %q: %v", ErrInvalidClaim, e.Claim, e.Err)
	}
	return fmt.Sprintf("%s %q (%v): %v", ErrInvalidClaim, e.Claim, e.Value, e.Err)
}

func (e *InvalidClaimError) Unwrap() error        { return e.Err }
func (e *InvalidClaimError) Is(target error) bool { return target == ErrInvalidClaim }

// KeysetUnavailableError reports that the public keyset could be neither read
// from cache nor fetched. URL is set when the source reports where it reads
// keys from.
type KeysetUnavailableError struct {
	URL string
	Err error
}

func (e *KeysetUnavailableError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: %s: %v", ErrKeysetUnavailable, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrKeysetUnavailable, e.Err)
}

func (e *KeysetUnavailableError) Unwrap() error        { return e.Err }
func (e *KeysetUnavailableError) Is(target error) bool { return target == ErrKeysetUnavailable }

func missingHeader(name string) error {
	return &InvalidHeaderError{Header: name, Err: ErrMissingHeader}
}

func missingClaim(name string) error {
	return &InvalidClaimError{Claim: name, Err: ErrMissingClaim}
}
