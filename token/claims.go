package token

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-jose/go-jose/v4"
)

type headerCheck struct {
	name  string
	check func(v any) error
}

type claimCheck struct {
	name  string
	check func(v any, now time.Time) error
}

// ClaimsValidator checks the protected header and the payload claims of a
// Token. It never looks at the signature.
//
// Required headers are alg and kid. Required claims are token_use plus any
// added through WithRequiredClaims. The iat, nbf, exp, aud, iss and token_use
// checks run only when their claim is present (iss only when an issuer is
// configured), so a token without exp is not rejected for lacking one.
type ClaimsValidator struct {
	audience        string
	cfg             *config
	requiredHeaders []string
	headerChecks    []headerCheck
	claimChecks     []claimCheck
}

// NewClaimsValidator returns a validator that accepts tokens addressed to
// audience.
func NewClaimsValidator(audience string, opts ...Option) *ClaimsValidator {
	return newClaimsValidator(audience, newConfig(opts))
}

func newClaimsValidator(audience string, cfg *config) *ClaimsValidator {
	v := &ClaimsValidator{
		audience:        audience,
		cfg:             cfg,
		requiredHeaders: []string{"alg", "kid"},
	}

	v.headerChecks = []headerCheck{
		{name: "alg", check: v.checkAlgorithm},
		{name: "kid", check: checkKeyID},
	}

	v.claimChecks = []claimCheck{
		{name: "iat", check: v.checkIssuedAt},
		{name: "nbf", check: v.checkNotBefore},
		{name: "exp", check: v.checkExpiry},
		{name: "aud", check: v.checkAudience},
	}
	if cfg.issuer != "" {
		v.claimChecks = append(v.claimChecks, claimCheck{name: "iss", check: v.checkIssuer})
	}
	v.claimChecks = append(v.claimChecks, claimCheck{name: "token_use", check: v.checkTokenUse})

	return v
}

// Audience returns the audience the validator was built for.
func (v *ClaimsValidator) Audience() string { return v.audience }

// Validate returns nil when tok passes every header and claim check, and
// otherwise the first *InvalidHeaderError, *InvalidClaimError or
// *MalformedTokenError encountered. Headers are checked before claims.
func (v *ClaimsValidator) Validate(tok *Token) error {
	for _, name := range v.requiredHeaders {
		if _, ok := tok.ProtectedHeader(name); !ok {
			return missingHeader(name)
		}
	}
	for _, hc := range v.headerChecks {
		val, ok := tok.ProtectedHeader(hc.name)
		if !ok {
			continue
		}
		if err := hc.check(val); err != nil {
			return &InvalidHeaderError{Header: hc.name, Value: val, Err: err}
		}
	}

	claims, err := tok.Claims()
	if err != nil {
		return err
	}

	for _, name := range v.cfg.requiredClaims {
		if _, ok := claims[name]; !ok {
			return missingClaim(name)
		}
	}

	now := v.cfg.now()
	for _, cc := range v.claimChecks {
		val, ok := claims[cc.name]
		if !ok {
			continue
		}
		if err := cc.check(val, now); err != nil {
			return &InvalidClaimError{Claim: cc.name, Value: val, Err: err}
		}
	}

	return nil
}

func (v *ClaimsValidator) checkAlgorithm(val any) error {
	alg, ok := val.(string)
	if !ok || jose.SignatureAlgorithm(alg) != v.cfg.alg {
		return fmt.Errorf("%w: want %s", ErrAlgorithmNotAllowed, v.cfg.alg)
	}
	return nil
}

func checkKeyID(val any) error {
	kid, ok := val.(string)
	if !ok || kid == "" {
		return ErrInvalidKeyID
	}
	return nil
}

func (v *ClaimsValidator) checkIssuedAt(val any, now time.Time) error {
	iat, err := numericDate(val)
	if err != nil {
		return err
	}
	if iat.After(now.Add(v.cfg.leeway)) {
		return ErrIssuedInFuture
	}
	return nil
}

func (v *ClaimsValidator) checkNotBefore(val any, now time.Time) error {
	nbf, err := numericDate(val)
	if err != nil {
		return err
	}
	if nbf.After(now.Add(v.cfg.leeway)) {
		return ErrNotYetValid
	}
	return nil
}

func (v *ClaimsValidator) checkExpiry(val any, now time.Time) error {
	exp, err := numericDate(val)
	if err != nil {
		return err
	}
	if now.After(exp.Add(v.cfg.leeway)) {
		return ErrExpired
	}
	return nil
}

// checkAudience accepts a string equal to the configured audience or an
// array with an element equal to it.
func (v *ClaimsValidator) checkAudience(val any, _ time.Time) error {
	switch aud := val.(type) {
	case string:
		if aud == v.audience {
			return nil
		}
	case []any:
		for _, el := range aud {
			if s, ok := el.(string); ok && s == v.audience {
				return nil
			}
		}
	default:
		return ErrInvalidClaimType
	}
	return ErrBadAudience
}

func (v *ClaimsValidator) checkIssuer(val any, _ time.Time) error {
	iss, ok := val.(string)
	if !ok {
		return ErrInvalidClaimType
	}
	if iss != v.cfg.issuer {
		return ErrBadIssuer
	}
	return nil
}

// checkTokenUse is case sensitive: "Access" is rejected.
func (v *ClaimsValidator) checkTokenUse(val any, _ time.Time) error {
	if val == nil {
		return fmt.Errorf("%w: claim has no value", ErrInvalidTokenUse)
	}
	use, ok := val.(string)
	if !ok {
		return ErrInvalidClaimType
	}
	if use == "" {
		return fmt.Errorf("%w: claim has no value", ErrInvalidTokenUse)
	}
	if !slices.Contains(v.cfg.tokenUses, use) {
		if len(v.cfg.tokenUses) == 1 {
			return fmt.Errorf("%w: only %q is accepted", ErrInvalidTokenUse, v.cfg.tokenUses[0])
		}
		return ErrInvalidTokenUse
	}
	return nil
}

// NumericDate bounds: 0001-01-01 and 9999-12-31T23:59:59Z. Values outside
// would overflow the conversion to time.Time.
const (
	minNumericDate = -62135596800
	maxNumericDate = 253402300799
)

// numericDate converts a JSON NumericDate (seconds since the epoch, possibly
// fractional) into a time.Time. Out of range values are rejected.
func numericDate(val any) (time.Time, error) {
	var secs float64
	switch n := val.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, ErrInvalidClaimType
		}
		secs = f
	case float64:
		secs = n
	default:
		return time.Time{}, ErrInvalidClaimType
	}
	if math.IsNaN(secs) || secs < minNumericDate || secs > maxNumericDate {
		return time.Time{}, ErrInvalidClaimType
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}
