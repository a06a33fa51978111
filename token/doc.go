// Package token verifies JSON Web Tokens issued by an Amazon Cognito user
// pool (or any issuer that signs compact JWS tokens with keys published as a
// JWK Set).
//
// Verification is a three stage pipeline assembled by NewService:
//
//  1. Deserializer parses the compact serialization into a Token.
//  2. ClaimsValidator checks the alg and kid headers and the iat, nbf, exp,
//     aud, iss and token_use claims.
//  3. SignatureValidator verifies the signature against the keys of a
//     KeysetSource, typically a *keychain.Keychain.
//
// Typical use:
//
//	kc := keychain.New(keychain.CognitoJWKSURL(region, poolID))
//	svc, err := token.NewService(clientID, kc, token.WithIssuer(keychain.CognitoIssuer(region, poolID)))
//	if err != nil {
//		return err
//	}
//	tok, err := svc.VerifyToken(ctx, raw)
//	switch {
//	case errors.Is(err, token.ErrInvalidClaim):
//		// expired, wrong audience, ...
//	case errors.Is(err, token.ErrKeysetUnavailable):
//		// the JWKS endpoint could not be reached
//	}
package token
