// Package incognito wires the token verification pipeline for an Amazon
// Cognito user pool from a single Config: a keyset cache (memory, Redis or
// file backed), a keychain fetching the pool's JWK Set, the verification
// service and an HTTP middleware.
//
// The usual entry point reads the configuration from the environment:
//
//	v, err := incognito.NewFromEnv(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer v.Close()
//
//	http.Handle("/api/", v.Middleware()(api))
//
// Lower level building blocks live in the token, keychain, cache, auth, idp
// and user packages.
package incognito
