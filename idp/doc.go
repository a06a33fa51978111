// Package idp talks to an identity provider user pool: password login, token
// refresh, sign-up, password change and user lookup.
//
// The package does not sign or send provider requests itself. Callers supply
// a Client, usually a thin wrapper over their AWS SDK client, and the
// services here build the requests, compute secret hashes, translate
// provider error codes into this package's errors and map user records onto
// user.User values.
package idp
