// Package user holds the validated value types that describe a user pool
// user: usernames, passwords, attributes and account status.
//
// Constructors validate their input and return an error wrapping
// ErrInvalid; a value that exists is valid.
package user
