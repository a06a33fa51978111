package idp

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is a failure reported by the provider, identified by its
// error code (e.g. "UserNotFoundException").
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "idp: " + e.Code
	}
	return fmt.Sprintf("idp: %s: %s", e.Code, e.Message)
}

var (
	ErrNotAuthorized     = errors.New("login failed: incorrect username or password")
	ErrUserNotConfirmed  = errors.New("login failed: user not confirmed")
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrChallengeRequired = errors.New("login requires a further challenge")
)

var statusCodes = map[error]int{
	ErrNotAuthorized:    http.StatusUnauthorized,
	ErrUserNotConfirmed: http.StatusUnauthorized,
	ErrUserNotFound:     http.StatusNotFound,
	ErrUsernameExists:   http.StatusConflict,
	ErrInvalidPassword:  http.StatusUnprocessableEntity,
}

// Error is a provider failure translated into one of this package's
// sentinels. errors.Is matches both the sentinel and the *ProviderError.
type Error struct {
	Err   error
	Cause *ProviderError
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() []error { return []error{e.Err, e.Cause} }

// StatusCode returns the HTTP status matching a translated error, or 500 for
// anything else.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) {
		if code, ok := statusCodes[te.Err]; ok {
			return code
		}
	}
	return http.StatusInternalServerError
}

// codeTable maps provider error codes to sentinels for one operation.
// Codes missing from the table pass through unchanged.
type codeTable map[string]error

var (
	loginErrors = codeTable{
		"NotAuthorizedException":    ErrNotAuthorized,
		"UserNotConfirmedException": ErrUserNotConfirmed,
		"UserNotFoundException":     ErrUserNotFound,
	}
	signUpErrors = codeTable{
		"UsernameExistsException": ErrUsernameExists,
	}
	changePasswordErrors = codeTable{
		"InvalidPasswordException": ErrInvalidPassword,
		"NotAuthorizedException":   ErrNotAuthorized,
	}
	findErrors = codeTable{
		"UserNotFoundException": ErrUserNotFound,
	}
)

func (t codeTable) translate(err error) error {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return err
	}
	if sentinel, ok := t[pe.Code]; ok {
		return &Error{Err: sentinel, Cause: pe}
	}
	return err
}
