package keychain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is the cause of a FetchError for a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrUnexpectedContentType is the cause of a FetchError for a response
	// that is not JSON.
	ErrUnexpectedContentType = errors.New("unexpected content type")
	// ErrInvalidKeyset is the cause of a FetchError for a body that is not a
	// JWK Set.
	ErrInvalidKeyset = errors.New("invalid JWK Set")
)

// FetchError reports a failure to obtain the keyset from URL. StatusCode is
// zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("keychain: fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("keychain: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
