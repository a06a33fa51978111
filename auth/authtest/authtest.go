// Package authtest provides Authenticators for tests of code that sits behind
// auth.Middleware.
package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"maps"

	"github.com/ggoodman/incognito-go/auth"
)

// NoAuth is a test authenticator that accepts any non-empty token.
// Used for testing and development environments where authentication is not required.
type NoAuth struct {
	UserID string
}

// NewNoAuth creates a new NoAuth authenticator with the specified user ID.
// If userID is empty, it defaults to "test-user".
func NewNoAuth(userID string) *NoAuth {
	if userID == "" {
		userID = "test-user"
	}
	return &NoAuth{UserID: userID}
}

// CheckAuthentication accepts every token.
func (n *NoAuth) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	return &UserInfo{ID: n.UserID, ClaimSet: map[string]any{"sub": n.UserID}}, nil
}

// Static accepts only the tokens it knows, each mapped to a fixed principal.
type Static struct {
	Users map[string]*UserInfo
}

// NewStatic returns an empty Static authenticator.
func NewStatic() *Static {
	return &Static{Users: make(map[string]*UserInfo)}
}

// Add registers tok as authenticating userID with the given claims. The sub
// claim is always userID.
func (s *Static) Add(tok, userID string, claims map[string]any) *Static {
	cs := maps.Clone(claims)
	if cs == nil {
		cs = make(map[string]any)
	}
	cs["sub"] = userID
	s.Users[tok] = &UserInfo{ID: userID, ClaimSet: cs}
	return s
}

// CheckAuthentication returns the principal registered for tok.
func (s *Static) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	ui, ok := s.Users[tok]
	if !ok {
		return nil, errors.Join(auth.ErrUnauthorized, errors.New("unknown test token"))
	}
	return ui, nil
}

// UserInfo is a fixed auth.UserInfo.
type UserInfo struct {
	ID       string
	ClaimSet map[string]any
}

func (u *UserInfo) UserID() string { return u.ID }

func (u *UserInfo) Claims(ref any) error {
	b, err := json.Marshal(u.ClaimSet)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ref)
}
