// Package idptest provides an in-memory idp.Client for tests.
package idptest

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ggoodman/incognito-go/idp"
)

// Fake is an in-memory user pool. It checks secret hashes, passwords and
// account status the way the provider does and reports failures as
// *idp.ProviderError with the provider's codes.
type Fake struct {
	// Minter produces token strings. The default returns a random opaque
	// value; tests verifying tokens can mint real JWTs instead.
	Minter func(username, tokenUse string) string
	// Now is the clock used for user timestamps.
	Now func() time.Time
	// PageSize bounds ListUsers pages. Zero means 60.
	PageSize int
	// ExpiresIn is reported with issued tokens. Zero means 3600.
	ExpiresIn int32

	creds idp.Credentials

	mu      sync.Mutex
	users   map[string]*account
	access  map[string]string
	refresh map[string]string
}

type account struct {
	rec      idp.UserRecord
	password string
}

var _ idp.Client = (*Fake)(nil)

// New returns an empty pool accepting requests for creds.
func New(creds idp.Credentials) *Fake {
	return &Fake{
		creds:   creds,
		users:   make(map[string]*account),
		access:  make(map[string]string),
		refresh: make(map[string]string),
	}
}

// AddUser creates a user directly, bypassing sign up. A sub attribute is
// generated unless attrs carries one.
func (f *Fake) AddUser(username, password string, status string, attrs ...idp.AttributeType) idp.UserRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUser(username, password, status, attrs)
}

// ConfirmUser marks username as confirmed.
func (f *Fake) ConfirmUser(username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.users[username]
	if !ok {
		return providerError("UserNotFoundException", "User does not exist.")
	}
	acct.rec.UserStatus = "CONFIRMED"
	acct.rec.UserLastModifiedDate = f.now()
	return nil
}

// Password returns the current password of username.
func (f *Fake) Password(username string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.users[username]
	if !ok {
		return "", false
	}
	return acct.password, true
}

func (f *Fake) AdminInitiateAuth(_ context.Context, in *idp.AdminInitiateAuthInput) (*idp.AdminInitiateAuthOutput, error) {
	if in.ClientID != f.creds.ClientID || in.UserPoolID != f.creds.UserPoolID {
		return nil, providerError("InvalidParameterException", "Unknown client or user pool.")
	}
	username := in.AuthParameters["USERNAME"]
	if in.AuthParameters["SECRET_HASH"] != f.creds.SecretHash(username) {
		return nil, providerError("NotAuthorizedException", "Unable to verify secret hash for client "+in.ClientID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch in.AuthFlow {
	case idp.FlowAdminNoSRP:
		acct, ok := f.users[username]
		if !ok {
			return nil, providerError("UserNotFoundException", "User does not exist.")
		}
		if acct.password != in.AuthParameters["PASSWORD"] {
			return nil, providerError("NotAuthorizedException", "Incorrect username or password.")
		}
		switch acct.rec.UserStatus {
		case "UNCONFIRMED":
			return nil, providerError("UserNotConfirmedException", "User is not confirmed.")
		case "FORCE_CHANGE_PASSWORD":
			return &idp.AdminInitiateAuthOutput{
				ChallengeName: "NEW_PASSWORD_REQUIRED",
				Session:       uuid.NewString(),
			}, nil
		}
		if !acct.rec.Enabled {
			return nil, providerError("NotAuthorizedException", "User is disabled.")
		}
		return &idp.AdminInitiateAuthOutput{AuthenticationResult: f.issue(username, true)}, nil

	case idp.FlowRefreshToken:
		owner, ok := f.refresh[in.AuthParameters["REFRESH_TOKEN"]]
		if !ok || owner != username {
			return nil, providerError("NotAuthorizedException", "Invalid Refresh Token")
		}
		return &idp.AdminInitiateAuthOutput{AuthenticationResult: f.issue(username, false)}, nil
	}
	return nil, providerError("InvalidParameterException", "Unsupported auth flow "+in.AuthFlow)
}

func (f *Fake) SignUp(_ context.Context, in *idp.SignUpInput) (*idp.SignUpOutput, error) {
	if in.ClientID != f.creds.ClientID {
		return nil, providerError("InvalidParameterException", "Unknown client.")
	}
	if in.SecretHash != f.creds.SecretHash(in.Username) {
		return nil, providerError("NotAuthorizedException", "Unable to verify secret hash for client "+in.ClientID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[in.Username]; ok {
		return nil, providerError("UsernameExistsException", "User already exists")
	}
	if len(in.Password) < 8 {
		return nil, providerError("InvalidPasswordException", "Password did not conform with policy: Password not long enough")
	}
	rec := f.addUser(in.Username, in.Password, "UNCONFIRMED", in.UserAttributes)
	sub := ""
	for _, a := range rec.Attributes {
		if a.Name == "sub" {
			sub = a.Value
		}
	}
	return &idp.SignUpOutput{UserSub: sub}, nil
}

func (f *Fake) ChangePassword(_ context.Context, in *idp.ChangePasswordInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.access[in.AccessToken]
	if !ok {
		return providerError("NotAuthorizedException", "Invalid Access Token")
	}
	acct := f.users[username]
	if acct.password != in.PreviousPassword {
		return providerError("NotAuthorizedException", "Incorrect username or password.")
	}
	if len(in.ProposedPassword) < 8 {
		return providerError("InvalidPasswordException", "Password did not conform with policy: Password not long enough")
	}
	acct.password = in.ProposedPassword
	acct.rec.UserLastModifiedDate = f.now()
	return nil
}

func (f *Fake) AdminGetUser(_ context.Context, in *idp.AdminGetUserInput) (*idp.UserRecord, error) {
	if in.UserPoolID != f.creds.UserPoolID {
		return nil, providerError("ResourceNotFoundException", "User pool "+in.UserPoolID+" does not exist.")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.users[in.Username]
	if !ok {
		return nil, providerError("UserNotFoundException", "User does not exist.")
	}
	rec := acct.rec
	rec.UserAttributes = slices.Clone(acct.rec.Attributes)
	rec.Attributes = nil
	return &rec, nil
}

func (f *Fake) ListUsers(_ context.Context, in *idp.ListUsersInput) (*idp.ListUsersOutput, error) {
	if in.UserPoolID != f.creds.UserPoolID {
		return nil, providerError("ResourceNotFoundException", "User pool "+in.UserPoolID+" does not exist.")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.users))
	for name := range f.users {
		names = append(names, name)
	}
	slices.Sort(names)

	start := 0
	if in.PaginationToken != "" {
		n, err := strconv.Atoi(in.PaginationToken)
		if err != nil || n < 0 || n > len(names) {
			return nil, providerError("InvalidParameterException", "Invalid pagination token.")
		}
		start = n
	}
	size := f.PageSize
	if in.Limit > 0 {
		size = int(in.Limit)
	}
	if size <= 0 {
		size = 60
	}
	end := min(start+size, len(names))

	out := &idp.ListUsersOutput{}
	for _, name := range names[start:end] {
		rec := f.users[name].rec
		rec.Attributes = slices.Clone(rec.Attributes)
		out.Users = append(out.Users, rec)
	}
	if end < len(names) {
		out.PaginationToken = strconv.Itoa(end)
	}
	return out, nil
}

func (f *Fake) addUser(username, password, status string, attrs []idp.AttributeType) idp.UserRecord {
	attrs = slices.Clone(attrs)
	if !slices.ContainsFunc(attrs, func(a idp.AttributeType) bool { return a.Name == "sub" }) {
		attrs = append(attrs, idp.AttributeType{Name: "sub", Value: uuid.NewString()})
	}
	now := f.now()
	acct := &account{
		password: password,
		rec: idp.UserRecord{
			Username:             username,
			Attributes:           attrs,
			UserCreateDate:       now,
			UserLastModifiedDate: now,
			Enabled:              true,
			UserStatus:           status,
		},
	}
	f.users[username] = acct
	return acct.rec
}

func (f *Fake) issue(username string, withRefresh bool) *idp.AuthenticationResult {
	res := &idp.AuthenticationResult{
		AccessToken: f.mint(username, "access"),
		IDToken:     f.mint(username, "id"),
		TokenType:   "Bearer",
		ExpiresIn:   f.ExpiresIn,
	}
	if res.ExpiresIn == 0 {
		res.ExpiresIn = 3600
	}
	f.access[res.AccessToken] = username
	if withRefresh {
		res.RefreshToken = f.mint(username, "refresh")
		f.refresh[res.RefreshToken] = username
	}
	return res
}

func (f *Fake) mint(username, use string) string {
	if f.Minter != nil {
		return f.Minter(username, use)
	}
	return use + "." + uuid.NewString()
}

func (f *Fake) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func providerError(code, msg string) error {
	return &idp.ProviderError{Code: code, Message: msg}
}
