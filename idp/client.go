package idp

import (
	"context"
	"time"
)

// Authentication flows accepted by AdminInitiateAuth.
const (
	FlowAdminNoSRP   = "ADMIN_NO_SRP_AUTH"
	FlowRefreshToken = "REFRESH_TOKEN_AUTH"
)

// Client is the provider RPC boundary. Implementations report provider
// failures as *ProviderError so the services can translate them.
type Client interface {
	AdminInitiateAuth(ctx context.Context, in *AdminInitiateAuthInput) (*AdminInitiateAuthOutput, error)
	SignUp(ctx context.Context, in *SignUpInput) (*SignUpOutput, error)
	ChangePassword(ctx context.Context, in *ChangePasswordInput) error
	AdminGetUser(ctx context.Context, in *AdminGetUserInput) (*UserRecord, error)
	ListUsers(ctx context.Context, in *ListUsersInput) (*ListUsersOutput, error)
}

// AttributeType is a name/value user attribute on the wire.
type AttributeType struct {
	Name  string
	Value string
}

type AdminInitiateAuthInput struct {
	AuthFlow       string
	ClientID       string
	UserPoolID     string
	AuthParameters map[string]string
}

// AuthenticationResult carries the tokens issued by a successful flow.
type AuthenticationResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	ExpiresIn    int32
}

// AdminInitiateAuthOutput holds either an AuthenticationResult or the name of
// a further challenge the user must answer.
type AdminInitiateAuthOutput struct {
	AuthenticationResult *AuthenticationResult
	ChallengeName        string
	Session              string
}

type SignUpInput struct {
	ClientID       string
	SecretHash     string
	Username       string
	Password       string
	UserAttributes []AttributeType
}

type SignUpOutput struct {
	UserConfirmed bool
	UserSub       string
}

type ChangePasswordInput struct {
	AccessToken      string
	PreviousPassword string
	ProposedPassword string
}

type AdminGetUserInput struct {
	UserPoolID string
	Username   string
}

// UserRecord is a user as reported by the provider. AdminGetUser fills
// UserAttributes; ListUsers fills Attributes.
type UserRecord struct {
	Username             string
	Attributes           []AttributeType
	UserAttributes       []AttributeType
	UserCreateDate       time.Time
	UserLastModifiedDate time.Time
	Enabled              bool
	UserStatus           string
}

type ListUsersInput struct {
	UserPoolID      string
	Limit           int32
	PaginationToken string
}

type ListUsersOutput struct {
	Users           []UserRecord
	PaginationToken string
}
