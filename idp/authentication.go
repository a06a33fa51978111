package idp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/ggoodman/incognito-go/user"
)

// AuthenticationService logs users in, refreshes their tokens, signs them up
// and changes their passwords.
type AuthenticationService struct {
	client Client
	creds  Credentials
	opts   *options
}

// NewAuthenticationService returns a service issuing requests through client
// on behalf of creds.
func NewAuthenticationService(client Client, creds Credentials, opts ...Option) *AuthenticationService {
	return &AuthenticationService{client: client, creds: creds, opts: newOptions(opts)}
}

// Login authenticates username with password. The ID token is available as
// tok.Extra("id_token").
func (s *AuthenticationService) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	out, err := s.client.AdminInitiateAuth(ctx, &AdminInitiateAuthInput{
		AuthFlow:   FlowAdminNoSRP,
		ClientID:   s.creds.ClientID,
		UserPoolID: s.creds.UserPoolID,
		AuthParameters: map[string]string{
			"SECRET_HASH": s.creds.SecretHash(username),
			"USERNAME":    username,
			"PASSWORD":    password,
		},
	})
	if err != nil {
		err = loginErrors.translate(err)
		s.opts.log.InfoContext(ctx, "idp.login.fail", slog.String("err", err.Error()))
		return nil, err
	}
	tok, err := s.token(out, "")
	if err != nil {
		s.opts.log.InfoContext(ctx, "idp.login.challenge", slog.String("challenge", out.ChallengeName))
		return nil, err
	}
	s.opts.log.DebugContext(ctx, "idp.login.ok")
	return tok, nil
}

// RefreshToken exchanges refreshToken for fresh access and ID tokens. The
// returned token carries refreshToken forward since the provider does not
// rotate it.
func (s *AuthenticationService) RefreshToken(ctx context.Context, username, refreshToken string) (*oauth2.Token, error) {
	out, err := s.client.AdminInitiateAuth(ctx, &AdminInitiateAuthInput{
		AuthFlow:   FlowRefreshToken,
		ClientID:   s.creds.ClientID,
		UserPoolID: s.creds.UserPoolID,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
			"SECRET_HASH":   s.creds.SecretHash(username),
			"USERNAME":      username,
		},
	})
	if err != nil {
		err = loginErrors.translate(err)
		s.opts.log.InfoContext(ctx, "idp.refresh.fail", slog.String("err", err.Error()))
		return nil, err
	}
	return s.token(out, refreshToken)
}

// SignUp registers u with password. Every attribute of u is sent along.
func (s *AuthenticationService) SignUp(ctx context.Context, u *user.User, password user.Password) (*SignUpOutput, error) {
	if u == nil {
		return nil, errors.New("idp: user is required")
	}
	attrs := make([]AttributeType, 0, u.Attributes.Len())
	for _, a := range u.Attributes.List() {
		attrs = append(attrs, AttributeType{Name: a.Name(), Value: a.Value()})
	}
	out, err := s.client.SignUp(ctx, &SignUpInput{
		ClientID:       s.creds.ClientID,
		SecretHash:     s.creds.SecretHash(u.Username.String()),
		Username:       u.Username.String(),
		Password:       password.Value(),
		UserAttributes: attrs,
	})
	if err != nil {
		err = signUpErrors.translate(err)
		s.opts.log.InfoContext(ctx, "idp.signup.fail", slog.String("err", err.Error()))
		return nil, err
	}
	s.opts.log.InfoContext(ctx, "idp.signup.ok", slog.Bool("confirmed", out.UserConfirmed))
	return out, nil
}

// ChangePassword changes the password of the user owning accessToken.
func (s *AuthenticationService) ChangePassword(ctx context.Context, accessToken string, previous, proposed user.Password) error {
	err := s.client.ChangePassword(ctx, &ChangePasswordInput{
		AccessToken:      accessToken,
		PreviousPassword: previous.Value(),
		ProposedPassword: proposed.Value(),
	})
	if err != nil {
		err = changePasswordErrors.translate(err)
		s.opts.log.InfoContext(ctx, "idp.change_password.fail", slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (s *AuthenticationService) token(out *AdminInitiateAuthOutput, refreshToken string) (*oauth2.Token, error) {
	res := out.AuthenticationResult
	if res == nil {
		if out.ChallengeName != "" {
			return nil, fmt.Errorf("%w: %s", ErrChallengeRequired, out.ChallengeName)
		}
		return nil, errors.New("idp: response carried no authentication result")
	}
	tok := &oauth2.Token{
		AccessToken:  res.AccessToken,
		TokenType:    res.TokenType,
		RefreshToken: res.RefreshToken,
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	if res.ExpiresIn > 0 {
		tok.Expiry = s.opts.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]any{"id_token": res.IDToken}), nil
}
