package idp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ggoodman/incognito-go/idp"
	"github.com/ggoodman/incognito-go/idp/idptest"
	"github.com/ggoodman/incognito-go/user"
)

var (
	testCreds = idp.Credentials{ClientID: "client-1", ClientSecret: "secret", UserPoolID: "eu-west-1_pool"}
	testNow   = time.Unix(1_700_000_000, 0)
)

const goodPassword = "Correct-Horse-9"

func newService(t *testing.T) (*idp.AuthenticationService, *idptest.Fake) {
	t.Helper()
	fake := idptest.New(testCreds)
	fake.Now = func() time.Time { return testNow }
	svc := idp.NewAuthenticationService(fake, testCreds, idp.WithClock(func() time.Time { return testNow }))
	return svc, fake
}

func mustPassword(t *testing.T, s string) user.Password {
	t.Helper()
	p, err := user.NewPassword(s)
	if err != nil {
		t.Fatalf("NewPassword(%q): %v", s, err)
	}
	return p
}

func TestLogin(t *testing.T) {
	svc, fake := newService(t)
	fake.AddUser("alice", goodPassword, "CONFIRMED")

	tok, err := svc.Login(context.Background(), "alice", goodPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		t.Fatalf("expected access and refresh tokens, got %+v", tok)
	}
	if id, _ := tok.Extra("id_token").(string); id == "" {
		t.Fatalf("expected id_token extra")
	}
	if want := testNow.Add(time.Hour); !tok.Expiry.Equal(want) {
		t.Fatalf("Expiry = %v, want %v", tok.Expiry, want)
	}
	if tok.TokenType != "Bearer" {
		t.Fatalf("TokenType = %q", tok.TokenType)
	}
}

func TestLoginErrors(t *testing.T) {
	svc, fake := newService(t)
	fake.AddUser("alice", goodPassword, "CONFIRMED")
	fake.AddUser("bob", goodPassword, "UNCONFIRMED")
	fake.AddUser("carol", goodPassword, "FORCE_CHANGE_PASSWORD")

	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"wrong password", "alice", "nope", idp.ErrNotAuthorized},
		{"unknown user", "mallory", goodPassword, idp.ErrUserNotFound},
		{"unconfirmed", "bob", goodPassword, idp.ErrUserNotConfirmed},
		{"challenge", "carol", goodPassword, idp.ErrChallengeRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.username, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoginBadSecret(t *testing.T) {
	_, fake := newService(t)
	fake.AddUser("alice", goodPassword, "CONFIRMED")

	creds := testCreds
	creds.ClientSecret = "other"
	svc := idp.NewAuthenticationService(fake, creds)
	_, err := svc.Login(context.Background(), "alice", goodPassword)
	if !errors.Is(err, idp.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	svc, fake := newService(t)
	fake.AddUser("alice", goodPassword, "CONFIRMED")

	first, err := svc.Login(context.Background(), "alice", goodPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	next, err := svc.RefreshToken(context.Background(), "alice", first.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if next.AccessToken == "" || next.AccessToken == first.AccessToken {
		t.Fatalf("expected a new access token, got %q", next.AccessToken)
	}
	if next.RefreshToken != first.RefreshToken {
		t.Fatalf("expected refresh token to be carried forward, got %q", next.RefreshToken)
	}

	if _, err := svc.RefreshToken(context.Background(), "alice", "bogus"); !errors.Is(err, idp.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for unknown refresh token, got %v", err)
	}
}

func TestSignUp(t *testing.T) {
	svc, fake := newService(t)

	username, err := user.NewUsername("dave")
	if err != nil {
		t.Fatalf("NewUsername: %v", err)
	}
	email, err := user.NewEmail("dave@example.com")
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	attrs, err := user.NewAttributes(email)
	if err != nil {
		t.Fatalf("NewAttributes: %v", err)
	}
	u := user.New(username, attrs)

	out, err := svc.SignUp(context.Background(), u, mustPassword(t, goodPassword))
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if out.UserSub == "" || out.UserConfirmed {
		t.Fatalf("unexpected output %+v", out)
	}

	if _, err := svc.Login(context.Background(), "dave", goodPassword); !errors.Is(err, idp.ErrUserNotConfirmed) {
		t.Fatalf("expected ErrUserNotConfirmed before confirmation, got %v", err)
	}
	if err := fake.ConfirmUser("dave"); err != nil {
		t.Fatalf("ConfirmUser: %v", err)
	}
	if _, err := svc.Login(context.Background(), "dave", goodPassword); err != nil {
		t.Fatalf("Login after confirmation: %v", err)
	}

	_, err = svc.SignUp(context.Background(), u, mustPassword(t, goodPassword))
	if !errors.Is(err, idp.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
	if code := idp.StatusCode(err); code != 409 {
		t.Fatalf("StatusCode = %d, want 409", code)
	}
}

func TestChangePassword(t *testing.T) {
	svc, fake := newService(t)
	fake.AddUser("alice", goodPassword, "CONFIRMED")

	tok, err := svc.Login(context.Background(), "alice", goodPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	err = svc.ChangePassword(context.Background(), tok.AccessToken, mustPassword(t, "Wrong-Horse-9"), mustPassword(t, "Battery-Staple-7"))
	if !errors.Is(err, idp.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for wrong previous password, got %v", err)
	}

	err = svc.ChangePassword(context.Background(), tok.AccessToken, mustPassword(t, goodPassword), mustPassword(t, "Battery-Staple-7"))
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if got, _ := fake.Password("alice"); got != "Battery-Staple-7" {
		t.Fatalf("password not changed, got %q", got)
	}
}
