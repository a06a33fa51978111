package idp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// Credentials identify the app client and user pool requests are made for.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserPoolID   string
}

// Validate reports missing fields.
func (c Credentials) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("idp: client id is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("idp: client secret is required"))
	}
	if c.UserPoolID == "" {
		errs = append(errs, errors.New("idp: user pool id is required"))
	}
	return errors.Join(errs...)
}

// SecretHash returns base64(HMAC-SHA256(key=secret, msg=username+clientID)),
// the value the provider expects alongside requests for username.
func (c Credentials) SecretHash(username string) string {
	mac := hmac.New(sha256.New, []byte(c.ClientSecret))
	mac.Write([]byte(username + c.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
