package user

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalid is wrapped by every validation error in this package.
var ErrInvalid = errors.New("user: invalid value")

// allowedChars matches at least one letter, mark, symbol, number or
// punctuation character.
var allowedChars = regexp.MustCompile(`[\p{L}\p{M}\p{S}\p{N}\p{P}]+`)

const passwordSpecials = "^$*.[]{}()?-\"!@#%&/\\,><':;|_~`"

// Username is a user pool username.
type Username string

// NewUsername validates s as a username: 1 to 128 characters, at least one
// of which is a letter, mark, symbol, number or punctuation.
func NewUsername(s string) (Username, error) {
	if n := utf8.RuneCountInString(s); n < 1 || n > 128 {
		return "", fmt.Errorf("%w: username %q must be between 1 and 128 characters in length", ErrInvalid, s)
	}
	if !allowedChars.MatchString(s) {
		return "", fmt.Errorf("%w: username %q contains invalid characters", ErrInvalid, s)
	}
	return Username(s), nil
}

func (u Username) String() string { return string(u) }

// Password is a user pool password. It never prints its value.
type Password struct {
	value string
}

// NewPassword validates s: 8 to 256 characters containing a lowercase and an
// uppercase letter, a digit and a special character.
func NewPassword(s string) (Password, error) {
	if n := utf8.RuneCountInString(s); n < 8 || n > 256 {
		return Password{}, fmt.Errorf("%w: password must be between 8 and 256 characters in length", ErrInvalid)
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return Password{}, fmt.Errorf("%w: password must contain uppercase and lowercase letters, numbers, and special characters", ErrInvalid)
	}
	return Password{value: s}, nil
}

// Value returns the plain text password.
func (p Password) Value() string { return p.value }

func (p Password) String() string   { return "[REDACTED]" }
func (p Password) GoString() string { return "user.Password{[REDACTED]}" }

// Attribute is a named user attribute.
type Attribute struct {
	name  string
	value string
}

// NewAttribute validates name (1 to 32 allowed characters) and value (at
// most 2048 characters).
func NewAttribute(name, value string) (Attribute, error) {
	if n := utf8.RuneCountInString(name); n < 1 || n > 32 {
		return Attribute{}, fmt.Errorf("%w: attribute name %q must be between 1 and 32 characters in length", ErrInvalid, name)
	}
	if !allowedChars.MatchString(name) {
		return Attribute{}, fmt.Errorf("%w: attribute name %q contains invalid characters", ErrInvalid, name)
	}
	if utf8.RuneCountInString(value) > 2048 {
		return Attribute{}, fmt.Errorf("%w: attribute %q value must be at most 2048 characters in length", ErrInvalid, name)
	}
	return Attribute{name: name, value: value}, nil
}

// NewEmail builds the email attribute, requiring a bare address.
func NewEmail(address string) (Attribute, error) {
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return Attribute{}, fmt.Errorf("%w: %q must be a valid email address", ErrInvalid, address)
	}
	return NewAttribute("email", address)
}

func (a Attribute) Name() string  { return a.name }
func (a Attribute) Value() string { return a.value }
