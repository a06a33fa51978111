package user

import (
	"errors"
	"fmt"
	"time"
)

// Status is the account status reported by the user pool.
type Status string

const (
	StatusUnknown             Status = "UNKNOWN"
	StatusUnconfirmed         Status = "UNCONFIRMED"
	StatusConfirmed           Status = "CONFIRMED"
	StatusArchived            Status = "ARCHIVED"
	StatusCompromised         Status = "COMPROMISED"
	StatusResetRequired       Status = "RESET_REQUIRED"
	StatusForceChangePassword Status = "FORCE_CHANGE_PASSWORD"
)

var statuses = []Status{
	StatusUnconfirmed,
	StatusConfirmed,
	StatusArchived,
	StatusCompromised,
	StatusUnknown,
	StatusResetRequired,
	StatusForceChangePassword,
}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: must provide a valid status, received %q", ErrInvalid, s)
}

// String returns the status name; the zero value reads as UNKNOWN.
func (s Status) String() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return string(s)
}

// ErrCreatedAtSet is returned when a user's creation time is set twice.
var ErrCreatedAtSet = errors.New("user: user already has a creation time")

// User is a user pool user.
type User struct {
	ID         string
	Username   Username
	Attributes *Attributes
	UpdatedAt  time.Time
	Enabled    bool
	Status     Status

	createdAt time.Time
}

// New returns a user with the given username and attributes. attrs may be nil.
func New(username Username, attrs *Attributes) *User {
	if attrs == nil {
		attrs = &Attributes{}
	}
	return &User{Username: username, Attributes: attrs}
}

// CreatedAt returns the creation time; zero when unknown.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// SetCreatedAt records the creation time. It can be set only once.
func (u *User) SetCreatedAt(t time.Time) error {
	if !u.createdAt.IsZero() {
		return ErrCreatedAtSet
	}
	u.createdAt = t
	return nil
}

// SetAttribute adds a, replacing any attribute of the same name.
func (u *User) SetAttribute(a Attribute) {
	if u.Attributes == nil {
		u.Attributes = &Attributes{}
	}
	u.Attributes.Add(a)
}

// Attribute returns the attribute called name.
func (u *User) Attribute(name string) (Attribute, bool) {
	return u.Attributes.Get(name)
}
