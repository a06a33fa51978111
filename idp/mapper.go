package idp

import (
	"fmt"

	"github.com/ggoodman/incognito-go/user"
)

// MapUser converts a provider record into a user.User. The user id is taken
// from the sub attribute.
func MapUser(rec *UserRecord) (*user.User, error) {
	username, err := user.NewUsername(rec.Username)
	if err != nil {
		return nil, err
	}

	wire := rec.Attributes
	if wire == nil {
		wire = rec.UserAttributes
	}
	attrs := make([]user.Attribute, 0, len(wire))
	for _, w := range wire {
		a, err := user.NewAttribute(w.Name, w.Value)
		if err != nil {
			return nil, fmt.Errorf("idp: map user %q: %w", rec.Username, err)
		}
		attrs = append(attrs, a)
	}
	set, err := user.NewAttributes(attrs...)
	if err != nil {
		return nil, fmt.Errorf("idp: map user %q: %w", rec.Username, err)
	}

	status, err := user.ParseStatus(rec.UserStatus)
	if err != nil {
		return nil, fmt.Errorf("idp: map user %q: %w", rec.Username, err)
	}

	u := user.New(username, set)
	if sub, ok := set.Get("sub"); ok {
		u.ID = sub.Value()
	}
	if err := u.SetCreatedAt(rec.UserCreateDate); err != nil {
		return nil, err
	}
	u.UpdatedAt = rec.UserLastModifiedDate
	u.Enabled = rec.Enabled
	u.Status = status
	return u, nil
}
