package idp

import (
	"context"

	"github.com/ggoodman/incognito-go/user"
)

// UserRepository loads users as user.User values.
type UserRepository struct {
	query *UserQueryService
}

// NewUserRepository returns a repository reading through query.
func NewUserRepository(query *UserQueryService) *UserRepository {
	return &UserRepository{query: query}
}

// Find returns the user called username. A missing user yields an error
// matching ErrUserNotFound.
func (r *UserRepository) Find(ctx context.Context, username string) (*user.User, error) {
	rec, err := r.query.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, findErrors.translate(err)
	}
	return MapUser(rec)
}

// FindAll returns every user in the pool, following pagination.
func (r *UserRepository) FindAll(ctx context.Context) ([]*user.User, error) {
	var (
		users []*user.User
		next  string
	)
	for {
		page, err := r.query.List(ctx, next)
		if err != nil {
			return nil, err
		}
		for i := range page.Users {
			u, err := MapUser(&page.Users[i])
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
		if page.PaginationToken == "" || page.PaginationToken == next {
			return users, nil
		}
		next = page.PaginationToken
	}
}
