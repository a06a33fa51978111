package idp

import "context"

// UserQueryService reads raw user records from the pool.
type UserQueryService struct {
	client Client
	creds  Credentials
}

// NewUserQueryService returns a query service for the pool in creds.
func NewUserQueryService(client Client, creds Credentials) *UserQueryService {
	return &UserQueryService{client: client, creds: creds}
}

// GetUserByUsername returns the record of username. Provider errors are
// returned as is.
func (q *UserQueryService) GetUserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	return q.client.AdminGetUser(ctx, &AdminGetUserInput{
		UserPoolID: q.creds.UserPoolID,
		Username:   username,
	})
}

// List returns one page of users starting at paginationToken (empty for the
// first page).
func (q *UserQueryService) List(ctx context.Context, paginationToken string) (*ListUsersOutput, error) {
	return q.client.ListUsers(ctx, &ListUsersInput{
		UserPoolID:      q.creds.UserPoolID,
		PaginationToken: paginationToken,
	})
}
