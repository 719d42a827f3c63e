package api

import (
	"context"
	"net/http"
)

// Users lists all backend user accounts. Admin only, enforced
// server-side; the route guard keeps non-admins out of the view as well.
func (c *Client) Users(ctx context.Context) ([]UserAccount, error) {
	var users []UserAccount
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates a backend user account.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (*UserAccount, error) {
	var user UserAccount
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
