package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// tokenClaims are the claims the backend embeds in the access token.
type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Login authenticates with the backend and populates the session store.
// The signed-in user is decoded from the access token's claims; the
// token's signature is the backend's concern, the client only reads the
// payload.
func (c *Client) Login(ctx context.Context, email, password string) (*session.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login",
		nil, map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response missing access token")
	}

	user, err := decodeUser(resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decode access token: %w", err)
	}

	c.store.Set(session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         user,
	})
	c.logger.Info("signed in", "email", user.Email, "role", user.Role)
	return user, nil
}

// Logout clears the session and the response cache. Purely local; the
// backend keeps no server-side session for this client.
func (c *Client) Logout() {
	c.store.Clear()
	c.categories.Clear()
	c.logger.Info("signed out")
}

// Me fetches the current user's profile from the backend.
func (c *Client) Me(ctx context.Context) (*UserAccount, error) {
	var user UserAccount
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// decodeUser extracts the user identity from the access token claims
// without verifying the signature.
func decodeUser(token string) (*session.User, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}

	role := session.Role(claims.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q in token", claims.Role)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	return &session.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  role,
	}, nil
}
