package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/flashdeck/flashdeck-cli/internal/models"
)

// Register creates an account. No bearer token is attached.
func (c *Client) Register(ctx context.Context, creds models.Credentials) error {
	body, err := marshalBody(creds)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/auth/register", nil, contentTypeJSON, body, false)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// Login exchanges credentials for a token pair. The backend expects an
// OAuth2 password-grant form (username/password/grant_type).
func (c *Client) Login(ctx context.Context, email, password string) (*models.Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	form.Set("grant_type", "password")

	resp, err := c.send(ctx, http.MethodPost, "/auth/login", nil, contentTypeForm, []byte(form.Encode()), false)
	if err != nil {
		return nil, err
	}

	var token models.Token
	if err := c.handleResponse(resp, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Refresh exchanges a refresh token for a new pair. It bypasses the guard's
// retry so a failing refresh can never recurse.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Token, error) {
	body, err := marshalBody(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, contentTypeJSON, body, true)
	if err != nil {
		return nil, err
	}

	var token models.Token
	if err := c.handleResponse(resp, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Logout invalidates the server-side session when the backend supports it.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, contentTypeJSON, nil, true)
	if err != nil {
		return err
	}
	return c.handleResponse(resp, nil)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.Me, error) {
	var me models.Me
	if err := c.getJSON(ctx, "/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}
