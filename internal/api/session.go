package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrBadCredentials means the login was rejected by the server.
var ErrBadCredentials = errors.New("api: invalid credentials")

// Login authenticates against the server and persists the resulting
// credential set. The user profile blob is stored raw.
func (c *Client) Login(ctx context.Context, organization, email, password string) (*User, error) {
	payload := map[string]string{
		"organization": organization,
		"email":        email,
		"password":     password,
	}

	resp, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", payload)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrBadCredentials, err)
		}

		return nil, err
	}

	if resp.Queued {
		// Login is a mutation by method but makes no sense queued; the host
		// was offline. Drop the queued entry's acknowledgement and fail.
		return nil, fmt.Errorf("%w: host is offline", ErrTransport)
	}

	var parsed loginResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("api: decoding login response: %w", err)
	}

	c.creds.SetTokens(parsed.Access, parsed.Refresh)
	c.creds.SetUser(string(parsed.User))

	var user User
	if err := json.Unmarshal(parsed.User, &user); err != nil {
		return nil, fmt.Errorf("api: decoding user profile: %w", err)
	}

	c.logger.Info("login successful", "email", email, "organization", organization)

	return &user, nil
}

// Logout clears the credential set. The server holds no session state beyond
// the tokens, so this is purely local.
func (c *Client) Logout() {
	c.creds.Clear()
	c.logger.Info("logged out, credentials cleared")
}

// CurrentUser returns the cached user profile from the credential store, or
// nil when not logged in.
func (c *Client) CurrentUser() *User {
	raw := c.creds.User()
	if raw == "" {
		return nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		c.logger.Warn("cached user profile is unreadable", "error", err)
		return nil
	}

	return &user
}
