package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"finchat/errors"
	"finchat/session"
	"finchat/types"

	"go.uber.org/zap"
)

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the auth service's login reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates a new account. Registration does not log the user in;
// a Login call follows.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	c.logger.Info("Registered account", zap.String("username", req.Username))
	return &user, nil
}

// Login exchanges credentials for a bearer token and persists the session.
// The token endpoint is the one form-encoded call in the API; the email
// doubles as the OAuth2 username field.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapError(err, "could not build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapErrorf(errors.ErrServiceUnavailable, "login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Detail != "" {
			return nil, fmt.Errorf("%s", apiErr.Detail)
		}
		return nil, fmt.Errorf("error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, errors.WrapError(err, "could not decode token response")
	}

	sess := session.Session{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Username:    usernameFromEmail(email),
	}
	if err := c.sessions.Save(sess); err != nil {
		return nil, errors.WrapError(err, "could not persist session")
	}
	return &sess, nil
}

// Logout is client-side only: the bearer token is simply forgotten.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
