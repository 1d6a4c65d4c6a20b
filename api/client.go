// Package api is the HTTP client for the research assistant backend. It
// covers the REST surface only; real-time chat traffic goes through the
// transport package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finchat/errors"
	"finchat/session"

	"go.uber.org/zap"
)

type Client struct {
	baseURL        string
	http           *http.Client
	sessions       *session.Store
	logger         *zap.Logger
	onUnauthorized func()
}

func NewClient(baseURL string, timeout time.Duration, sessions *session.Store, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
		logger:   logger,
	}
}

// OnUnauthorized registers the forced-logout hook invoked after a 401
// clears the session. The UI uses it to tell the user to log in again.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// BaseURL returns the configured backend root, used to join relative
// download URLs.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiError is the backend's error body. FastAPI-style backends put the
// human-readable message under "detail".
type apiError struct {
	Detail string `json:"detail"`
}

// do performs an authenticated JSON request. A nil out skips response
// decoding; 204 responses decode to nothing regardless.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapError(err, "could not encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.WrapError(err, "could not build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapErrorf(errors.ErrServiceUnavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return c.handleUnauthorized(method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapErrorf(err, "could not decode %s %s response", method, path)
	}
	return nil
}

// handleUnauthorized implements the global 401 policy: the session is
// cleared and the forced-logout hook fires. Not locally recoverable.
func (c *Client) handleUnauthorized(method, path string) error {
	c.logger.Warn("Session rejected by backend, clearing",
		zap.String("method", method),
		zap.String("path", path))
	if err := c.sessions.Clear(); err != nil {
		c.logger.Error("Failed to clear session after 401", zap.Error(err))
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return errors.WrapError(errors.ErrUnauthorized, "session expired, please login again")
}

// errorFromResponse surfaces the backend's detail message when present,
// else a generic status line.
func (c *Client) errorFromResponse(resp *http.Response) error {
	var apiErr apiError
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		_ = json.Unmarshal(data, &apiErr)
	}
	msg := apiErr.Detail
	if msg == "" {
		msg = fmt.Sprintf("error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.WrapError(errors.ErrNotFound, msg)
	}
	return fmt.Errorf("%s", msg)
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

// withQuery appends non-empty query parameters to a path.
func withQuery(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
