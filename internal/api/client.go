package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flashdeck/flashdeck-cli/internal/auth"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// APIError carries a non-2xx backend response. Detail is the message pulled
// from the JSON `detail` field when present, else the raw body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == code
}

// Client is the HTTP binding to the Flashdeck backend. Every request
// attaches the bearer token read fresh from the auth manager, and a 401 is
// answered with exactly one refresh-and-retry before the expiry signal is
// broadcast.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *auth.Manager
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, manager *auth.Manager, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		auth:    manager,
		logger:  logger,
	}
}

// request is the centralized wrapper with the 401 refresh-and-retry. The
// body is kept as bytes so the retry can replay it.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out interface{}) error {
	start := time.Now()

	resp, err := c.send(ctx, method, path, query, contentType, body, true)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		c.logger.Debug("HTTP round trip",
			"method", method, "path", path,
			"status_code", resp.StatusCode,
			"duration", time.Since(start).String())
		return c.handleResponse(resp, out)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// Attempt a single refresh-and-retry. When the refresh fails the
	// original 401 is surfaced, not a synthetic one.
	if !c.tryRefresh(ctx) {
		c.auth.NotifyExpired(ctx, "token refresh failed")
		return &APIError{StatusCode: http.StatusUnauthorized, Detail: extractDetail(raw)}
	}

	retryResp, err := c.send(ctx, method, path, query, contentType, body, true)
	if err != nil {
		return err
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		c.auth.NotifyExpired(ctx, "retry after refresh still unauthorized")
	}
	return c.handleResponse(retryResp, out)
}

// send issues one HTTP request. withAuth attaches the bearer token read
// fresh from the manager at call time.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, withAuth bool) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	if withAuth {
		if access, _ := c.auth.Tokens(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	return resp, nil
}

// tryRefresh exchanges the stored refresh token for a new pair. Returns
// false when no refresh token exists or the backend declines.
func (c *Client) tryRefresh(ctx context.Context) bool {
	_, refresh := c.auth.Tokens()
	if refresh == "" {
		return false
	}

	token, err := c.Refresh(ctx, refresh)
	if err != nil {
		c.logger.Warn("Token refresh failed", "error", err)
		return false
	}

	if err := c.auth.SetTokens(token.AccessToken, token.RefreshToken); err != nil {
		c.logger.Error("Failed to persist refreshed tokens", "error", err)
		return false
	}
	return true
}

// handleResponse decodes a success body into out, or maps a failure into an
// APIError with the backend's `detail` message.
func (c *Client) handleResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: extractDetail(raw)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// extractDetail prefers JSON error bodies so callers can surface precise
// reasons (e.g. {"detail": "..."}), falling back to the raw text.
func extractDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(raw))
}

// getJSON / postJSON / patchJSON / delete are thin shorthands over request.

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.request(ctx, http.MethodGet, path, query, contentTypeJSON, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, query url.Values, in, out interface{}) error {
	body, err := marshalBody(in)
	if err != nil {
		return err
	}
	return c.request(ctx, http.MethodPost, path, query, contentTypeJSON, body, out)
}

func (c *Client) patchJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := marshalBody(in)
	if err != nil {
		return err
	}
	return c.request(ctx, http.MethodPatch, path, nil, contentTypeJSON, body, out)
}

func (c *Client) deleteJSON(ctx context.Context, path string) error {
	return c.request(ctx, http.MethodDelete, path, nil, contentTypeJSON, nil, nil)
}

func marshalBody(in interface{}) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return body, nil
}
