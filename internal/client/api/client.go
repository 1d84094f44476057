// Package api wraps the marketplace REST surface with a client that attaches
// the current credential to every call and transparently performs one
// refresh-and-retry cycle on authorization failure.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"rentline/internal/app/dto"
	"rentline/internal/client/session"
)

const defaultTimeout = 15 * time.Second

// authPaths never trigger the refresh-retry cycle: a 401 from one of these is
// the final answer.
var authPaths = map[string]struct{}{
	"/auth/login":    {},
	"/auth/register": {},
	"/auth/refresh":  {},
}

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Store
	logger  *slog.Logger

	// onLoggedOut runs after an unrecoverable refresh failure, once the
	// credential has been cleared. The UI layer hooks navigation here.
	onLoggedOut func()
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLoggedOutHandler(fn func()) Option {
	return func(c *Client) { c.onLoggedOut = fn }
}

// New builds a client around the session store. Requests always carry the
// cookie jar (the backend keeps the refresh token in an HttpOnly cookie, a
// channel independent of the bearer credential), and the store's refresh
// operation is wired to this client's raw refresh call.
func New(baseURL string, store *session.Store, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: defaultTimeout},
		session: store,
	}
	for _, opt := range opts {
		opt(c)
	}
	store.SetRefresher(c.refreshAccessToken)
	return c
}

// Session exposes the underlying store for callers that need the credential
// directly (the websocket dial passes it as a query parameter).
func (c *Client) Session() *session.Store { return c.session }

// HTTPClient exposes the configured transport so the realtime client can share
// the cookie jar.
func (c *Client) HTTPClient() *http.Client { return c.http }

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// do performs one logical request: attempt with the current credential, and on
// 401 for a non-auth endpoint refresh once and retry once. The retry never
// triggers a second refresh.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	status, err := c.attempt(ctx, method, path, body, out)
	if err == nil {
		return nil
	}
	if status != http.StatusUnauthorized || isAuthPath(path) {
		return err
	}

	if _, refreshErr := c.session.Refresh(ctx); refreshErr != nil {
		// Refresh failed: hard stop. The store already cleared the
		// credential; hand control back to the logged-out entry point.
		if c.logger != nil {
			c.logger.Warn("token refresh failed, logging out", "error", refreshErr)
		}
		if c.onLoggedOut != nil {
			c.onLoggedOut()
		}
		return refreshErr
	}
	_, err = c.attempt(ctx, method, path, body, out)
	return err
}

// attempt issues a single HTTP round trip and decodes the response. The
// returned status is 0 when the failure happened below HTTP.
func (c *Client) attempt(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			// Empty or ignored bodies are fine; absent payloads
			// normalize to the zero value rather than erroring.
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("api: decode response: %w", err)
		}
		return resp.StatusCode, nil
	}
	return resp.StatusCode, newError(resp, raw)
}

func newError(resp *http.Response, raw []byte) *Error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload map[string]any
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Payload = payload
		if msg, ok := payload["error"].(string); ok && msg != "" {
			apiErr.Message = msg
		}
	}
	return apiErr
}

// refreshAccessToken is the raw refresh network call the session store
// coalesces. It authenticates with the HttpOnly cookie alone.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	var resp dto.RefreshResponse
	if _, err := c.attempt(ctx, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("api: refresh returned no access token")
	}
	return resp.AccessToken, nil
}

func isAuthPath(path string) bool {
	_, ok := authPaths[path]
	return ok
}
