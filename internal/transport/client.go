package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/calebmorton/vanguard/internal/models"
)

const refreshPath = "/auth/refresh"

// Client is the single shared HTTP client for the auth API. Credentials ride
// in cookies held by the jar; no token header injection is needed. A 401 on
// any request triggers exactly one transparent refresh-and-retry; a second
// 401 propagates to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger

	// onSessionExpired fires when a refresh attempt fails, the client-side
	// equivalent of forced navigation to the login page.
	onSessionExpired func()
}

// NewClient creates a transport client for the API at baseURL. Every call is
// bounded by timeout; expiry surfaces as a generic transport error.
func NewClient(baseURL string, timeout time.Duration, userAgent string, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// SetSessionExpiredHandler registers the callback fired when a session could
// not be refreshed. May be nil.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	c.onSessionExpired = fn
}

// Get issues a GET and decodes a 2xx body into out (when out is non-nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, false)
}

// Post issues a POST with a JSON body and decodes a 2xx body into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, false)
}

// Delete issues a DELETE and decodes a 2xx body into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, false)
}

// Refresh calls POST /auth/refresh directly, relying on the refresh cookie in
// the jar. Used by both the interceptor and the orchestrator.
func (c *Client) Refresh(ctx context.Context) error {
	// retried=true keeps a 401 from the refresh endpoint from recursing.
	return c.do(ctx, http.MethodPost, refreshPath, nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, retried bool) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and network failures normalize to a generic shape.
		return &APIError{Message: "request failed: " + err.Error(), Status: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried && path != refreshPath {
		c.logger.Debug("session rejected, attempting refresh", slog.String("path", path))

		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			c.logger.Info("session refresh failed", slog.Any("error", refreshErr))
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return fmt.Errorf("%w: %w", models.ErrSessionExpired, decodeError(resp))
		}
		// Re-issue the original request exactly once.
		return c.do(ctx, method, path, body, out, true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
