// Package apiclient is the Go client for the LearnHub API. It carries the
// auth cookies and transparently recovers from access-token expiry: the
// first caller to hit TOKEN_EXPIRED becomes the refresh leader, concurrent
// callers queue behind it, and every queued caller observes the leader's
// outcome before retrying its original request once.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// Rejection codes the server attaches to 401 responses.
const (
	codeTokenExpired       = "TOKEN_EXPIRED"
	codeSessionInvalidated = "SESSION_INVALIDATED"
)

const refreshPath = "/api/auth/refresh"

// ErrSessionEnded means the session cannot be recovered by refreshing; the
// user has to log in again.
var ErrSessionEnded = errors.New("session ended, login required")

// Response is the standard envelope every endpoint answers with.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Status  int             `json:"-"`
	Body    json.RawMessage `json:"-"`
}

// Client wraps an http.Client with a cookie jar and the refresh protocol.
type Client struct {
	base string
	http *http.Client

	// onSessionEnd, when set, receives the login path to send the user to.
	// It fires when refresh fails or the session was invalidated elsewhere.
	onSessionEnd func(loginPath string)

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
}

// Option configures a Client.
type Option func(*Client)

// WithSessionEndHandler installs the redirect callback.
func WithSessionEndHandler(fn func(loginPath string)) Option {
	return func(c *Client) { c.onSessionEnd = fn }
}

// WithHTTPClient replaces the underlying transport. A cookie jar is attached
// if the given client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(base string, opts ...Option) (*Client, error) {
	c := &Client{base: strings.TrimRight(base, "/")}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// HTTPClient exposes the underlying client, mainly so tests can seed cookies.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Get issues a GET with refresh recovery.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON body and refresh recovery.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do runs one request. On TOKEN_EXPIRED it refreshes (or waits for the
// in-flight refresh) and retries the original request exactly once. The
// refresh endpoint itself is exempt from recovery.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	resp, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if path == refreshPath || resp.Status != http.StatusUnauthorized {
		return resp, nil
	}

	switch resp.Code {
	case codeTokenExpired:
		if err := c.refresh(ctx); err != nil {
			c.sessionEnded(path)
			return nil, ErrSessionEnded
		}
		// one retry; a second 401 is returned to the caller as-is
		return c.roundTrip(ctx, method, path, body)
	case codeSessionInvalidated:
		c.sessionEnded(path)
		return nil, ErrSessionEnded
	default:
		return resp, nil
	}
}

// refresh makes at most one refresh call for any number of concurrent
// expired requests. The first caller leads; the rest queue and share the
// leader's result.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan error, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()
		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	err := c.callRefresh(ctx)

	c.mu.Lock()
	c.refreshing = false
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
	return err
}

func (c *Client) callRefresh(ctx context.Context) error {
	resp, err := c.roundTrip(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("refresh rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	resp := &Response{Status: httpResp.StatusCode, Body: data}
	// envelope decode is best-effort, non-JSON bodies keep the raw bytes
	_ = json.Unmarshal(data, resp)
	return resp, nil
}

func (c *Client) sessionEnded(currentPath string) {
	if c.onSessionEnd == nil {
		return
	}
	if target := LoginRedirect(currentPath); target != "" {
		c.onSessionEnd(target)
	}
}

// LoginRedirect maps the path the user was on to the login page to send
// them to: admin paths go to the admin login, everything else to the
// student login, and a user already on a login page stays put.
func LoginRedirect(currentPath string) string {
	if currentPath == "/login" || currentPath == "/admin/login" {
		return ""
	}
	if currentPath == "/admin" || strings.HasPrefix(currentPath, "/admin/") {
		return "/admin/login"
	}
	return "/login"
}
