package fireboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// DefaultBaseURL is the Fireboard cloud API root.
const DefaultBaseURL = "https://fireboard.io/api"

// Client talks to the Fireboard cloud API.
//
// Authentication is session-token based: the first request logs in with
// the account credentials and caches the returned token; a 401 on a later
// request discards the token and retries the login once. All failures are
// wrapped with the poll package sentinels so the coordinator can classify
// them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	password   string

	mu    sync.Mutex
	token string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Fireboard cloud client for one account.
// Request deadlines come from the caller's context; the coordinator
// bounds each fetch with its timeout.
func NewClient(email, password string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		email:      email,
		password:   password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDevices fetches the account's device list, logging in first if no
// session token is cached. A stale token triggers one re-login before the
// failure is surfaced as an auth error.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	devices, err := c.fetchDevices(ctx, token)
	if err == nil {
		return devices, nil
	}
	if !isStaleToken(err) {
		return nil, err
	}

	// Token rejected: discard it and log in again once.
	c.mu.Lock()
	if c.token == token {
		c.token = ""
	}
	c.mu.Unlock()

	token, err = c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.fetchDevices(ctx, token)
}

// ensureToken returns the cached session token, logging in when absent.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	body, err := json.Marshal(loginRequest{Username: c.email, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("%w: encoding login request: %w", poll.ErrTransient, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building login request: %w", poll.ErrTransient, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login: %w", poll.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: login rejected with status %d", poll.ErrAuth, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: login returned status %d", poll.ErrTransient, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&lr); err != nil {
		return "", fmt.Errorf("%w: decoding login response: %w", poll.ErrTransient, err)
	}
	if lr.Key == "" {
		return "", fmt.Errorf("%w: login response carried no token", poll.ErrAuth)
	}

	c.token = lr.Key
	return c.token, nil
}

// fetchDevices performs the authenticated device list call.
func (c *Client) fetchDevices(ctx context.Context, token string) ([]Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/devices.json", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building devices request: %w", poll.ErrTransient, err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", poll.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w: device list rejected with status 401", staleTokenSentinel, poll.ErrAuth)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: device list rejected with status 403", poll.ErrAuth)
	default:
		return nil, fmt.Errorf("%w: device list returned status %d", poll.ErrTransient, resp.StatusCode)
	}

	var devices []Device
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&devices); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %w", poll.ErrTransient, err)
	}
	return devices, nil
}
