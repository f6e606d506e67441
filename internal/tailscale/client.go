package tailscale

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// DefaultBaseURL is the Tailscale API root.
const DefaultBaseURL = "https://api.tailscale.com"

// Client talks to the Tailscale API for one tailnet.
//
// Authentication is a static API key sent as HTTP basic auth; there is no
// session to establish or refresh. Failures are wrapped with the poll
// package sentinels so the coordinator can classify them.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tailnet    string
	apiKey     string
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

// NewClient creates a Tailscale API client for one tailnet.
func NewClient(tailnet, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		tailnet:    tailnet,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDevices fetches the tailnet's device list.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	endpoint := fmt.Sprintf("%s/api/v2/tailnet/%s/devices", c.baseURL, url.PathEscape(c.tailnet))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building devices request: %w", poll.ErrTransient, err)
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", poll.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: tailscale rejected the API key with status %d", poll.ErrAuth, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: device list returned status %d", poll.ErrTransient, resp.StatusCode)
	}

	var dr devicesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&dr); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %w", poll.ErrTransient, err)
	}
	return dr.Devices, nil
}
