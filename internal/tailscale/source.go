package tailscale

import (
	"context"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
)

// Source adapts one tailnet to the coordinator's Fetcher contract.
type Source struct {
	client *Client
}

// NewSource wraps a client as a poll.Fetcher.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Fetch implements poll.Fetcher.
func (s *Source) Fetch(ctx context.Context) (entity.Snapshot, error) {
	devices, err := s.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	return Project(devices)
}
