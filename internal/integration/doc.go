// Package integration wires configured cloud accounts to coordinators.
//
// The Manager is the composition root's registry: an explicit map from
// instance id to coordinator, replacing any process-wide global state.
// Each configured Fireboard account or Tailscale tailnet becomes one
// Instance with its own client, fetcher, and coordinator; instances
// share nothing with each other.
package integration
