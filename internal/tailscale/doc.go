// Package tailscale polls the Tailscale API for tailnet devices and
// projects each node into a key-expiry timestamp record.
package tailscale
