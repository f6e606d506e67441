package tailscale

import "time"

// devicesResponse is the envelope for the tailnet device list.
type devicesResponse struct {
	Devices []Device `json:"devices"`
}

// Device is one tailnet node as returned by the Tailscale API.
type Device struct {
	ID                string     `json:"id"`
	NodeID            string     `json:"nodeId"`
	Name              string     `json:"name"`
	Hostname          string     `json:"hostname"`
	OS                string     `json:"os"`
	ClientVersion     string     `json:"clientVersion"`
	Addresses         []string   `json:"addresses"`
	User              string     `json:"user"`
	Expires           *time.Time `json:"expires"`
	KeyExpiryDisabled bool       `json:"keyExpiryDisabled"`
	Authorized        bool       `json:"authorized"`
	UpdateAvailable   bool       `json:"updateAvailable"`
	LastSeen          *time.Time `json:"lastSeen"`
}
