package tailscale

import (
	"fmt"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// manufacturer is the fixed device identity manufacturer string.
const manufacturer = "Tailscale Inc."

// expiresAttribute names the key-expiry sensor on each node.
const expiresAttribute = "expires"

// Project turns raw tailnet device records into a snapshot: one
// key-expiry timestamp record per node.
//
// Pure and deterministic. Nodes with key expiry disabled keep their key
// with a nil timestamp so the key set stays stable when an operator
// toggles expiry on a node.
func Project(devices []Device) (entity.Snapshot, error) {
	snap := make(entity.Snapshot, len(devices))

	for _, dev := range devices {
		hardwareID := dev.NodeID
		if hardwareID == "" {
			hardwareID = dev.ID
		}
		if hardwareID == "" {
			return nil, fmt.Errorf("%w: tailscale device %q has no node id", poll.ErrProjection, dev.Name)
		}

		identity := entity.Identity{
			HardwareID:      hardwareID,
			Name:            dev.Hostname,
			Manufacturer:    manufacturer,
			Model:           dev.OS,
			FirmwareVersion: dev.ClientVersion,
		}
		// Tailnet nodes carry no MAC; the primary tailnet address fills
		// the network-id slot for display grouping.
		if len(dev.Addresses) > 0 {
			identity.MAC = dev.Addresses[0]
		}

		key := entity.AttributeKey(hardwareID, expiresAttribute)
		rec := entity.Record{
			Key:         key,
			Kind:        entity.KindAttribute,
			DisplayName: dev.Hostname + " Expires",
			DeviceClass: entity.DeviceClassTimestamp,
			Device:      identity,
		}
		if !dev.KeyExpiryDisabled && dev.Expires != nil {
			ts := dev.Expires.UTC()
			rec.Timestamp = &ts
		}
		snap[key] = rec
	}

	return snap, nil
}
