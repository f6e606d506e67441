package entity

import "fmt"

// Key conventions.
//
// Keys are globally unique within one coordinator and stable across
// refreshes for the same physical channel or battery. They are derived
// only from the device hardware id and a kind discriminator.

// BatteryKey returns the key for a device's battery record.
func BatteryKey(hardwareID string) string {
	return hardwareID + "_battery"
}

// ChannelKey returns the key for a channel reading record.
//
// The channel index is zero-padded to two digits so indices 0-99 sort
// and key deterministically. This is a fixed convention: indices >= 100
// would widen the field and break key stability for existing consumers,
// so the format is never changed (hardware in the field tops out at six
// channels).
func ChannelKey(hardwareID string, channel int) string {
	return fmt.Sprintf("%s_%02d", hardwareID, channel)
}

// AttributeKey returns the key for a named device attribute record.
func AttributeKey(hardwareID, attribute string) string {
	return hardwareID + "_" + attribute
}
