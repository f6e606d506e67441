package entity

import "time"

// Kind classifies what a Record measures.
type Kind string

// Record kinds.
const (
	// KindBattery is a device battery percentage.
	KindBattery Kind = "battery"

	// KindChannel is a temperature reading from one sensing channel.
	KindChannel Kind = "channel"

	// KindAttribute is a device-level attribute exposed as a sensor,
	// such as a key expiry timestamp.
	KindAttribute Kind = "attribute"
)

// Identity groups multiple Records under one physical-device identity
// for downstream display.
type Identity struct {
	// HardwareID is the stable hardware identifier the record keys are
	// derived from.
	HardwareID string `json:"hardware_id"`

	Name            string `json:"name"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`

	// MAC is the device's network identifier. Integrations without a MAC
	// address carry their primary network address here instead.
	MAC string `json:"mac,omitempty"`
}

// Record is the unit the rest of the system operates on: one derived
// sensor value projected out of a raw cloud device record.
//
// A Record's Key is deterministically derived from the device hardware id
// and the kind discriminator; re-fetching the same physical world never
// changes a record's key, only its value fields. Records are created fresh
// every refresh cycle and replaced atomically in the coordinator's
// snapshot; they are never mutated in place.
type Record struct {
	Key         string `json:"key"`
	Kind        Kind   `json:"kind"`
	DisplayName string `json:"display_name"`

	// DeviceClass is the Home Assistant sensor device class
	// (battery, temperature, timestamp).
	DeviceClass string `json:"device_class"`

	// Unit is the unit of measurement, empty for unitless records.
	Unit string `json:"unit,omitempty"`

	// Value carries numeric readings; nil when the reading is absent.
	Value *float64 `json:"value,omitempty"`

	// Timestamp carries time-valued readings; nil when absent.
	// Exactly one of Value and Timestamp is used per kind.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	Device Identity `json:"device"`
}

// Unknown reports whether the record currently has no reading.
// Unknown records keep their key so consumers can rely on key stability
// across transient data gaps at the remote source.
func (r Record) Unknown() bool {
	return r.Value == nil && r.Timestamp == nil
}

// Device classes shared by the integrations. These follow the Home
// Assistant sensor device class vocabulary.
const (
	DeviceClassBattery     = "battery"
	DeviceClassTemperature = "temperature"
	DeviceClassTimestamp   = "timestamp"
)

// Units of measurement.
const (
	UnitPercent    = "%"
	UnitCelsius    = "°C"
	UnitFahrenheit = "°F"
)
