package hass

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
)

// discoveryConfig is a Home Assistant MQTT discovery payload for one
// sensor, using the abbreviated keys HA documents for discovery.
type discoveryConfig struct {
	Name                 string     `json:"name"`
	UniqueID             string     `json:"uniq_id"`
	ObjectID             string     `json:"obj_id"`
	StateTopic           string     `json:"stat_t"`
	DeviceClass          string     `json:"dev_cla,omitempty"`
	UnitOfMeasurement    string     `json:"unit_of_meas,omitempty"`
	AvailabilityTopic    string     `json:"avty_t"`
	AvailabilityTemplate string     `json:"avty_tpl"`
	Device               deviceInfo `json:"dev"`
}

// deviceInfo groups sensors under one device in the HA registry.
type deviceInfo struct {
	Identifiers  []string   `json:"ids"`
	Name         string     `json:"name"`
	Manufacturer string     `json:"mf,omitempty"`
	Model        string     `json:"mdl,omitempty"`
	SWVersion    string     `json:"sw,omitempty"`
	Connections  [][]string `json:"cns,omitempty"`
}

// configTopic is where the retained discovery config for a record lives.
func (b *Bridge) configTopic(instance, key string) string {
	return fmt.Sprintf("%s/sensor/%s/%s_%s/config", b.discoveryPrefix, b.nodeID, instance, key)
}

// stateTopic carries the record's current value.
func (b *Bridge) stateTopic(instance, key string) string {
	return fmt.Sprintf("%s/%s/%s/state", b.baseTopic, instance, key)
}

// buildDiscovery maps one record to its HA discovery payload.
func (b *Bridge) buildDiscovery(instance string, rec entity.Record) discoveryConfig {
	cfg := discoveryConfig{
		Name:                 rec.DisplayName,
		UniqueID:             fmt.Sprintf("%s_%s_%s", b.nodeID, instance, rec.Key),
		ObjectID:             fmt.Sprintf("%s_%s", instance, rec.Key),
		StateTopic:           b.stateTopic(instance, rec.Key),
		DeviceClass:          rec.DeviceClass,
		UnitOfMeasurement:    rec.Unit,
		AvailabilityTopic:    b.availabilityTopic,
		AvailabilityTemplate: "{{ value_json.status }}",
		Device: deviceInfo{
			Identifiers:  []string{fmt.Sprintf("%s_%s", instance, rec.Device.HardwareID)},
			Name:         rec.Device.Name,
			Manufacturer: rec.Device.Manufacturer,
			Model:        rec.Device.Model,
			SWVersion:    rec.Device.FirmwareVersion,
		},
	}
	if rec.Device.MAC != "" {
		cfg.Device.Connections = [][]string{{"mac", rec.Device.MAC}}
	}
	return cfg
}

// statePayload renders a record's value for the state topic. Records
// without a reading publish "unknown", which HA maps to an unknown
// sensor state without removing the entity.
func statePayload(rec entity.Record) string {
	switch {
	case rec.Timestamp != nil:
		return rec.Timestamp.Format(time.RFC3339)
	case rec.Value != nil:
		return strconv.FormatFloat(*rec.Value, 'f', -1, 64)
	default:
		return "unknown"
	}
}
