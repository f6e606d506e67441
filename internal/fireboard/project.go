package fireboard

import (
	"fmt"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// manufacturer is the fixed device identity manufacturer string.
const manufacturer = "Fireboard Labs"

// Project turns raw Fireboard device records into a snapshot.
//
// Pure and deterministic: the same input always yields the same snapshot.
// Per device it emits one battery record plus one record per channel; a
// channel with no matching latest-temperature reading keeps its key with
// a nil value rather than disappearing, so the key set is stable across
// transient data gaps. If two records produce the same key the later one
// in iteration order wins.
func Project(devices []Device) (entity.Snapshot, error) {
	snap := make(entity.Snapshot, len(devices)*2)

	for _, dev := range devices {
		if dev.HardwareID == "" {
			return nil, fmt.Errorf("%w: fireboard device %q has no hardware id", poll.ErrProjection, dev.UUID)
		}

		identity := entity.Identity{
			HardwareID:      dev.HardwareID,
			Name:            dev.Title,
			Manufacturer:    manufacturer,
			Model:           dev.Model,
			FirmwareVersion: dev.Version,
			MAC:             dev.DeviceLog.MacNIC,
		}

		// Temperature scale is a per-device flag applied to all channels.
		unit := entity.UnitCelsius
		if dev.DegreeType == degreeFahrenheit {
			unit = entity.UnitFahrenheit
		}

		battery := dev.LastBatteryReading * 100
		snap[entity.BatteryKey(dev.HardwareID)] = entity.Record{
			Key:         entity.BatteryKey(dev.HardwareID),
			Kind:        entity.KindBattery,
			DisplayName: dev.Title + " Battery",
			DeviceClass: entity.DeviceClassBattery,
			Unit:        entity.UnitPercent,
			Value:       &battery,
			Device:      identity,
		}

		for _, ch := range dev.Channels {
			key := entity.ChannelKey(dev.HardwareID, ch.Channel)
			rec := entity.Record{
				Key:         key,
				Kind:        entity.KindChannel,
				DisplayName: fmt.Sprintf("%s %s", dev.Title, ch.ChannelLabel),
				DeviceClass: entity.DeviceClassTemperature,
				Unit:        unit,
				Device:      identity,
			}
			if temp, ok := latestTemp(dev.LatestTemps, ch.Channel); ok {
				rec.Value = &temp
			}
			snap[key] = rec
		}
	}

	return snap, nil
}

// latestTemp finds the most recent reading for a channel index.
// A missing reading is a data gap, not an error.
func latestTemp(readings []Reading, channel int) (float64, bool) {
	for _, r := range readings {
		if r.Channel == channel {
			return r.Temp, true
		}
	}
	return 0, false
}
