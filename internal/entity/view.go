package entity

import "time"

// SnapshotSource is anything that can serve the current published
// snapshot without blocking. Implemented by poll.Coordinator.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// View is a read-only wrapper bound to one key in a source's current
// snapshot. It holds no state beyond the key it references; every
// accessor projects fields out of the source's published snapshot at
// access time.
type View struct {
	source SnapshotSource
	key    string
}

// NewView binds a view to one key of a snapshot source.
func NewView(source SnapshotSource, key string) View {
	return View{source: source, key: key}
}

// Key returns the key this view is bound to.
func (v View) Key() string {
	return v.key
}

// Record returns the current record for the view's key.
// Returns ErrKeyNotFound if the key is missing from the published
// snapshot, which should not happen given key stability.
func (v View) Record() (Record, error) {
	return v.source.Snapshot().Get(v.key)
}

// DisplayName returns the record's display name.
func (v View) DisplayName() (string, error) {
	rec, err := v.Record()
	if err != nil {
		return "", err
	}
	return rec.DisplayName, nil
}

// DeviceClass returns the record's device class.
func (v View) DeviceClass() (string, error) {
	rec, err := v.Record()
	if err != nil {
		return "", err
	}
	return rec.DeviceClass, nil
}

// Unit returns the record's unit of measurement.
func (v View) Unit() (string, error) {
	rec, err := v.Record()
	if err != nil {
		return "", err
	}
	return rec.Unit, nil
}

// Value returns the record's numeric value, nil when unknown.
func (v View) Value() (*float64, error) {
	rec, err := v.Record()
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

// Timestamp returns the record's time value, nil when unknown.
func (v View) Timestamp() (*time.Time, error) {
	rec, err := v.Record()
	if err != nil {
		return nil, err
	}
	return rec.Timestamp, nil
}

// DeviceIdentity returns the identity of the physical device the
// record belongs to.
func (v View) DeviceIdentity() (Identity, error) {
	rec, err := v.Record()
	if err != nil {
		return Identity{}, err
	}
	return rec.Device, nil
}
