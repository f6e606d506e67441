// Package entity defines the derived-record model shared by all
// integrations: Records keyed by stable identifiers, grouped under a
// physical-device Identity, collected into immutable Snapshots, and read
// through stateless Views.
//
// # Key stability
//
// A record's key is derived only from the device hardware id and a kind
// discriminator (battery, zero-padded channel index, attribute name).
// Re-fetching the same physical world never changes a key; a channel with
// a missing reading keeps its key with a nil value rather than vanishing
// from the snapshot. Consumers may therefore hold keys across refreshes.
//
// # Ownership
//
// Snapshots are built fresh each refresh cycle by an integration's
// projector, published atomically by the coordinator, and never mutated
// afterwards. Views hold a snapshot source and a key only; every accessor
// reads through to the currently published snapshot.
package entity
