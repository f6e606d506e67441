package entity

import (
	"fmt"
	"sort"
)

// Snapshot is a keyed set of Records representing the world as of the
// last successful refresh.
//
// A Snapshot is immutable once published: the coordinator builds a fresh
// one each refresh cycle and replaces the published reference atomically.
// Readers receive a shared reference to the published snapshot only,
// never one under construction, so no copying or locking is needed on
// the read path.
type Snapshot map[string]Record

// Get returns the record for the given key.
// Returns ErrKeyNotFound when the key is absent; given key stability this
// indicates a caller contract violation, not a data gap.
func (s Snapshot) Get(key string) (Record, error) {
	rec, ok := s[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return rec, nil
}

// Keys returns the snapshot's keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records returns the snapshot's records ordered by key.
func (s Snapshot) Records() []Record {
	records := make([]Record, 0, len(s))
	for _, k := range s.Keys() {
		records = append(records, s[k])
	}
	return records
}
