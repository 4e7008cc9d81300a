package lsm

import "sort"

// State tags what a MemTable entry represents: a live value or a tombstone
// recording that the key was deleted after having existed (or never
// existed at all — a delete of an unknown key still leaves a tombstone).
type State int

const (
	// StatePresent means the entry carries a live value.
	StatePresent State = iota
	// StateTombstone means the key was deleted.
	StateTombstone
)

// Entry is a single MemTable slot: a key's current state and, when
// State is StatePresent, its value.
type Entry struct {
	State State
	Value []byte
}

// MemTable is an in-memory, ordered write buffer. It is not safe for
// concurrent use; callers serialize access the same way Store does.
type MemTable struct {
	data   map[string]Entry
	keys   []string
	sorted bool
	size   int
}

// NewMemTable creates a new, empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{
		data:   make(map[string]Entry),
		sorted: true,
	}
}

// Put inserts or overwrites key with value, returning the entry's previous
// state (and false if the key was never seen before).
func (mt *MemTable) Put(key, value []byte) (Entry, bool) {
	keyStr := string(key)
	old, existed := mt.data[keyStr]

	switch {
	case existed && old.State == StatePresent:
		mt.size = mt.size - len(old.Value) + len(value)
	case existed && old.State == StateTombstone:
		mt.size = mt.size - 1 + len(value)
	default:
		mt.size += len(key) + len(value)
		mt.keys = append(mt.keys, keyStr)
		mt.sorted = false
	}

	mt.data[keyStr] = Entry{State: StatePresent, Value: append(make([]byte, 0, len(value)), value...)}
	return old, existed
}

// Delete marks key as deleted, returning its previous state (and false if
// the key was never seen before).
func (mt *MemTable) Delete(key []byte) (Entry, bool) {
	keyStr := string(key)
	old, existed := mt.data[keyStr]

	switch {
	case existed && old.State == StatePresent:
		mt.size = mt.size - len(old.Value) + 1
	case existed && old.State == StateTombstone:
		// re-deleting an already-tombstoned key changes nothing
	default:
		mt.size += len(key) + 1
		mt.keys = append(mt.keys, keyStr)
		mt.sorted = false
	}

	mt.data[keyStr] = Entry{State: StateTombstone}
	return old, existed
}

// Get looks up key, reporting whether it has ever been recorded in this
// MemTable (present or tombstoned) and, if so, its current entry.
func (mt *MemTable) Get(key []byte) (Entry, bool) {
	e, ok := mt.data[string(key)]
	return e, ok
}

// Len returns the number of distinct keys recorded (present or
// tombstoned).
func (mt *MemTable) Len() int {
	return len(mt.keys)
}

// Size returns the approximate footprint in bytes: key+value bytes for
// live entries, 1 accounting byte for a tombstone in place of its value.
func (mt *MemTable) Size() int {
	return mt.size
}

// IsEmpty reports whether the MemTable holds no keys at all.
func (mt *MemTable) IsEmpty() bool {
	return len(mt.keys) == 0
}

// Clear removes all entries, resetting size to zero. Called after a
// successful flush.
func (mt *MemTable) Clear() {
	mt.data = make(map[string]Entry)
	mt.keys = mt.keys[:0]
	mt.size = 0
	mt.sorted = true
}

// KV pairs a key with its entry, in ascending key order, for iteration.
type KV struct {
	Key   []byte
	Entry Entry
}

// Iter returns every recorded key (present or tombstoned) in ascending
// lexicographic order. The returned slice is a point-in-time snapshot;
// subsequent mutation of the MemTable does not affect it.
func (mt *MemTable) Iter() []KV {
	if !mt.sorted {
		sort.Strings(mt.keys)
		mt.sorted = true
	}

	out := make([]KV, 0, len(mt.keys))
	for _, k := range mt.keys {
		out = append(out, KV{Key: []byte(k), Entry: mt.data[k]})
	}
	return out
}
