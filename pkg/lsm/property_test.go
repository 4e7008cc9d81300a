package lsm

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// newPropertyTestStore creates a temporary, disposable store for a single
// property test run.
func newPropertyTestStore(t *testing.T) *Store {
	s, err := Open(t.TempDir(), Options{CreateIfMissing: true})
	if err != nil {
		t.Skipf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStoreInvariants uses property-based testing to verify invariants
// that should hold for any sequence of Put/Delete/Flush operations.
func TestStoreInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("read your writes", prop.ForAll(
		func(key, value string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			if err := s.Put([]byte(key), []byte(value)); err != nil {
				return false
			}
			got, ok, err := s.Get([]byte(key))
			return err == nil && ok && string(got) == value
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("delete shadows put", prop.ForAll(
		func(key, value string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			if err := s.Put([]byte(key), []byte(value)); err != nil {
				return false
			}
			if err := s.Delete([]byte(key)); err != nil {
				return false
			}
			_, ok, err := s.Get([]byte(key))
			return err == nil && !ok
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("flush preserves every live key's value", prop.ForAll(
		func(keys []string, value string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			seen := map[string]bool{}
			for _, k := range keys {
				if err := s.Put([]byte(k), []byte(value)); err != nil {
					return false
				}
				seen[k] = true
			}
			if err := s.Flush(); err != nil {
				return false
			}
			for k := range seen {
				got, ok, err := s.Get([]byte(k))
				if err != nil || !ok || string(got) != value {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.Property("flush is a size-accounting reset", prop.ForAll(
		func(key, value string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			if err := s.Put([]byte(key), []byte(value)); err != nil {
				return false
			}
			if err := s.Flush(); err != nil {
				return false
			}
			stats := s.Stats()
			return stats.MemtableEntries == 0 && stats.MemtableBytes == 0
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("unknown key is always absent", prop.ForAll(
		func(key string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			_, ok, err := s.Get([]byte(key))
			return err == nil && !ok
		},
		gen.AlphaString(),
	))

	properties.Property("re-deleting an absent key is a no-op", prop.ForAll(
		func(key string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			if err := s.Delete([]byte(key)); err != nil {
				return false
			}
			if err := s.Delete([]byte(key)); err != nil {
				return false
			}
			_, ok, err := s.Get([]byte(key))
			return err == nil && !ok
		},
		gen.AlphaString(),
	))

	properties.Property("empty key and empty value round-trip like any other entry", prop.ForAll(
		func(value string) bool {
			s := newPropertyTestStore(t)
			defer s.Close()

			if err := s.Put([]byte(""), []byte(value)); err != nil {
				return false
			}
			got, ok, err := s.Get([]byte(""))
			if err != nil || !ok || string(got) != value {
				return false
			}

			if err := s.Put([]byte("nonempty"), []byte("")); err != nil {
				return false
			}
			got, ok, err = s.Get([]byte("nonempty"))
			return err == nil && ok && string(got) == ""
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestSSTableRoundTripProperty verifies that any sorted, deduplicated set
// of key/value pairs written to an SSTable reads back exactly as written.
func TestSSTableRoundTripProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("sstable get matches what was written", prop.ForAll(
		func(keys []string, value string) bool {
			dir := t.TempDir()
			sorted := append([]string(nil), keys...)
			sort.Strings(sorted)
			seen := map[string]bool{}
			var entries []KV
			for _, k := range sorted {
				if seen[k] {
					continue
				}
				seen[k] = true
				entries = append(entries, kv(k, value))
			}

			table, err := Create(SSTablePath(dir, 1), 1, entries)
			if err != nil {
				return false
			}
			defer table.Close()

			for _, e := range entries {
				result, got, err := table.Get(e.Key)
				if err != nil || result != Found || string(got) != value {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
