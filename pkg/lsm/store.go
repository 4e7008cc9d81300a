package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/kvlsm/pkg/logging"
	"github.com/dd0wney/kvlsm/pkg/metrics"
	"github.com/dd0wney/kvlsm/pkg/wal"
)

// DefaultMemtableFlushThreshold is the MemTable size, in bytes, past which
// ShouldFlush reports true under the default flush policy.
const DefaultMemtableFlushThreshold = 4 << 20 // 4 MiB

// Options configures a Store. The zero value is valid: it flushes at
// DefaultMemtableFlushThreshold and requires the directory to already
// exist.
type Options struct {
	// CreateIfMissing creates the data directory (and its WAL) if it does
	// not already exist. If false and the directory is absent, Open
	// returns an error with Kind DatabaseNotFound.
	CreateIfMissing bool
	// MemtableFlushThreshold is the MemTable byte size past which
	// ShouldFlush reports true. Zero uses DefaultMemtableFlushThreshold;
	// a negative value disables the hint (ShouldFlush always false).
	MemtableFlushThreshold int
	// Logger receives structured logs for every operation. Defaults to
	// logging.NewNopLogger() if nil.
	Logger logging.Logger
	// Metrics receives counters/gauges/histograms for every operation.
	// Defaults to metrics.NewRegistry() if nil.
	Metrics *metrics.Registry
	// NoSync disables the fsync that normally follows every WAL append,
	// trading the durability guarantee for throughput.
	NoSync bool
}

func (o Options) flushThreshold() int {
	if o.MemtableFlushThreshold == 0 {
		return DefaultMemtableFlushThreshold
	}
	if o.MemtableFlushThreshold < 0 {
		return 0
	}
	return o.MemtableFlushThreshold
}

// Store composes a MemTable, a WAL, and an ordered set of sealed SSTables
// into a durable, crash-recoverable ordered key-value store. Not safe for
// concurrent use: the caller serializes all access, including across
// goroutines.
//
// tables is kept newest-first: tables[0] is the most recently flushed
// SSTable. Get consults the MemTable, then tables in that order, stopping
// at the first Found or Deleted result so a tombstone in a newer table
// correctly shadows a value written to an older one.
type Store struct {
	dir      string
	opts     Options
	memtable *MemTable
	wal      *wal.WAL
	tables   []*SSTable
	nextID   int
	log      logging.Logger
	metrics  *metrics.Registry
}

// Open opens the store rooted at dir, replaying its WAL into a fresh
// MemTable and loading every existing SSTable in newest-to-oldest order.
func Open(dir string, opts Options) (*Store, error) {
	const op = "Store.Open"

	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, NewError(op, InvalidArgument).Path(dir).
			Cause(fmt.Errorf("not a directory")).Err()
	case os.IsNotExist(err):
		if !opts.CreateIfMissing {
			return nil, NewError(op, DatabaseNotFound).Path(dir).Err()
		}
		if err := wal.EnsureDir(dir); err != nil {
			return nil, NewError(op, Io).Path(dir).Cause(err).Err()
		}
	case err != nil:
		return nil, NewError(op, Io).Path(dir).Cause(err).Err()
	}

	ids, err := existingSSTableIDs(dir)
	if err != nil {
		return nil, NewError(op, Io).Path(dir).Cause(err).Err()
	}

	tables := make([]*SSTable, 0, len(ids))
	for _, id := range ids {
		t, err := openSSTable(dir, id)
		if err != nil {
			for _, opened := range tables {
				opened.Close()
			}
			return nil, err
		}
		tables = append(tables, t)
	}
	// newest id first, so Get's linear scan stops at the first shadowing
	// table without needing to know which ids are newest.
	sort.Sort(sort.Reverse(byID(tables)))

	walPath := filepath.Join(dir, "wal.log")
	freshWAL := !wal.FileExists(walPath)
	w, err := wal.Open(walPath)
	if err != nil {
		for _, t := range tables {
			t.Close()
		}
		return nil, NewError(op, Io).Path(walPath).Cause(err).Err()
	}
	if opts.NoSync {
		w.DisableSync()
	}

	mt := NewMemTable()
	replayErr := w.Replay(func(r wal.Record) error {
		switch r.Op {
		case wal.OpPut:
			mt.Put(r.Key, r.Value)
		case wal.OpDelete:
			mt.Delete(r.Key)
		}
		return nil
	})
	if replayErr != nil {
		w.Close()
		for _, t := range tables {
			t.Close()
		}
		return nil, NewError(op, Corrupt).Path(walPath).Cause(replayErr).Err()
	}

	nextID := 1
	if len(tables) > 0 {
		nextID = tables[0].ID + 1
	}

	log.Info("store opened", logging.Path(dir), logging.Count(len(tables)),
		logging.Int("memtable_entries", mt.Len()), logging.Bool("fresh_wal", freshWAL))
	reg.SetSSTableCount(len(tables))
	reg.SetMemtableSize(mt.Size())

	return &Store{
		dir:      dir,
		opts:     opts,
		memtable: mt,
		wal:      w,
		tables:   tables,
		nextID:   nextID,
		log:      log,
		metrics:  reg,
	}, nil
}

type byID []*SSTable

func (b byID) Len() int           { return len(b) }
func (b byID) Less(i, j int) bool { return b[i].ID < b[j].ID }
func (b byID) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

func existingSSTableIDs(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sst") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".sst"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func openSSTable(dir string, id int) (*SSTable, error) {
	return Open(SSTablePath(dir, id), id)
}

// Get looks up key, returning its value and true if a live entry is found,
// or (nil, false) if the key is absent or its newest entry is a
// tombstone. The MemTable is checked first, then sealed SSTables newest to
// oldest; the scan stops at the first table with any entry for key, since
// that table's state (live or tombstone) is authoritative over anything
// older.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	start := time.Now()

	if e, ok := s.memtable.Get(key); ok {
		if e.State == StateTombstone {
			s.recordGet(start, "miss")
			return nil, false, nil
		}
		s.recordGet(start, "hit")
		return e.Value, true, nil
	}

	for _, t := range s.tables {
		result, value, err := t.Get(key)
		if err != nil {
			s.recordGet(start, "error")
			return nil, false, NewError("Store.Get", Io).Path(t.Path()).Cause(err).Err()
		}
		switch result {
		case Found:
			s.recordGet(start, "hit")
			return value, true, nil
		case Deleted:
			s.recordGet(start, "miss")
			return nil, false, nil
		case NotFound:
			continue
		}
	}
	s.recordGet(start, "miss")
	return nil, false, nil
}

func (s *Store) recordGet(start time.Time, status string) {
	s.metrics.RecordOperation("get", status, time.Since(start))
}

// Put inserts or overwrites key with value. Empty keys and empty values
// are legal and round-trip like any other entry. The write is appended to
// the WAL and fsynced before the MemTable is mutated, so a crash can never
// lose an operation the caller was told succeeded. If the MemTable grows
// past the configured flush threshold afterward, Put flushes it to a new
// SSTable before returning.
func (s *Store) Put(key, value []byte) error {
	start := time.Now()
	if err := s.wal.Append(key, value); err != nil {
		s.metrics.RecordOperation("put", "error", time.Since(start))
		return NewError("Store.Put", Io).Path(s.dir).Cause(err).Err()
	}
	s.metrics.RecordWALBytesWritten(len(key) + len(value))
	s.memtable.Put(key, value)
	s.metrics.SetMemtableSize(s.memtable.Size())
	s.metrics.RecordOperation("put", "ok", time.Since(start))
	s.log.Debug("put", logging.Key(key), logging.Bytes(len(value)))

	if s.ShouldFlush() {
		return s.Flush()
	}
	return nil
}

// Delete marks key as deleted. Like Put, the WAL is appended and fsynced
// before the MemTable is mutated, and a MemTable past the flush threshold
// afterward is flushed before returning.
func (s *Store) Delete(key []byte) error {
	start := time.Now()
	if err := s.wal.AppendDelete(key); err != nil {
		s.metrics.RecordOperation("delete", "error", time.Since(start))
		return NewError("Store.Delete", Io).Path(s.dir).Cause(err).Err()
	}
	s.memtable.Delete(key)
	s.metrics.SetMemtableSize(s.memtable.Size())
	s.metrics.RecordTombstone()
	s.metrics.RecordOperation("delete", "ok", time.Since(start))
	s.log.Debug("delete", logging.Key(key), logging.Tombstone(true))

	if s.ShouldFlush() {
		return s.Flush()
	}
	return nil
}

// ShouldFlush reports whether the MemTable has grown past this store's
// configured flush threshold.
func (s *Store) ShouldFlush() bool {
	threshold := s.opts.flushThreshold()
	return threshold > 0 && s.memtable.Size() >= threshold
}

// Flush seals the current MemTable into a new, newest SSTable and then
// clears the WAL. The ordering matters for crash safety: if the process
// dies after the SSTable is durably written but before the WAL is
// cleared, the next Open replays the WAL into a MemTable that duplicates
// entries already sealed — harmless, since both Put and Delete are
// idempotent overwrites of the same key. The reverse ordering would lose
// data outright. A no-op if the MemTable is empty.
func (s *Store) Flush() error {
	const op = "Store.Flush"
	start := time.Now()
	if s.memtable.IsEmpty() {
		return nil
	}

	id := s.nextID
	path := SSTablePath(s.dir, id)
	table, err := Create(path, id, s.memtable.Iter())
	if err != nil {
		s.metrics.RecordOperation("flush", "error", time.Since(start))
		return err
	}

	if err := s.wal.Clear(); err != nil {
		table.Close()
		s.metrics.RecordOperation("flush", "error", time.Since(start))
		return NewError(op, Io).Path(s.dir).Cause(err).Err()
	}

	s.tables = append([]*SSTable{table}, s.tables...)
	s.nextID++
	entries := s.memtable.Len()
	s.memtable.Clear()

	s.metrics.SetSSTableCount(len(s.tables))
	s.metrics.SetMemtableSize(0)
	s.metrics.RecordFlush()
	s.metrics.RecordOperation("flush", "ok", time.Since(start))
	s.log.Info("memtable flushed", logging.SSTableID(id), logging.Path(path),
		logging.Count(entries))
	return nil
}

// Keys returns every live key in the store, merged from the MemTable and
// all sealed SSTables newest to oldest, in ascending sorted order.
// Tombstoned keys are omitted. This is a full scan intended for read-only
// browsing tools, not the hot path: a point Get stays O(log n) per table.
func (s *Store) Keys() ([]string, error) {
	seen := make(map[string]bool)
	var live []string

	for _, kv := range s.memtable.Iter() {
		k := string(kv.Key)
		seen[k] = true
		if kv.Entry.State == StatePresent {
			live = append(live, k)
		}
	}

	for _, t := range s.tables {
		for _, ie := range t.index {
			k := string(ie.Key)
			if seen[k] {
				continue
			}
			seen[k] = true
			result, _, err := t.Get(ie.Key)
			if err != nil {
				return nil, NewError("Store.Keys", Io).Path(t.Path()).Cause(err).Err()
			}
			if result == Found {
				live = append(live, k)
			}
		}
	}

	sort.Strings(live)
	return live, nil
}

// Stats summarizes the store's current in-memory and on-disk footprint.
type Stats struct {
	MemtableEntries int
	MemtableBytes   int
	SSTableCount    int
	// SSTableBytes is the total on-disk size of every sealed SSTable.
	// A table whose size can't be read is left out of the sum rather than
	// failing Stats.
	SSTableBytes int64
}

// Stats reports the store's current size.
func (s *Store) Stats() Stats {
	var sstableBytes int64
	for _, t := range s.tables {
		if n, err := wal.FileSize(t.Path()); err == nil {
			sstableBytes += n
		}
	}
	return Stats{
		MemtableEntries: s.memtable.Len(),
		MemtableBytes:   s.memtable.Size(),
		SSTableCount:    len(s.tables),
		SSTableBytes:    sstableBytes,
	}
}

// Close releases the WAL and every open SSTable file handle. It does not
// flush the MemTable; callers that want a durable shutdown call Flush
// first.
func (s *Store) Close() error {
	var firstErr error
	if err := s.wal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, t := range s.tables {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return NewError("Store.Close", Io).Path(s.dir).Cause(firstErr).Err()
	}
	return nil
}
