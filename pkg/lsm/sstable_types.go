package lsm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// SSTable file format, footer-terminated so a reader never needs to know
// the layout ahead of time:
//
//	[data block: entry*]
//	[index block: index-entry*]
//	[metadata block: num_entries(8) | data_size(8) | index_size(8), big-endian]
//	[footer: magic(8, big-endian) | meta_len(8, little-endian) | meta_offset(8, little-endian)]
//
// An entry is [key_len(8,LE)][key][value_len(8,LE)][value], where
// value_len == TombstoneMarker (2^64-1) marks a deletion and omits the
// value bytes entirely. An index entry is
// [key_len(8,LE)][key][entry_offset(8,LE)], recorded in the same order the
// entries were written (ascending key order, since write input is always
// a sorted snapshot), which lets lookup binary-search it.
const (
	// Magic identifies the file as an SSTable in this format.
	Magic uint64 = 0x1234567890ABCDEF
	// FooterSize is the fixed size in bytes of the trailing footer.
	FooterSize = 24
	// TombstoneMarker is the sentinel value_len denoting a deleted key.
	TombstoneMarker uint64 = 1<<64 - 1
	// maxMetaLen bounds the metadata block length accepted on open, as a
	// basic sanity check against a corrupt or truncated file.
	maxMetaLen = 1024
)

// IndexEntry maps a key to its byte offset in the data block.
type IndexEntry struct {
	Key    []byte
	Offset uint64
}

// meta is the fixed-width metadata block written just before the footer.
type meta struct {
	NumEntries uint64
	DataSize   uint64
	IndexSize  uint64
}

// LookupResult reports what an SSTable lookup discovered about a key: it
// must be distinguished from NotFound so a tombstone in a newer table can
// shadow a value in an older one during the store's read path.
type LookupResult int

const (
	// NotFound means the key has no entry at all in this table.
	NotFound LookupResult = iota
	// Found means the key has a live value in this table.
	Found
	// Deleted means the key's entry in this table is a tombstone.
	Deleted
)

// SSTable is an immutable, sorted, on-disk table. A single *os.File is
// held open for the table's lifetime; the index block is loaded into
// memory at open/create time to make Get a binary search.
type SSTable struct {
	ID    int
	path  string
	file  *os.File
	index []IndexEntry
}

// Path returns the filesystem path backing this table.
func (t *SSTable) Path() string {
	return t.path
}

// Close releases the table's file handle.
func (t *SSTable) Close() error {
	return t.file.Close()
}

// encodeMeta serializes the metadata block as three fixed-width,
// big-endian uint64s, matching the wire format described above.
func encodeMeta(m meta) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range []uint64{m.NumEntries, m.DataSize, m.IndexSize} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeMeta parses a metadata block encoded by encodeMeta.
func decodeMeta(b []byte) (meta, error) {
	if len(b) != 24 {
		return meta{}, errCorruptf("metadata block has unexpected length %d", len(b))
	}
	return meta{
		NumEntries: binary.BigEndian.Uint64(b[0:8]),
		DataSize:   binary.BigEndian.Uint64(b[8:16]),
		IndexSize:  binary.BigEndian.Uint64(b[16:24]),
	}, nil
}

// SSTablePath returns the conventional on-disk filename for table id
// within dir: zero-padded to 20 digits so lexicographic and numeric
// ordering agree.
func SSTablePath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%020d.sst", id))
}
