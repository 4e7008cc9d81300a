package lsm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

// Open opens an existing SSTable, reading its footer and index block into
// memory so Get can binary-search without touching disk again.
func Open(path string, id int) (*SSTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, NewError("sstable.Open", Io).Path(path).Cause(err).Err()
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Open", path, err)
	}
	fileSize := info.Size()
	if fileSize < FooterSize {
		file.Close()
		return nil, NewError("sstable.Open", Corrupt).Path(path).
			Cause(io.ErrUnexpectedEOF).Err()
	}

	footer := make([]byte, FooterSize)
	if _, err := file.ReadAt(footer, fileSize-FooterSize); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Open", path, err)
	}

	magic := binary.BigEndian.Uint64(footer[0:8])
	metaLen := binary.LittleEndian.Uint64(footer[8:16])
	metaOffset := binary.LittleEndian.Uint64(footer[16:24])

	footerStart := uint64(fileSize) - FooterSize
	if magic != Magic {
		file.Close()
		return nil, NewError("sstable.Open", Corrupt).Path(path).
			Cause(errCorruptf("bad magic number: %#x", magic)).Err()
	}
	if metaLen == 0 || metaLen > maxMetaLen || metaOffset >= footerStart ||
		metaOffset+metaLen > footerStart {
		file.Close()
		return nil, NewError("sstable.Open", Corrupt).Path(path).
			Cause(errCorruptf("invalid metadata bounds: offset=%d len=%d", metaOffset, metaLen)).Err()
	}

	metaBuf := make([]byte, metaLen)
	if _, err := file.ReadAt(metaBuf, int64(metaOffset)); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Open", path, err)
	}
	m, err := decodeMeta(metaBuf)
	if err != nil {
		file.Close()
		return nil, NewError("sstable.Open", Deserialization).Path(path).Cause(err).Err()
	}

	indexStart := m.DataSize
	indexEnd := metaOffset
	if indexEnd < indexStart {
		file.Close()
		return nil, NewError("sstable.Open", Corrupt).Path(path).
			Cause(errCorruptf("index section bounds invalid: start=%d end=%d", indexStart, indexEnd)).Err()
	}

	index, err := readIndexBlock(file, int64(indexStart), int64(indexEnd))
	if err != nil {
		file.Close()
		return nil, NewError("sstable.Open", Corrupt).Path(path).Cause(err).Err()
	}

	return &SSTable{ID: id, path: path, file: file, index: index}, nil
}

func readIndexBlock(r io.ReaderAt, start, end int64) ([]IndexEntry, error) {
	buf := make([]byte, end-start)
	if _, err := r.ReadAt(buf, start); err != nil {
		return nil, err
	}

	var entries []IndexEntry
	pos := 0
	for pos < len(buf) {
		if pos+8 > len(buf) {
			return nil, errCorruptf("truncated index entry at %d", pos)
		}
		keyLen := int(binary.LittleEndian.Uint64(buf[pos : pos+8]))
		pos += 8
		if pos+keyLen+8 > len(buf) {
			return nil, errCorruptf("truncated index entry at %d", pos)
		}
		key := append([]byte(nil), buf[pos:pos+keyLen]...)
		pos += keyLen
		offset := binary.LittleEndian.Uint64(buf[pos : pos+8])
		pos += 8
		entries = append(entries, IndexEntry{Key: key, Offset: offset})
	}
	return entries, nil
}

// Get looks up key in this table, returning Found with its value, Deleted
// if the key's entry here is a tombstone, or NotFound if this table has
// no entry for key at all.
func (t *SSTable) Get(key []byte) (LookupResult, []byte, error) {
	i := sort.Search(len(t.index), func(i int) bool {
		return bytes.Compare(t.index[i].Key, key) >= 0
	})
	if i >= len(t.index) || !bytes.Equal(t.index[i].Key, key) {
		return NotFound, nil, nil
	}

	entryOffset := int64(t.index[i].Offset)

	var keyLenBuf [8]byte
	if _, err := t.file.ReadAt(keyLenBuf[:], entryOffset); err != nil {
		return NotFound, nil, wrapIOErr("sstable.Get", t.path, err)
	}
	keyLen := int64(binary.LittleEndian.Uint64(keyLenBuf[:]))

	var valLenBuf [8]byte
	if _, err := t.file.ReadAt(valLenBuf[:], entryOffset+8+keyLen); err != nil {
		return NotFound, nil, wrapIOErr("sstable.Get", t.path, err)
	}
	valLen := binary.LittleEndian.Uint64(valLenBuf[:])

	if valLen == TombstoneMarker {
		return Deleted, nil, nil
	}

	value := make([]byte, valLen)
	if valLen > 0 {
		if _, err := t.file.ReadAt(value, entryOffset+8+keyLen+8); err != nil {
			return NotFound, nil, wrapIOErr("sstable.Get", t.path, err)
		}
	}
	return Found, value, nil
}

func errCorruptf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
