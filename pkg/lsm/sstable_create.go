package lsm

import (
	"bufio"
	"encoding/binary"
	"os"
)

// Create writes entries (which must already be in ascending key order, as
// a MemTable.Iter() snapshot is) to a new SSTable file at path, then opens
// it for reading. id is the table's sequence number; a larger id marks a
// newer table.
func Create(path string, id int, entries []KV) (*SSTable, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, NewError("sstable.Create", AlreadyExists).Path(path).Cause(err).Err()
		}
		return nil, NewError("sstable.Create", Io).Path(path).Cause(err).Err()
	}

	writer := bufio.NewWriter(file)
	index := make([]IndexEntry, 0, len(entries))
	var offset uint64

	for _, kv := range entries {
		index = append(index, IndexEntry{Key: kv.Key, Offset: offset})

		n, err := writeUint64(writer, uint64(len(kv.Key)))
		if err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		if _, err := writer.Write(kv.Key); err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		offset += uint64(n) + uint64(len(kv.Key))

		if kv.Entry.State == StateTombstone {
			n, err := writeUint64(writer, TombstoneMarker)
			if err != nil {
				file.Close()
				return nil, wrapIOErr("sstable.Create", path, err)
			}
			offset += uint64(n)
			continue
		}

		n, err = writeUint64(writer, uint64(len(kv.Entry.Value)))
		if err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		if _, err := writer.Write(kv.Entry.Value); err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		offset += uint64(n) + uint64(len(kv.Entry.Value))
	}

	dataSize := offset
	indexStart := offset

	for _, e := range index {
		n, err := writeUint64(writer, uint64(len(e.Key)))
		if err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		if _, err := writer.Write(e.Key); err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		offset += uint64(n) + uint64(len(e.Key))

		n, err = writeUint64(writer, e.Offset)
		if err != nil {
			file.Close()
			return nil, wrapIOErr("sstable.Create", path, err)
		}
		offset += uint64(n)
	}

	indexSize := offset - indexStart
	metaStart := offset

	m := meta{NumEntries: uint64(len(entries)), DataSize: dataSize, IndexSize: indexSize}
	metaBytes, err := encodeMeta(m)
	if err != nil {
		file.Close()
		return nil, NewError("sstable.Create", Serialization).Path(path).Cause(err).Err()
	}
	if _, err := writer.Write(metaBytes); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}

	if err := binary.Write(writer, binary.BigEndian, Magic); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}
	if err := binary.Write(writer, binary.LittleEndian, uint64(len(metaBytes))); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}
	if err := binary.Write(writer, binary.LittleEndian, metaStart); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, wrapIOErr("sstable.Create", path, err)
	}

	return &SSTable{ID: id, path: path, file: file, index: index}, nil
}

func writeUint64(w *bufio.Writer, v uint64) (int, error) {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return 0, err
	}
	return 8, nil
}

func wrapIOErr(op, path string, err error) error {
	return NewError(op, Io).Path(path).Cause(err).Err()
}
