package wal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWAL_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if err := w.Append([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.AppendDelete([]byte("k1")); err != nil {
		t.Fatalf("append delete: %v", err)
	}

	var got []Record
	err = w.Replay(func(r Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Op != OpPut || !bytes.Equal(got[0].Key, []byte("k1")) || !bytes.Equal(got[0].Value, []byte("v1")) {
		t.Errorf("record 0 mismatch: %+v", got[0])
	}
	if got[2].Op != OpDelete || !bytes.Equal(got[2].Key, []byte("k1")) {
		t.Errorf("record 2 mismatch: %+v", got[2])
	}
}

func TestWAL_ReplayEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	n := 0
	if err := w.Replay(func(Record) error { n++; return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
}

func TestWAL_ReplayStopsCleanlyOnTruncatedTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := w.Append([]byte("complete"), []byte("record")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Simulate a crash mid-append: a valid length prefix followed by a
	// payload that never finished writing.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := f.Write([]byte{50, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3}); err != nil {
		t.Fatalf("write partial trailer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w2.Close()

	var got []Record
	err = w2.Replay(func(r Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("expected benign replay termination, got error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly the one complete record, got %d", len(got))
	}
}

func TestWAL_ReplayStopsCleanlyOnPartialLengthPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := w.Append([]byte("a"), []byte("b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := f.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write partial length prefix: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	defer w2.Close()

	n := 0
	if err := w2.Replay(func(Record) error { n++; return nil }); err != nil {
		t.Fatalf("expected benign termination, got: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestWAL_ReplayReportsCorruptChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := w.Append([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Corrupt a byte inside the record payload (past the 8-byte length
	// prefix), leaving the length intact so the record is read in full
	// and only its checksum fails.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[8] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	err = w2.Replay(func(Record) error { return nil })
	if err == nil {
		t.Fatal("expected corrupt-checksum replay to return an error")
	}
}

func TestWAL_ClearResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	if err := w.Append([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	n := 0
	if err := w.Replay(func(Record) error { n++; return nil }); err != nil {
		t.Fatalf("replay after clear: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no records after clear, got %d", n)
	}

	if err := w.Append([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
}

func TestWAL_DisableSyncStillReplays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	w.DisableSync()

	if err := w.Append([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []Record
	if err := w.Replay(func(r Record) error { got = append(got, r); return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Key, []byte("k")) {
		t.Fatalf("expected 1 record for k, got %+v", got)
	}
}
