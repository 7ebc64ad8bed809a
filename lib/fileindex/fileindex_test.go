// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fileindex

import (
	"bytes"
	"io"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	want := map[uint32][]uint32{
		0: {1, 2, 3},
		1: {3, 4},
		2: {5},
	}
	if err := w.Put(0, want[0]); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(1, want[1]); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(2, want[2]); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for fileIndex, keys := range want {
		gotKeys, ok := got[fileIndex]
		if !ok {
			t.Fatalf("missing record for file %d", fileIndex)
		}
		if len(gotKeys) != len(keys) {
			t.Fatalf("file %d: got %v, want %v", fileIndex, gotKeys, keys)
		}
		for i := range keys {
			if gotKeys[i] != keys[i] {
				t.Fatalf("file %d key %d: got %d, want %d", fileIndex, i, gotKeys[i], keys[i])
			}
		}
	}
}

func TestWriterPutCopiesKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	keys := []uint32{1, 2, 3}
	if err := w.Put(0, keys); err != nil {
		t.Fatal(err)
	}
	keys[0] = 99 // mutate after Put; the persisted record must not see this

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != 1 {
		t.Fatalf("record captured a live reference to the caller's slice: got %d, want 1", got[0][0])
	}
}

func TestReaderNextEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() on empty stream = %v, want io.EOF", err)
	}
}

func TestRecordValidateRejectsDroppedKey(t *testing.T) {
	rec := Record{Version: 1, FileIndex: 0, Keys: []uint32{1, 0, 2}}
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected Validate to reject a record containing a dropped (0) key")
	}
}

func TestRecordValidateRejectsEmptyKeys(t *testing.T) {
	rec := Record{Version: 1, FileIndex: 0, Keys: nil}
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected Validate to reject a record with no keys")
	}
}

func TestSinkMatchesGetFileIndexInfoSignature(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	sink := w.Sink()

	if err := sink(7, []uint32{1}); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got[7]) != 1 || got[7][0] != 1 {
		t.Fatalf("got %v", got)
	}
}
