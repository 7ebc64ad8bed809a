// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fileindex persists the per-file key lists GetFileIndexInfo
// produces, so a second process can enumerate which canonical
// dictionary entries compose an archived file without re-running
// dedup resolution.
//
// Records are written as a CBOR sequence (RFC 8949 §4.2, Core
// Deterministic Encoding), one record per Put call, rather than as a
// single top-level array: a single
// archival run can produce millions of files, and a sequence streams
// through a single writer/reader pair without holding the whole index
// in memory.
package fileindex

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Version is the current record format version.
const Version = 1

// Record maps one archived file to the ordered list of canonical
// dictionary keys that reconstruct it. A key of 0 never appears here —
// GetFileIndexInfo never calls its sink for a file with a dropped
// fragment, so a persisted Record is always complete.
type Record struct {
	Version   int      `cbor:"version"`
	FileIndex uint32   `cbor:"file_index"`
	Keys      []uint32 `cbor:"keys"`
}

// Validate checks that a Record is internally consistent.
func (r *Record) Validate() error {
	if r.Version < 1 {
		return fmt.Errorf("fileindex: version %d is invalid (minimum 1)", r.Version)
	}
	if len(r.Keys) == 0 {
		return fmt.Errorf("fileindex: file %d has no keys", r.FileIndex)
	}
	for i, k := range r.Keys {
		if k == 0 {
			return fmt.Errorf("fileindex: file %d key %d is 0 (dropped fragment should never be persisted)", r.FileIndex, i)
		}
	}
	return nil
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fileindex: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fileindex: CBOR decoder initialization failed: " + err.Error())
	}
}

// Writer appends Records to an underlying stream as a CBOR sequence.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter returns a Writer that appends to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: encMode.NewEncoder(w)}
}

// Put writes one file's key list. keys is copied into the record
// before encoding; the caller may reuse its backing slice afterward.
func (w *Writer) Put(fileIndex uint32, keys []uint32) error {
	rec := Record{
		Version:   Version,
		FileIndex: fileIndex,
		Keys:      append([]uint32(nil), keys...),
	}
	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("fileindex: encoding record for file %d: %w", fileIndex, err)
	}
	return nil
}

// Sink returns a func matching dedup's GetFileIndexInfo sink
// signature, writing every call straight through to w.
func (w *Writer) Sink() func(fileIndex uint32, keys []uint32) error {
	return w.Put
}

// Reader decodes a CBOR sequence of Records.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: decMode.NewDecoder(r)}
}

// Next decodes the next Record, returning io.EOF once the stream is
// exhausted.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("fileindex: decoding record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReadAll decodes every Record in r into a map keyed by FileIndex.
func ReadAll(r io.Reader) (map[uint32][]uint32, error) {
	reader := NewReader(r)
	out := make(map[uint32][]uint32)
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out[rec.FileIndex] = rec.Keys
	}
}
