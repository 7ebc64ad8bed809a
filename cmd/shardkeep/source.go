// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"

	"github.com/shardkeep/shardkeep/lib/cdc"
)

// sequentialSource adapts an *os.File to cdc.Source: each call reads up
// to requestedSize fresh bytes starting right after whatever was
// returned last call. This is the minimum sequential-file wrapper the
// cutter's Source contract needs; CDC.Cut always consumes a returned
// chunk in full before asking for more, so consumed is unused here.
type sequentialSource struct {
	file *os.File
	buf  []byte
	eof  bool
}

func newSequentialSource(file *os.File) *sequentialSource {
	return &sequentialSource{file: file}
}

func (s *sequentialSource) next(_ int, requestedSize int) ([]byte, bool) {
	if s.eof {
		return nil, false
	}
	if cap(s.buf) < requestedSize {
		s.buf = make([]byte, requestedSize)
	}
	n, err := io.ReadFull(s.file, s.buf[:requestedSize])
	if n == 0 {
		s.eof = true
		return nil, false
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		s.eof = true
	} else if err != nil {
		s.eof = true
		return nil, false
	}
	return s.buf[:n], true
}

// asCDCSource returns a cdc.Source bound to this sequential source.
func (s *sequentialSource) asCDCSource() cdc.Source {
	return s.next
}

// readFragmentAt re-reads size bytes at offset from the file named by
// path, for ResolveCollisions' drift-detection rehash. It reopens the
// file per call rather than keeping every walked file open for the
// run's duration — simpler, and ResolveCollisions runs once at the end
// after the sequential ingest pass has already closed every file.
func readFragmentAt(path string, scratch []byte, size uint32, offset int64) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	n, err := file.ReadAt(scratch[:size], offset)
	if err != nil && err != io.EOF {
		return false
	}
	return n == int(size)
}
