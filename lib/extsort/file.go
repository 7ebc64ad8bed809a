// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extsort

import (
	"io"
	"os"
)

// File is the sequential file abstraction ExternalStructSort (and,
// built on top of it, the dedup engine's fi.log/lk.dat) consumes:
// sequential read and write through the shared cursor, absolute and
// relative seeking, a size query, and random read-at-offset.
type File interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.Seeker
	Size() (int64, error)
	Truncate(size int64) error
}

// OSFile adapts *os.File to File.
type OSFile struct {
	*os.File
}

// Open opens path for sequential scanning, matching spec.md §6's
// "opened with sequential-scan and no-buffering hints when available"
// — Go's os package does not expose posix_fadvise directly, so this
// is the closest portable approximation: a plain buffered-by-the-OS
// file handle.
func Open(path string) (OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	return OSFile{f}, err
}

// Create creates or truncates path for sequential writing.
func Create(path string) (OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	return OSFile{f}, err
}

// Size returns the current file size.
func (f OSFile) Size() (int64, error) {
	info, err := f.File.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
