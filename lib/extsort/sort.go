// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extsort

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// PreSort transforms a record in place before a chunk is sorted.
// Implementations should treat rec as read-write; its length is
// always Sorter.RecordSize.
type PreSort func(rec []byte)

// PostSort receives one record, already in sorted order, instead of
// it being written back to disk. When AfterSort is set, ChunkSort
// never rewrites the chunk in place.
type PostSort func(rec []byte) error

// Sink receives one record during the final k-way merge, in
// non-decreasing order.
type Sink func(rec []byte) error

// Less reports whether record a sorts before record b. Both slices
// have length Sorter.RecordSize.
type Less func(a, b []byte) bool

// Sorter sorts a file of fixed-size records too large to hold in
// memory at once, via chunked in-memory sorts (ChunkSort) followed by
// a k-way merge (Sort).
type Sorter struct {
	RecordSize   int
	Less         Less
	MemoryBudget int64 // 0 means DefaultMemoryBudget
}

// New returns a Sorter for fixed-size records of recordSize bytes,
// ordered by less, using DefaultMemoryBudget.
func New(recordSize int, less Less) *Sorter {
	return &Sorter{RecordSize: recordSize, Less: less, MemoryBudget: DefaultMemoryBudget}
}

func (s *Sorter) recordCount(f File) (int64, error) {
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if size%int64(s.RecordSize) != 0 {
		return 0, fmt.Errorf("extsort: file size %d is not a multiple of record size %d", size, s.RecordSize)
	}
	return size / int64(s.RecordSize), nil
}

// ChunkSort streams file in bounded-memory chunks, applying preSort
// (if non-nil) to every record, stably sorting the chunk by s.Less,
// and then either:
//   - emitting every record through afterSort in sorted order (when
//     afterSort is non-nil), leaving the file's on-disk order
//     untouched, or
//   - overwriting the chunk on disk with its sorted order, but only
//     if preSort changed any record or the chunk was not already
//     sorted.
func (s *Sorter) ChunkSort(file File, preSort PreSort, afterSort PostSort) error {
	total, err := s.recordCount(file)
	if err != nil {
		return err
	}
	base := baseAlignment(s.RecordSize)
	if err := validateRecordCount(total, base); err != nil {
		return err
	}
	p := newPlan(total, s.RecordSize, s.MemoryBudget)

	for start := int64(0); start < total; start += p.chunkRecords {
		n := p.chunkRecords
		if start+n > total {
			n = total - start
		}
		if err := s.sortOneChunk(file, start, n, preSort, afterSort); err != nil {
			return fmt.Errorf("extsort: chunk at record %d: %w", start, err)
		}
	}
	return nil
}

func (s *Sorter) sortOneChunk(file File, startRecord, n int64, preSort PreSort, afterSort PostSort) error {
	rs := s.RecordSize
	buf := make([]byte, n*int64(rs))
	if _, err := file.ReadAt(buf, startRecord*int64(rs)); err != nil && err != io.EOF {
		return err
	}

	original := append([]byte(nil), buf...)

	if preSort != nil {
		for i := int64(0); i < n; i++ {
			preSort(buf[i*int64(rs) : (i+1)*int64(rs)])
		}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	recordAt := func(i int) []byte { return buf[int64(i)*int64(rs) : (int64(i)+1)*int64(rs)] }
	sort.SliceStable(indices, func(i, j int) bool {
		return s.Less(recordAt(indices[i]), recordAt(indices[j]))
	})

	alreadySorted := true
	for i, idx := range indices {
		if idx != i {
			alreadySorted = false
			break
		}
	}

	if afterSort != nil {
		for _, idx := range indices {
			if err := afterSort(recordAt(idx)); err != nil {
				return err
			}
		}
		return nil
	}

	if alreadySorted && bytes.Equal(buf, original) {
		return nil
	}

	sorted := make([]byte, len(buf))
	for outPos, idx := range indices {
		copy(sorted[int64(outPos)*int64(rs):], recordAt(idx))
	}
	if _, err := file.Seek(startRecord*int64(rs), io.SeekStart); err != nil {
		return err
	}
	_, err := file.Write(sorted)
	return err
}
