// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extsort

import "fmt"

// DefaultMemoryBudget is the default in-memory working set for a
// single chunk, 256 MiB.
const DefaultMemoryBudget int64 = 256 * 1024 * 1024

// pageSize is the disk page alignment chunk boundaries are chosen
// against.
const pageSize = 4096

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// baseAlignment returns the smallest multiple of recordSize divisible
// by 4096, expressed as a record count (records-per-4-KiB-page, or a
// multiple thereof when recordSize itself does not divide evenly into
// a page).
func baseAlignment(recordSize int) int {
	l := recordSize / gcd(recordSize, pageSize) * pageSize
	return l / recordSize
}

// plan holds the derived chunking parameters for one sort run.
type plan struct {
	recordSize   int
	base         int   // baseAlignment, in records
	chunkRecords int64 // records per chunk
	preloadBytes int64 // window size per chunk during the merge pass
}

// newPlan derives chunk and preload sizes per §4.3: the chunk size is
// the largest multiple of base not exceeding memoryBudget/recordSize
// such that the last chunk would be at least 90% full, falling back
// to a single base-aligned chunk otherwise. Preload size is 1/1024 of
// the memory budget, clamped up to one base-aligned unit.
func newPlan(totalRecords int64, recordSize int, memoryBudget int64) plan {
	if memoryBudget <= 0 {
		memoryBudget = DefaultMemoryBudget
	}
	base := baseAlignment(recordSize)
	maxChunk := (memoryBudget / int64(recordSize) / int64(base)) * int64(base)
	if maxChunk < int64(base) {
		maxChunk = int64(base)
	}

	chunk := int64(base)
	for c := maxChunk; c >= int64(base); c -= int64(base) {
		lastChunk := totalRecords % c
		if totalRecords <= c || lastChunk == 0 || float64(lastChunk) >= 0.9*float64(c) {
			chunk = c
			break
		}
	}

	preload := memoryBudget / 1024
	preloadRecords := preload / int64(recordSize)
	if preloadRecords < int64(base) {
		preloadRecords = int64(base)
	}

	return plan{
		recordSize:   recordSize,
		base:         base,
		chunkRecords: chunk,
		preloadBytes: preloadRecords * int64(recordSize),
	}
}

// validateRecordCount asserts the precondition that a file's record
// count is a multiple of baseAlignment; a violation indicates the
// file was not produced by this package's own writers.
func validateRecordCount(totalRecords int64, base int) error {
	if totalRecords%int64(base) != 0 {
		return fmt.Errorf("extsort: record count %d is not a multiple of base alignment %d", totalRecords, base)
	}
	return nil
}
