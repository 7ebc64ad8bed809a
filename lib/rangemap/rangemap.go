// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rangemap implements RangeMapper, the two-queue provisional-
// to-final index remapping table LargeKeyStorage uses to translate a
// fragment's provisional skIndex (assigned by one of the low/high
// selectors between flushes) into its final canonical realIndex once
// GetLargeKeys has drained that selector into the dictionary.
//
// Modeled in spirit on the teacher's lib/artifactstore/cache_ring.go
// generation-counter discipline ("stale entries drop off the head"),
// rebuilt here around spec.md §4.5's exact two-FIFO-queue semantics.
package rangemap

import "fmt"

// rangeEntry is one remap instruction: values in
// [sourceBegin, sourceBegin+size) remap to [targetBegin, targetBegin+size).
// Remap is strictly downward: targetBegin+size <= sourceBegin.
type rangeEntry struct {
	sourceBegin uint32
	targetBegin uint32
	size        uint32
}

func (r rangeEntry) contains(x uint32) bool {
	return x >= r.sourceBegin && x < r.sourceBegin+r.size
}

func (r rangeEntry) stale(x uint32) bool {
	return r.sourceBegin+r.size <= x
}

// Mapper holds the low and high FIFO queues of pending remap ranges.
// Entries must be appended to each queue in non-decreasing source
// order; the two queues may interleave freely with each other.
// Mapper is not safe for concurrent use.
type Mapper struct {
	low  []rangeEntry
	high []rangeEntry
}

// New returns an empty Mapper.
func New() *Mapper {
	return &Mapper{}
}

// AddRange appends a remap instruction to the low or high queue.
func (m *Mapper) AddRange(isLow bool, source, target, size uint32) {
	e := rangeEntry{sourceBegin: source, targetBegin: target, size: size}
	if isLow {
		m.low = append(m.low, e)
	} else {
		m.high = append(m.high, e)
	}
}

// Remap translates a provisional index x into its final value: pops
// stale ranges from the head of both queues (those whose source range
// ends at or before x), then returns target+(x-source) if x falls
// inside the current high-queue head range, else the same check
// against the low-queue head, else x unchanged.
func (m *Mapper) Remap(x uint32) uint32 {
	for len(m.high) > 0 && m.high[0].stale(x) {
		m.high = m.high[1:]
	}
	for len(m.low) > 0 && m.low[0].stale(x) {
		m.low = m.low[1:]
	}

	if len(m.high) > 0 && m.high[0].contains(x) {
		r := m.high[0]
		return r.targetBegin + (x - r.sourceBegin)
	}
	if len(m.low) > 0 && m.low[0].contains(x) {
		r := m.low[0]
		return r.targetBegin + (x - r.sourceBegin)
	}
	return x
}

// Validate asserts both queues are fully consumed once the two
// sentinel values beyond the last live index of each queue have been
// fed through Remap. Call after the final Remap of a run to detect an
// AddRange that was never drained — an invariant violation indicating
// a bug in how batches were registered.
func (m *Mapper) Validate(finalLow, finalHigh uint32) error {
	m.Remap(finalLow)
	m.Remap(finalHigh)
	if len(m.low) != 0 {
		return fmt.Errorf("rangemap: %d low range(s) left unconsumed after final sentinel %d", len(m.low), finalLow)
	}
	if len(m.high) != 0 {
		return fmt.Errorf("rangemap: %d high range(s) left unconsumed after final sentinel %d", len(m.high), finalHigh)
	}
	return nil
}
