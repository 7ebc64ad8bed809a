// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memarena implements GrowingMemoryPool: a bump-allocating
// arena of fixed-size pages with checkpoint/rollback. Allocations
// live until Clear; a checkpoint lets a caller speculatively allocate
// (e.g. a tentative collision-alias record) and revert cleanly on
// failure without walking back individual allocations.
//
// Modeled on the teacher's lib/artifactstore/cache_ring.go block/
// write-cursor bookkeeping, generalized from fixed disk blocks to
// growable in-memory pages with an explicit checkpoint stack.
package memarena

import "fmt"

// MinPageSize is the smallest page the pool will allocate.
const MinPageSize = 4096

// Pool is a bump allocator over a growing list of byte-slice pages.
// Not safe for concurrent use.
type Pool struct {
	pageSize int
	pages    [][]byte
	used     int // bytes used in the current (last) page

	checkpoints []checkpoint
}

type checkpoint struct {
	pageIndex int
	used      int
}

// New returns an empty Pool whose pages are at least MinPageSize and
// rounded down to the nearest 4 KiB at or below pageSize.
func New(pageSize int) *Pool {
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	pageSize -= pageSize % MinPageSize
	return &Pool{pageSize: pageSize}
}

// Alloc returns a zeroed byte slice of length n, backed by the
// arena's current page (or a freshly grown one if n does not fit in
// the remaining space of the current page, or n itself exceeds the
// page size, in which case a dedicated page is grown for it alone).
func (p *Pool) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if len(p.pages) == 0 || p.used+n > len(p.pages[len(p.pages)-1]) {
		p.growFor(n)
	}
	page := p.pages[len(p.pages)-1]
	buf := page[p.used : p.used+n]
	p.used += n
	return buf
}

func (p *Pool) growFor(n int) {
	size := p.pageSize
	if n > size {
		size = n + (MinPageSize - n%MinPageSize)
	}
	p.pages = append(p.pages, make([]byte, size))
	p.used = 0
}

// Checkpoint records the arena's current allocation frontier. Pass
// the returned value to Rollback to discard everything allocated
// since.
func (p *Pool) Checkpoint() int {
	p.checkpoints = append(p.checkpoints, checkpoint{pageIndex: len(p.pages) - 1, used: p.used})
	return len(p.checkpoints) - 1
}

// Rollback discards all allocations made since the checkpoint
// identified by mark, truncating both the page list and the current
// page's used counter. mark and every checkpoint taken after it
// become invalid.
func (p *Pool) Rollback(mark int) error {
	if mark < 0 || mark >= len(p.checkpoints) {
		return fmt.Errorf("memarena: rollback mark %d out of range [0,%d)", mark, len(p.checkpoints))
	}
	cp := p.checkpoints[mark]
	if cp.pageIndex < 0 {
		p.pages = nil
		p.used = 0
	} else {
		p.pages = p.pages[:cp.pageIndex+1]
		p.used = cp.used
	}
	p.checkpoints = p.checkpoints[:mark]
	return nil
}

// DiscardCheckpoint drops the most recent checkpoint without rolling
// back to it, once the caller no longer needs to revert to it.
func (p *Pool) DiscardCheckpoint() {
	if len(p.checkpoints) > 0 {
		p.checkpoints = p.checkpoints[:len(p.checkpoints)-1]
	}
}

// Clear releases every page, resetting the pool to empty. All
// previously returned allocations become invalid.
func (p *Pool) Clear() {
	p.pages = nil
	p.used = 0
	p.checkpoints = nil
}

// Allocated returns the total number of bytes currently allocated
// across all pages (excluding the unused tail of the current page).
func (p *Pool) Allocated() int {
	if len(p.pages) == 0 {
		return 0
	}
	total := 0
	for _, page := range p.pages[:len(p.pages)-1] {
		total += len(page)
	}
	return total + p.used
}
