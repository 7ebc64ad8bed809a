// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extsort

import (
	"container/heap"
	"io"
)

// chunkCursor tracks one already-sorted on-disk chunk's progress
// through the k-way merge: a preloaded window of records plus enough
// bookkeeping to refill the window from disk when it runs dry.
type chunkCursor struct {
	window    []byte // preloaded records, windowPos..len(window) still unread
	windowPos int

	nextFilePos int64 // file record offset of the first unread record beyond window
	chunkEnd    int64 // file record offset one past this chunk's last record
	recordSize  int
}

func (c *chunkCursor) head() []byte {
	return c.window[c.windowPos : c.windowPos+c.recordSize]
}

func (c *chunkCursor) empty() bool {
	return c.windowPos >= len(c.window)
}

func (c *chunkCursor) advance() {
	c.windowPos += c.recordSize
}

// refill loads the next preload window for this chunk from file.
// Reports whether any records were loaded.
func (c *chunkCursor) refill(file File, preloadBytes int64) (bool, error) {
	remaining := c.chunkEnd - c.nextFilePos
	if remaining <= 0 {
		return false, nil
	}
	want := preloadBytes / int64(c.recordSize)
	if want > remaining {
		want = remaining
	}
	buf := make([]byte, want*int64(c.recordSize))
	if _, err := file.ReadAt(buf, c.nextFilePos*int64(c.recordSize)); err != nil && err != io.EOF {
		return false, err
	}
	c.window = buf
	c.windowPos = 0
	c.nextFilePos += want
	return true, nil
}

// cursorHeap is a container/heap over a set of chunkCursors, ordered
// by each cursor's current head record.
type cursorHeap struct {
	cursors []*chunkCursor
	less    Less
}

func (h *cursorHeap) Len() int { return len(h.cursors) }
func (h *cursorHeap) Less(i, j int) bool {
	return h.less(h.cursors[i].head(), h.cursors[j].head())
}
func (h *cursorHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }
func (h *cursorHeap) Push(x any)    { h.cursors = append(h.cursors, x.(*chunkCursor)) }
func (h *cursorHeap) Pop() any {
	n := len(h.cursors)
	c := h.cursors[n-1]
	h.cursors = h.cursors[:n-1]
	return c
}

// Sort performs the final k-way merge of a file previously sorted
// chunk-by-chunk with ChunkSort (same RecordSize and MemoryBudget),
// emitting every record to sink exactly once in non-decreasing order.
func (s *Sorter) Sort(file File, sink Sink) error {
	total, err := s.recordCount(file)
	if err != nil {
		return err
	}
	base := baseAlignment(s.RecordSize)
	if err := validateRecordCount(total, base); err != nil {
		return err
	}
	p := newPlan(total, s.RecordSize, s.MemoryBudget)

	h := &cursorHeap{less: s.Less}
	for start := int64(0); start < total; start += p.chunkRecords {
		end := start + p.chunkRecords
		if end > total {
			end = total
		}
		c := &chunkCursor{nextFilePos: start, chunkEnd: end, recordSize: s.RecordSize}
		loaded, err := c.refill(file, p.preloadBytes)
		if err != nil {
			return err
		}
		if loaded {
			h.cursors = append(h.cursors, c)
		}
	}
	heap.Init(h)

	for h.Len() > 0 {
		c := h.cursors[0]
		if err := sink(c.head()); err != nil {
			return err
		}
		c.advance()
		if c.empty() {
			loaded, err := c.refill(file, p.preloadBytes)
			if err != nil {
				return err
			}
			if !loaded {
				heap.Pop(h)
				continue
			}
		}
		heap.Fix(h, 0)
	}
	return nil
}
