// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package strtable implements StringStorage: a deduplicated string
// store. Path components and other repeated strings gathered while
// walking a directory tree compress better, and compare faster, once
// each distinct value is stored exactly once and referenced by a
// small integer handle.
//
// Grounded directly on original_source/StringStorage.h: a
// GrowingMemoryPool backs the interned bytes and a SimdHash Index
// deduplicates by content, assigning each distinct string a stable,
// monotonically increasing handle. Add speculatively copies its
// argument into the arena under a checkpoint, then rolls the
// allocation back if an equal string was already present — the same
// "intern first, undo on duplicate" sequence StringStorage::GetOrAdd
// uses, adapted from its length-prefixed C-string encoding (forced by
// its hash functor needing a self-describing buffer) to Go's native
// comparable string type.
package strtable

import (
	"hash/maphash"
	"unsafe"

	"github.com/shardkeep/shardkeep/lib/memarena"
	"github.com/shardkeep/shardkeep/lib/simdhash"
)

// DefaultPageSize matches StringStorage's own default page size.
const DefaultPageSize = 1024 * 1024

// Handle identifies a string stored in a Table. The zero Handle is
// never issued by Add; it is safe to use as an explicit "absent"
// sentinel in a caller's own records.
type Handle uint32

// Table deduplicates strings by content and hands back a stable
// Handle for each distinct value. Not safe for concurrent use.
type Table struct {
	pool    *memarena.Pool
	seed    maphash.Seed
	strings *simdhash.Index[string]
}

// New returns an empty Table with StringStorage's default page size.
func New() *Table {
	return NewWithPageSize(DefaultPageSize)
}

// NewWithPageSize returns an empty Table whose arena grows in
// pageSize-sized pages (rounded per memarena.New).
func NewWithPageSize(pageSize int) *Table {
	t := &Table{
		pool: memarena.New(pageSize),
		seed: maphash.MakeSeed(),
	}
	t.strings = simdhash.NewIndex[string](t.hash, simdhash.Options{Mode: simdhash.Std})
	return t
}

func (t *Table) hash(s string) uint64 {
	return maphash.String(t.seed, s)
}

// Add stores s if not already present and returns its Handle.
// Repeated calls with an equal string return the same Handle.
func (t *Table) Add(s string) Handle {
	mark := t.pool.Checkpoint()
	idx, inserted := t.strings.Add(t.intern(s))
	if inserted {
		t.pool.DiscardCheckpoint()
	} else {
		t.pool.Rollback(mark)
	}
	return Handle(idx + 1)
}

// intern copies s into the arena and returns a string backed by that
// copy, so the Index never holds a reference into a caller-owned
// buffer.
func (t *Table) intern(s string) string {
	if len(s) == 0 {
		return ""
	}
	buf := t.pool.Alloc(len(s))
	copy(buf, s)
	return unsafe.String(&buf[0], len(buf))
}

// Get returns the string for a Handle previously returned by Add.
// Panics if handle is zero or was never issued by this Table.
func (t *Table) Get(handle Handle) string {
	idx := uint32(handle) - 1
	if handle == 0 || int(idx) >= t.strings.Count() {
		panic("strtable: invalid handle")
	}
	return t.strings.KeyAt(idx)
}

// Lookup returns the Handle for s without inserting it.
func (t *Table) Lookup(s string) (Handle, bool) {
	idx, ok := t.strings.TryGetIndex(s)
	if !ok {
		return 0, false
	}
	return Handle(idx + 1), true
}

// Count returns the number of distinct strings stored.
func (t *Table) Count() int {
	return t.strings.Count()
}

// Clear discards every stored string and releases the arena's pages.
func (t *Table) Clear() {
	t.pool.Clear()
	t.strings = simdhash.NewIndex[string](t.hash, simdhash.Options{Mode: simdhash.Std})
}
