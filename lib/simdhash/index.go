// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

// Index is an open-addressing set of unique keys of type K that
// additionally assigns each newly inserted key a stable, monotonically
// increasing integer: its realIndex, equal to the number of distinct
// keys inserted before it (the first insert gets 0, the second 1, and
// so on). realIndex is stable across any number of triggered rehashes
// — it is a property of the key, not of its current probe slot — and
// iteration visits keys in insertion (realIndex) order, since keys are
// additionally stored densely in a paged append-only array.
type Index[K comparable] struct {
	t    *ctrlTable
	hash func(K) uint64

	// dense holds every inserted key in first-insertion order; its
	// length is the table's Count(). dense[i] has realIndex i.
	dense []K

	// real runs parallel to t.ctrl: real[slot] is the realIndex of
	// the key occupying slot, valid only where ctrl[slot] is a tag.
	real []uint32
}

// NewIndex returns an empty Index.
func NewIndex[K comparable](hash func(K) uint64, opts Options) *Index[K] {
	t := newCtrlTable(opts.InitialCapacity, opts.Mode, opts.MaxLoadFactor, opts.FitMemory)
	return &Index[K]{
		t:    t,
		hash: hash,
		real: make([]uint32, len(t.ctrl)),
	}
}

// Add inserts k if not already present, assigning it the next
// realIndex. Returns the key's realIndex (new or existing) and
// whether the insertion was new.
func (ix *Index[K]) Add(k K) (realIndex uint32, inserted bool) {
	h := finish(ix.t.mode, ix.hash(k))
	res := ix.t.probe(h, func(slot uint64) bool { return ix.keyAt(slot) == k })
	if res.found {
		return ix.real[res.slot], false
	}
	if !res.hasAvail {
		ix.grow()
		return ix.Add(k)
	}
	realIndex = uint32(len(ix.dense))
	ix.dense = append(ix.dense, k)
	ix.t.setTag(res.availSlot, tagOf(h))
	ix.real[res.availSlot] = realIndex
	ix.t.count++
	if ix.t.count >= ix.t.growthThreshold() {
		ix.grow()
	}
	return realIndex, true
}

// TryGetIndex returns the realIndex of k, if present.
func (ix *Index[K]) TryGetIndex(k K) (uint32, bool) {
	h := finish(ix.t.mode, ix.hash(k))
	res := ix.t.probe(h, func(slot uint64) bool { return ix.keyAt(slot) == k })
	if !res.found {
		return 0, false
	}
	return ix.real[res.slot], true
}

// Count returns the number of distinct keys inserted.
func (ix *Index[K]) Count() int {
	return len(ix.dense)
}

// KeyAt returns the key whose realIndex is i. Panics if i is out of
// range.
func (ix *Index[K]) KeyAt(i uint32) K {
	return ix.dense[i]
}

// Range calls fn once per key in insertion (realIndex) order. If fn
// returns false, Range stops early.
func (ix *Index[K]) Range(fn func(realIndex uint32, k K) bool) {
	for i, k := range ix.dense {
		if !fn(uint32(i), k) {
			return
		}
	}
}

// keyAt looks up the key stored in a given probe slot, resolving
// through the dense array by the slot's recorded realIndex. This
// keeps the ctrlTable itself free of any K storage requirement beyond
// its control bytes.
func (ix *Index[K]) keyAt(slot uint64) K {
	return ix.dense[ix.real[slot]]
}

func (ix *Index[K]) grow() {
	old := *ix
	ix.t = newCtrlTable(int(old.t.buckets)*2, old.t.mode, old.t.maxLoadFactor, !old.t.fastMask)
	ix.real = make([]uint32, len(ix.t.ctrl))
	// dense is untouched: realIndex values must survive the rehash
	// unchanged (realIndex i == its position in dense), only their
	// probe slots move.
	for i, k := range old.dense {
		h := finish(ix.t.mode, ix.hash(k))
		res := ix.t.probe(h, func(uint64) bool { return false })
		ix.t.setTag(res.availSlot, tagOf(h))
		ix.real[res.availSlot] = uint32(i)
		ix.t.count++
	}
}
