// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

// Options configures a Set, Map, or Index.
type Options struct {
	// InitialCapacity is a hint for the number of entries the table
	// should hold without rehashing. Rounded up as the capacity mode
	// (see FitMemory) requires.
	InitialCapacity int

	// Mode selects the hash-finishing transform (see [HashMode]).
	Mode HashMode

	// MaxLoadFactor is the occupancy fraction that triggers a rehash.
	// Zero means [DefaultMaxLoadFactor]; values are clamped to
	// [0.75, 0.99].
	MaxLoadFactor float64

	// FitMemory requests "slow mode": buckets is sized to the
	// smallest multiple of the probe width that satisfies
	// InitialCapacity, rather than rounded up to a power of two.
	// Slow mode trades a division-free mask for a 64x64->128
	// multiply-high reduction on every probe.
	FitMemory bool
}

// Set is an open-addressing set of unique keys of type K.
type Set[K comparable] struct {
	t    *ctrlTable
	hash func(K) uint64
	keys []K
}

// NewSet returns an empty Set. hash must be deterministic: it is the
// raw (pre-finishing) hash of a key, finished internally per opts.Mode.
func NewSet[K comparable](hash func(K) uint64, opts Options) *Set[K] {
	t := newCtrlTable(opts.InitialCapacity, opts.Mode, opts.MaxLoadFactor, opts.FitMemory)
	return &Set[K]{
		t:    t,
		hash: hash,
		keys: make([]K, len(t.ctrl)),
	}
}

// Add inserts k if not already present. Reports whether k was newly
// inserted.
func (s *Set[K]) Add(k K) bool {
	h := finish(s.t.mode, s.hash(k))
	res := s.t.probe(h, func(slot uint64) bool { return s.keys[slot] == k })
	if res.found {
		return false
	}
	if !res.hasAvail {
		s.grow()
		return s.Add(k)
	}
	s.insert(res.availSlot, h, k)
	if s.t.count >= s.t.growthThreshold() {
		s.grow()
	}
	return true
}

// Contains reports whether k is present.
func (s *Set[K]) Contains(k K) bool {
	h := finish(s.t.mode, s.hash(k))
	res := s.t.probe(h, func(slot uint64) bool { return s.keys[slot] == k })
	return res.found
}

// Count returns the number of keys currently stored.
func (s *Set[K]) Count() int {
	return s.t.count
}

// Range calls fn once per stored key, in unspecified order. If fn
// returns false, Range stops early.
func (s *Set[K]) Range(fn func(k K) bool) {
	for i, c := range s.t.ctrl[:s.t.buckets] {
		if c == ctrlEmpty || c == ctrlTombstone || c == ctrlForbidden {
			continue
		}
		if !fn(s.keys[i]) {
			return
		}
	}
}

func (s *Set[K]) insert(slot uint64, h uint64, k K) {
	s.t.setTag(slot, tagOf(h))
	s.keys[slot] = k
	s.t.count++
}

func (s *Set[K]) grow() {
	old := *s
	s.t = newCtrlTable(int(s.t.buckets)*2, s.t.mode, s.t.maxLoadFactor, !s.t.fastMask)
	s.keys = make([]K, len(s.t.ctrl))
	for i, c := range old.t.ctrl[:old.t.buckets] {
		if c == ctrlEmpty || c == ctrlTombstone || c == ctrlForbidden {
			continue
		}
		k := old.keys[i]
		h := finish(s.t.mode, s.hash(k))
		res := s.t.probe(h, func(uint64) bool { return false })
		s.insert(res.availSlot, h, k)
	}
}
