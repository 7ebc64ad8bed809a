// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

import (
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// Control byte values. Anything below ctrlEmpty is a 7-bit tag.
const (
	ctrlEmpty     byte = 0x80
	ctrlTombstone byte = 0x81
	ctrlForbidden byte = 0x82
)

// MinSize is the smallest bucket count any table allocates.
const MinSize = 4096

// MaxSize is the largest bucket count any table will grow to.
const MaxSize = 1 << 31

// DefaultMaxLoadFactor is the default fraction of buckets that may be
// occupied before a table rehashes into a larger one.
const DefaultMaxLoadFactor = 0.9766

// clampLoadFactor restricts a requested max load factor to [0.75, 0.99].
func clampLoadFactor(f float64) float64 {
	if f <= 0 {
		return DefaultMaxLoadFactor
	}
	if f < 0.75 {
		return 0.75
	}
	if f > 0.99 {
		return 0.99
	}
	return f
}

// probeWidth is the number of control bytes read per group. 16 when
// the host looks capable of cheap wide loads, 8 as the conservative
// fallback; either width produces identical results.
func probeWidth() int {
	if cpuid.CPU.Supports(cpuid.SSE2, cpuid.AVX2) {
		return 16
	}
	return 8
}

// ctrlTable is the control-byte array and capacity/probe bookkeeping
// shared by Set, Map, and Index. It does not own key/value storage:
// callers keep a slot array in lockstep, indexed identically to ctrl.
type ctrlTable struct {
	ctrl  []byte
	width int

	// buckets is the number of usable slots (excludes the guard
	// bytes appended past the end of ctrl).
	buckets uint64

	// fastMask is true when buckets is a power of two, in which case
	// group selection masks rather than reduces.
	fastMask  bool
	groupMask uint64 // valid when fastMask
	groups    uint64 // buckets / width

	mode          HashMode
	maxLoadFactor float64

	count      int
	tombstones int
}

// newCtrlTable allocates a table sized for at least capacityHint live
// entries. fitMemory requests "slow mode": buckets is rounded to the
// nearest multiple of width that comfortably holds capacityHint
// without doubling all the way to the next power of two.
func newCtrlTable(capacityHint int, mode HashMode, maxLoadFactor float64, fitMemory bool) *ctrlTable {
	width := probeWidth()
	maxLoadFactor = clampLoadFactor(maxLoadFactor)

	needed := uint64(float64(capacityHint)/maxLoadFactor) + 1
	if needed < MinSize {
		needed = MinSize
	}
	if needed > MaxSize {
		needed = MaxSize
	}

	t := &ctrlTable{width: width, mode: mode, maxLoadFactor: maxLoadFactor}
	if fitMemory {
		groups := (needed + uint64(width) - 1) / uint64(width)
		t.buckets = groups * uint64(width)
		t.groups = groups
		t.fastMask = false
	} else {
		buckets := nextPow2(needed)
		t.buckets = buckets
		t.groups = buckets / uint64(width)
		t.groupMask = t.groups - 1
		t.fastMask = true
	}

	t.ctrl = make([]byte, t.buckets+uint64(width))
	for i := range t.ctrl {
		t.ctrl[i] = ctrlEmpty
	}
	for i := t.buckets; i < uint64(len(t.ctrl)); i++ {
		t.ctrl[i] = ctrlForbidden
	}
	return t
}

// growthThreshold returns the live-entry count at which the table
// must rehash into a larger one.
func (t *ctrlTable) growthThreshold() int {
	return int(float64(t.buckets) * t.maxLoadFactor)
}

func (t *ctrlTable) groupIndex(selector uint64) uint64 {
	if t.fastMask {
		return selector & t.groupMask
	}
	return reduce(selector, t.groups)
}

// forEachGroup visits successive candidate groups for a hash value in
// triangular-jump order, starting from the hash's natural group. fn
// returns true to stop the walk (the slot it wants was found).
func (t *ctrlTable) forEachGroup(h uint64, fn func(base uint64) bool) {
	group := t.groupIndex(groupSelector(h))
	stride := uint64(0)
	for {
		base := group * uint64(t.width)
		if fn(base) {
			return
		}
		stride++
		group = (group + stride) % t.groups
	}
}

// matchTag returns a bitmask with one bit set per lane in the group
// starting at base whose control byte equals tag.
func (t *ctrlTable) matchTag(base uint64, tag byte) uint32 {
	var mask uint32
	for i := 0; i < t.width; i++ {
		if t.ctrl[base+uint64(i)] == tag {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// matchAvailable returns a bitmask with one bit set per lane in the
// group starting at base that is EMPTY or TOMBSTONE.
func (t *ctrlTable) matchAvailable(base uint64) uint32 {
	var mask uint32
	for i := 0; i < t.width; i++ {
		c := t.ctrl[base+uint64(i)]
		if c == ctrlEmpty || c == ctrlTombstone {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

func firstSet(mask uint32) (int, bool) {
	if mask == 0 {
		return 0, false
	}
	return bits.TrailingZeros32(mask), true
}

func (t *ctrlTable) setTag(slot uint64, tag byte) {
	t.ctrl[slot] = tag
}

func (t *ctrlTable) setEmpty(slot uint64) {
	t.ctrl[slot] = ctrlEmpty
}

func (t *ctrlTable) setTombstone(slot uint64) {
	t.ctrl[slot] = ctrlTombstone
}

// probeResult is the outcome of walking a table's probe sequence for
// a hash: either an occupied slot matching eq, or (absent that) the
// first available slot the walk would have stopped at, which is where
// a new entry for this hash belongs.
type probeResult struct {
	slot      uint64
	found     bool
	availSlot uint64
	hasAvail  bool
}

// probe walks the control array for h, calling eq on every slot whose
// tag matches to test full key equality. It stops at the first EMPTY
// lane it sees (no later group can hold the key, since insertion
// never skips a closer empty slot) but keeps scanning past TOMBSTONE
// lanes, remembering only the first available (empty or tombstone)
// slot encountered for potential insertion.
func (t *ctrlTable) probe(h uint64, eq func(slot uint64) bool) probeResult {
	tag := tagOf(h)
	var res probeResult

	t.forEachGroup(h, func(base uint64) bool {
		if m := t.matchTag(base, tag); m != 0 {
			for m != 0 {
				i, _ := firstSet(m)
				m &^= 1 << uint(i)
				slot := base + uint64(i)
				if eq(slot) {
					res.slot, res.found = slot, true
					return true
				}
			}
		}
		for i := 0; i < t.width; i++ {
			slot := base + uint64(i)
			switch t.ctrl[slot] {
			case ctrlEmpty:
				if !res.hasAvail {
					res.availSlot, res.hasAvail = slot, true
				}
				return true
			case ctrlTombstone:
				if !res.hasAvail {
					res.availSlot, res.hasAvail = slot, true
				}
			}
		}
		return false
	})
	return res
}
