// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"github.com/shardkeep/shardkeep/lib/fragment"
	"github.com/shardkeep/shardkeep/lib/simdhash"
)

// selectorSeedHigh and selectorSeedLow are the initial provisional
// skIndex counters for the high- and low-entropy selectors. The two
// bands (MaxSize and MaxSize + MaxSize/2) are disjoint from each other
// and from any realIndex the canonical dictionary can ever reach, so a
// provisional skIndex can never be mistaken for a resolved one.
const (
	selectorSeedHigh = uint64(simdhash.MaxSize)
	selectorSeedLow  = uint64(simdhash.MaxSize) + uint64(simdhash.MaxSize)/2
)

// selector buffers one batch of LargeKeys (all of the same entropy
// class) between flushes. Its table is discarded on clear, but index
// climbs forever — it is the source of every provisional skIndex ever
// handed out for this class, and RangeMapper relies on ranges for a
// given class never overlapping or going backwards.
type selector struct {
	table *simdhash.Index[fragment.LargeKey]
	index uint64
}

func newSelector(seed uint64) *selector {
	return &selector{
		table: simdhash.NewIndex[fragment.LargeKey](largeKeyHash, simdhash.Options{Mode: simdhash.Fib}),
		index: seed,
	}
}

// tryAdd inserts lk into the batch, returning its position within the
// batch (0-based, insertion order) and whether it was newly inserted.
func (s *selector) tryAdd(lk fragment.LargeKey) (lookupIndex uint32, inserted bool) {
	return s.table.Add(lk)
}

func (s *selector) count() int {
	return s.table.Count()
}

// clear discards this generation's batch contents. index is untouched.
func (s *selector) clear() {
	s.table = simdhash.NewIndex[fragment.LargeKey](largeKeyHash, simdhash.Options{Mode: simdhash.Fib})
}
