// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"path/filepath"
	"testing"

	"github.com/shardkeep/shardkeep/lib/extsort"
	"github.com/shardkeep/shardkeep/lib/fragment"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	fi, err := extsort.Create(filepath.Join(dir, "fi.log"))
	if err != nil {
		t.Fatalf("create fi.log: %v", err)
	}
	lk, err := extsort.Create(filepath.Join(dir, "lk.dat"))
	if err != nil {
		t.Fatalf("create lk.dat: %v", err)
	}
	s, err := New(fi, lk, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		fi.Close()
		lk.Close()
	})
	return s
}

// drainAll calls GetLargeKeys once on each selector (high, then low),
// simulating the periodic drain a real ingest loop performs between
// Add calls.
func drainAll(t *testing.T, s *Storage) {
	t.Helper()
	for _, isLow := range []bool{false, true} {
		if _, _, err := s.GetLargeKeys(isLow, nil); err != nil {
			t.Fatalf("GetLargeKeys(isLow=%v): %v", isLow, err)
		}
	}
}

// Scenario A: a stream built entirely from one repeated byte pattern
// should dedup every fragment after the first occurrence down to a
// single canonical key.
func TestScenarioRepeatedContentDedups(t *testing.T) {
	s := newTestStorage(t)
	data := []byte("the-quick-brown-fox-jumps-over-the-lazy-dog-01234567")

	novelCount := 0
	for i := 0; i < 20; i++ {
		novel, err := s.Add(data, 0, int64(i*len(data)), false)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if novel {
			novelCount++
		}
	}
	if novelCount != 1 {
		t.Fatalf("novelCount = %d, want 1", novelCount)
	}
	drainAll(t, s)
	if _, err := s.ResolveCollisions(nil, nil, nil); err != nil {
		t.Fatalf("ResolveCollisions: %v", err)
	}

	keys := map[fragment.Key]uint32{}
	if err := s.GetFileIndexInfo(func(fileIndex uint32, ki []uint32) error {
		for i, k := range ki {
			keys[fragment.Key{FileIndex: fileIndex, FileOffset: int64(i * len(data))}] = k
		}
		return nil
	}); err != nil {
		t.Fatalf("GetFileIndexInfo: %v", err)
	}
	if len(keys) != 20 {
		t.Fatalf("got %d keys, want 20", len(keys))
	}
	first := keys[fragment.Key{FileIndex: 0, FileOffset: 0}]
	for k, v := range keys {
		if v != first {
			t.Fatalf("key at %+v = %d, want %d (all should share one canonical key)", k, v, first)
		}
	}
	if first == 0 {
		t.Fatalf("canonical key is 0 (dropped), want a real dictionary entry")
	}
}

// Scenario B: two files whose fragments are pairwise distinct should
// each get their own distinct canonical keys, and dedup across files
// should still collapse any shared fragment.
func TestScenarioTwoFilesDistinctAndSharedFragments(t *testing.T) {
	s := newTestStorage(t)
	shared := []byte("shared-fragment-bytes-between-both-files-xyz")
	onlyA := []byte("fragment-unique-to-file-a-aaaaaaaaaaaaaaaaaaa")
	onlyB := []byte("fragment-unique-to-file-b-bbbbbbbbbbbbbbbbbbb")

	mustAdd := func(data []byte, fileIndex uint32, offset int64) {
		if _, err := s.Add(data, fileIndex, offset, false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	mustAdd(onlyA, 0, 0)
	mustAdd(shared, 0, int64(len(onlyA)))
	mustAdd(shared, 1, 0)
	mustAdd(onlyB, 1, int64(len(shared)))
	drainAll(t, s)
	if _, err := s.ResolveCollisions(nil, nil, nil); err != nil {
		t.Fatalf("ResolveCollisions: %v", err)
	}

	var keysA, keysB []uint32
	if err := s.GetFileIndexInfo(func(fileIndex uint32, ki []uint32) error {
		switch fileIndex {
		case 0:
			keysA = append([]uint32(nil), ki...)
		case 1:
			keysB = append([]uint32(nil), ki...)
		}
		return nil
	}); err != nil {
		t.Fatalf("GetFileIndexInfo: %v", err)
	}

	if len(keysA) != 2 || len(keysB) != 2 {
		t.Fatalf("keysA=%v keysB=%v, want 2 entries each", keysA, keysB)
	}
	if keysA[1] != keysB[0] {
		t.Fatalf("shared fragment resolved to different keys: %d vs %d", keysA[1], keysB[0])
	}
	if keysA[0] == keysA[1] || keysB[0] == keysB[1] {
		t.Fatalf("distinct fragments resolved to the same key")
	}
}

// Scenario C: a synthetic smallKey collision (two distinct digests
// forced onto the same raw key-form smallKey) must be resolved into a
// primary plus a collision alias, each keeping its own distinct
// canonical key.
func TestScenarioSyntheticSmallKeyCollision(t *testing.T) {
	primary := fragment.NewKey([32]byte{0: 1, 16: 1}, 10)
	colliding := fragment.NewKey([32]byte{0: 2, 16: 2}, 10)
	colliding.SmallKey = primary.SmallKey // force the collision

	if primary.SmallKey != colliding.SmallKey {
		t.Fatalf("setup error: smallKeys do not match")
	}
	if primary.ShortCmp(colliding) {
		t.Fatalf("setup error: digest remainders should differ")
	}

	s := newTestStorage(t)
	s.low.table.Add(primary)
	s.low.index++
	s.low.table.Add(colliding)
	s.low.index++

	keys, _, err := s.GetLargeKeys(true, nil)
	if err != nil {
		t.Fatalf("GetLargeKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if !keys[0].HasSize() {
		t.Fatalf("first (primary) key should be in key form")
	}
	if keys[1].HasSize() {
		t.Fatalf("second (colliding) key should have become an alias")
	}
	if keys[1].PrimaryIndex() == 0 {
		t.Fatalf("alias primary index should point at the dictionary, not the sentinel")
	}
}

// Scenario D: a FragmentInfo record whose dictionary slot is occupied
// by an unrelated primary (its collision alias never having gone
// through GetLargeKeys in this run — e.g. the record was logged
// against cache state from a process that exited before resolving)
// must fall back to re-reading the source file to confirm identity.
// If the source no longer matches what was logged, the whole file is
// dropped by GetFileIndexInfo.
func TestScenarioSourceDriftDropsFile(t *testing.T) {
	primary := fragment.NewKey([32]byte{0: 1, 16: 1}, 16)
	colliding := fragment.NewKey([32]byte{0: 2, 16: 2}, 16)
	colliding.SmallKey = primary.SmallKey

	s := newTestStorage(t)
	idx1, inserted := s.hi.Add(primary.SmallKey)
	if !inserted {
		t.Fatalf("expected primary smallKey to be newly inserted")
	}
	if err := s.appendLargeKey(primary); err != nil {
		t.Fatalf("appendLargeKey: %v", err)
	}

	fiA := fragment.Info{SKIndex: idx1, FileIndex: 5, FileOffset: 0, L1: primary.L1, L2: primary.L2, L3: primary.L3}
	fiB := fragment.Info{SKIndex: idx1, FileIndex: 6, FileOffset: 0, L1: colliding.L1, L2: colliding.L2, L3: colliding.L3}

	if err := s.appendFragmentInfo(fiA); err != nil {
		t.Fatalf("appendFragmentInfo A: %v", err)
	}
	if err := s.appendFragmentInfo(fiB); err != nil {
		t.Fatalf("appendFragmentInfo B: %v", err)
	}

	scratch := make([]byte, 64)
	readFragment := func(scratch []byte, size uint32, fileIndex uint32, fileOffset int64) bool {
		// File 6's bytes no longer match what was logged.
		for i := range scratch[:size] {
			scratch[i] = 0xFF
		}
		return true
	}
	if _, err := s.ResolveCollisions(scratch, readFragment, nil); err != nil {
		t.Fatalf("ResolveCollisions: %v", err)
	}

	var keysA, keysB []uint32
	sawB := false
	if err := s.GetFileIndexInfo(func(fileIndex uint32, ki []uint32) error {
		if fileIndex == 5 {
			keysA = append([]uint32(nil), ki...)
		}
		if fileIndex == 6 {
			sawB = true
			keysB = append([]uint32(nil), ki...)
		}
		return nil
	}); err != nil {
		t.Fatalf("GetFileIndexInfo: %v", err)
	}
	if len(keysA) != 1 || keysA[0] == 0 {
		t.Fatalf("file 5 (unaffected) should keep its key, got %v", keysA)
	}
	if sawB {
		t.Fatalf("file 6 (content drift) should have been dropped entirely, got keys %v", keysB)
	}
}

// Scenario E: low- and high-entropy selectors assign disjoint
// provisional skIndex bands and both drain into the same dictionary
// without interfering with each other's RangeMapper registrations.
func TestScenarioLowHighSelectorOrdering(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < 5; i++ {
		data := []byte{byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i), byte(i)}
		if _, err := s.Add(data, 0, int64(i*8), false); err != nil {
			t.Fatalf("Add high: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		data := []byte{byte(i + 100), byte(i + 100), byte(i + 100), byte(i + 100)}
		if _, err := s.Add(data, 1, int64(i*4), true); err != nil {
			t.Fatalf("Add low: %v", err)
		}
	}

	drainAll(t, s)
	if _, err := s.ResolveCollisions(nil, nil, nil); err != nil {
		t.Fatalf("ResolveCollisions: %v", err)
	}

	var keysHigh, keysLow []uint32
	if err := s.GetFileIndexInfo(func(fileIndex uint32, ki []uint32) error {
		if fileIndex == 0 {
			keysHigh = append([]uint32(nil), ki...)
		}
		if fileIndex == 1 {
			keysLow = append([]uint32(nil), ki...)
		}
		return nil
	}); err != nil {
		t.Fatalf("GetFileIndexInfo: %v", err)
	}
	if len(keysHigh) != 5 || len(keysLow) != 5 {
		t.Fatalf("keysHigh=%v keysLow=%v, want 5 each", keysHigh, keysLow)
	}
	seen := map[uint32]bool{}
	for _, k := range append(append([]uint32{}, keysHigh...), keysLow...) {
		if k == 0 {
			t.Fatalf("unexpected dropped key")
		}
		if seen[k] {
			t.Fatalf("key %d reused across distinct fragments", k)
		}
		seen[k] = true
	}
}

// Scenario F: an empty run still produces a valid dictionary
// containing only the sentinel record, and GetFileIndexInfo calls its
// sink zero times.
func TestScenarioEmptyStream(t *testing.T) {
	s := newTestStorage(t)
	drainAll(t, s)
	if _, err := s.ResolveCollisions(nil, nil, nil); err != nil {
		t.Fatalf("ResolveCollisions: %v", err)
	}

	calls := 0
	if err := s.GetFileIndexInfo(func(uint32, []uint32) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("GetFileIndexInfo: %v", err)
	}
	if calls != 0 {
		t.Fatalf("sink called %d times on an empty stream, want 0", calls)
	}
	if s.hi.Count() != 1 {
		t.Fatalf("hi.Count() = %d, want 1 (sentinel only)", s.hi.Count())
	}
}

func TestAddIdempotentWithinSameFragment(t *testing.T) {
	s := newTestStorage(t)
	data := []byte("idempotency-check-fragment-payload")

	novel1, err := s.Add(data, 0, 0, false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !novel1 {
		t.Fatalf("first Add should report novel")
	}
	novel2, err := s.Add(data, 0, int64(len(data)), false)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if novel2 {
		t.Fatalf("second Add of identical bytes should not report novel")
	}
}
