// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

import "testing"

func identityHash(k uint64) uint64 { return k }

func TestSetAddContains(t *testing.T) {
	s := NewSet[uint64](identityHash, Options{InitialCapacity: 16})

	if !s.Add(1) {
		t.Fatal("expected first Add(1) to be novel")
	}
	if s.Add(1) {
		t.Fatal("expected second Add(1) to be a duplicate")
	}
	if !s.Contains(1) {
		t.Fatal("expected Contains(1) after Add")
	}
	if s.Contains(2) {
		t.Fatal("expected Contains(2) to be false")
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
}

func TestSetGrowthPreservesMembership(t *testing.T) {
	s := NewSet[uint64](identityHash, Options{InitialCapacity: 16})
	const n = 50_000
	for i := uint64(0); i < n; i++ {
		if !s.Add(i) {
			t.Fatalf("Add(%d) reported duplicate on first insert", i)
		}
	}
	if s.Count() != n {
		t.Fatalf("Count() = %d, want %d", s.Count(), n)
	}
	for i := uint64(0); i < n; i++ {
		if !s.Contains(i) {
			t.Fatalf("Contains(%d) = false after growth", i)
		}
	}
}

func TestMapAddUpdateRemove(t *testing.T) {
	m := NewMap[uint64, string](identityHash, Options{InitialCapacity: 16})

	if !m.Add(1, "a") {
		t.Fatal("expected Add(1, a) to be novel")
	}
	if m.Add(1, "b") {
		t.Fatal("expected Add(1, b) to report duplicate")
	}
	if v, ok := m.TryGetValue(1); !ok || v != "a" {
		t.Fatalf("TryGetValue(1) = %q, %v; want a, true", v, ok)
	}
	if !m.Update(1, "c") {
		t.Fatal("expected Update(1, c) to report present")
	}
	if v, _ := m.TryGetValue(1); v != "c" {
		t.Fatalf("TryGetValue(1) = %q after Update, want c", v)
	}
	if !m.Remove(1) {
		t.Fatal("expected Remove(1) to report present")
	}
	if _, ok := m.TryGetValue(1); ok {
		t.Fatal("expected TryGetValue(1) to be absent after Remove")
	}
	if m.Remove(1) {
		t.Fatal("expected second Remove(1) to report absent")
	}
}

func TestMapAddOrUpdate(t *testing.T) {
	m := NewMap[uint64, int](identityHash, Options{InitialCapacity: 16})
	if !m.AddOrUpdate(5, 1) {
		t.Fatal("expected AddOrUpdate to insert novel key")
	}
	if m.AddOrUpdate(5, 2) {
		t.Fatal("expected AddOrUpdate on existing key to report not-novel")
	}
	if v, _ := m.TryGetValue(5); v != 2 {
		t.Fatalf("TryGetValue(5) = %d, want 2", v)
	}
}

func TestMapTombstoneReclaim(t *testing.T) {
	m := NewMap[uint64, int](identityHash, Options{InitialCapacity: 16})
	for round := 0; round < 20; round++ {
		for i := uint64(0); i < 200; i++ {
			m.AddOrUpdate(i, int(i))
		}
		for i := uint64(0); i < 200; i++ {
			m.Remove(i)
		}
	}
	if m.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after draining", m.Count())
	}
	if !m.Add(1, 1) {
		t.Fatal("expected Add after drain to succeed")
	}
}

// TestIndexStability verifies the Index contract the dedup engine
// relies on: realIndex equals insertion order and is unaffected by
// any number of triggered rehashes.
func TestIndexStability(t *testing.T) {
	ix := NewIndex[uint64](identityHash, Options{InitialCapacity: 16})

	const n = 30_000
	want := make(map[uint64]uint32, n)
	for i := uint64(0); i < n; i++ {
		real, inserted := ix.Add(i)
		if !inserted {
			t.Fatalf("Add(%d) reported duplicate on first insert", i)
		}
		if real != uint32(i) {
			t.Fatalf("Add(%d) realIndex = %d, want insertion ordinal %d", i, real, i)
		}
		want[i] = real
	}

	for i := uint64(0); i < n; i++ {
		real, inserted := ix.Add(i)
		if inserted {
			t.Fatalf("Add(%d) reported novel on re-insert", i)
		}
		if real != want[i] {
			t.Fatalf("Add(%d) realIndex = %d, want stable %d", i, real, want[i])
		}
	}

	for i := uint64(0); i < n; i++ {
		real, ok := ix.TryGetIndex(i)
		if !ok || real != want[i] {
			t.Fatalf("TryGetIndex(%d) = %d, %v; want %d, true", i, real, ok, want[i])
		}
		if ix.KeyAt(real) != i {
			t.Fatalf("KeyAt(%d) = %d, want %d", real, ix.KeyAt(real), i)
		}
	}
}

func TestIndexRangeIsInsertionOrder(t *testing.T) {
	ix := NewIndex[uint64](identityHash, Options{InitialCapacity: 16})
	order := []uint64{40, 10, 90, 20, 70}
	for _, k := range order {
		ix.Add(k)
	}
	var got []uint64
	ix.Range(func(_ uint32, k uint64) bool {
		got = append(got, k)
		return true
	})
	if len(got) != len(order) {
		t.Fatalf("Range visited %d keys, want %d", len(got), len(order))
	}
	for i, k := range order {
		if got[i] != k {
			t.Fatalf("Range()[%d] = %d, want %d", i, got[i], k)
		}
	}
}

func TestFitMemoryCapacity(t *testing.T) {
	s := NewSet[uint64](identityHash, Options{InitialCapacity: 1000, FitMemory: true})
	for i := uint64(0); i < 900; i++ {
		s.Add(i)
	}
	for i := uint64(0); i < 900; i++ {
		if !s.Contains(i) {
			t.Fatalf("Contains(%d) = false in FitMemory table", i)
		}
	}
}
