// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

// Map is an open-addressing map from keys of type K to values of
// type V, supporting removal (unlike Set and Index).
type Map[K comparable, V any] struct {
	t      *ctrlTable
	hash   func(K) uint64
	keys   []K
	values []V
}

// NewMap returns an empty Map.
func NewMap[K comparable, V any](hash func(K) uint64, opts Options) *Map[K, V] {
	t := newCtrlTable(opts.InitialCapacity, opts.Mode, opts.MaxLoadFactor, opts.FitMemory)
	return &Map[K, V]{
		t:      t,
		hash:   hash,
		keys:   make([]K, len(t.ctrl)),
		values: make([]V, len(t.ctrl)),
	}
}

// Add inserts (k, v) if k is not already present. Reports whether the
// insertion happened; if k already exists its value is left unchanged.
func (m *Map[K, V]) Add(k K, v V) bool {
	h := finish(m.t.mode, m.hash(k))
	res := m.t.probe(h, func(slot uint64) bool { return m.keys[slot] == k })
	if res.found {
		return false
	}
	if !res.hasAvail {
		m.grow()
		return m.Add(k, v)
	}
	m.insert(res.availSlot, h, k, v)
	m.maybeGrow()
	return true
}

// AddOrUpdate inserts (k, v) or overwrites the existing value for k.
// Reports whether k was newly inserted.
func (m *Map[K, V]) AddOrUpdate(k K, v V) bool {
	h := finish(m.t.mode, m.hash(k))
	res := m.t.probe(h, func(slot uint64) bool { return m.keys[slot] == k })
	if res.found {
		m.values[res.slot] = v
		return false
	}
	if !res.hasAvail {
		m.grow()
		return m.AddOrUpdate(k, v)
	}
	m.insert(res.availSlot, h, k, v)
	m.maybeGrow()
	return true
}

// Update overwrites the value for an existing key. Reports whether k
// was present.
func (m *Map[K, V]) Update(k K, v V) bool {
	h := finish(m.t.mode, m.hash(k))
	res := m.t.probe(h, func(slot uint64) bool { return m.keys[slot] == k })
	if !res.found {
		return false
	}
	m.values[res.slot] = v
	return true
}

// TryGetValue returns the value stored for k, if present.
func (m *Map[K, V]) TryGetValue(k K) (V, bool) {
	h := finish(m.t.mode, m.hash(k))
	res := m.t.probe(h, func(slot uint64) bool { return m.keys[slot] == k })
	if !res.found {
		var zero V
		return zero, false
	}
	return m.values[res.slot], true
}

// Remove deletes k if present. Reports whether it was present.
func (m *Map[K, V]) Remove(k K) bool {
	h := finish(m.t.mode, m.hash(k))
	res := m.t.probe(h, func(slot uint64) bool { return m.keys[slot] == k })
	if !res.found {
		return false
	}
	m.t.setTombstone(res.slot)
	var zeroK K
	var zeroV V
	m.keys[res.slot] = zeroK
	m.values[res.slot] = zeroV
	m.t.count--
	m.t.tombstones++
	return true
}

// Count returns the number of keys currently stored.
func (m *Map[K, V]) Count() int {
	return m.t.count
}

func (m *Map[K, V]) insert(slot uint64, h uint64, k K, v V) {
	m.t.setTag(slot, tagOf(h))
	m.keys[slot] = k
	m.values[slot] = v
	m.t.count++
}

// maybeGrow rehashes once occupancy (including tombstones, so a run
// heavy on Remove still reclaims space) crosses the load factor.
func (m *Map[K, V]) maybeGrow() {
	if m.t.count+m.t.tombstones >= m.t.growthThreshold() {
		m.grow()
	}
}

func (m *Map[K, V]) grow() {
	old := *m
	growHint := int(old.t.buckets) * 2
	if old.t.tombstones > old.t.count {
		// Heavy on tombstones: rehashing at the same size reclaims
		// room without doubling memory forever. newCtrlTable takes an
		// entry count, so ask for just under the current growth
		// threshold to land on the current bucket count.
		growHint = old.t.growthThreshold() - 1
	}
	m.t = newCtrlTable(growHint, old.t.mode, old.t.maxLoadFactor, !old.t.fastMask)
	m.keys = make([]K, len(m.t.ctrl))
	m.values = make([]V, len(m.t.ctrl))
	for i, c := range old.t.ctrl[:old.t.buckets] {
		if c == ctrlEmpty || c == ctrlTombstone || c == ctrlForbidden {
			continue
		}
		k, v := old.keys[i], old.values[i]
		h := finish(m.t.mode, m.hash(k))
		res := m.t.probe(h, func(uint64) bool { return false })
		m.insert(res.availSlot, h, k, v)
	}
}
