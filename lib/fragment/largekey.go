// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fragment

import "encoding/binary"

// Size is the on-disk byte length of a LargeKey record: smallKey plus
// three 64-bit digest remainder words.
const Size = 32

// sizeBits is the width, in bits, of the embedded fragment length
// field packed into a key-form L1.
const sizeBits = 19

// sizeMask covers the low sizeBits bits of a uint64.
const sizeMask = (1 << sizeBits) - 1

// MaxFragmentSize is the largest fragment length representable by
// LargeKey.Size: 2^19 - 1.
const MaxFragmentSize = sizeMask

// LargeKey is the 32-byte two-level fragment identity described by
// the data model: a 64-bit smallKey carrying either the top of a
// fragment's BLAKE3 digest with its low bit forced to 1 ("key form"),
// or a back-reference to a collision alias's primary ("alias form");
// and three 64-bit words holding the remainder of the digest, the
// first of which (L1) carries the fragment's size in its low 19 bits
// when the key is in key form.
//
// LargeKey is a plain value type — equality is exact field equality,
// matching the data model's "identical smallKey AND identical
// l1,l2,l3" rule.
type LargeKey struct {
	SmallKey uint64
	L1       uint64
	L2       uint64
	L3       uint64
}

// NewKey builds a key-form LargeKey from a 32-byte fragment digest and
// the fragment's byte length. size must be <= MaxFragmentSize.
//
// Layout: the digest is read as four little-endian uint64 words
// d0..d3. smallKey is d0 with its low bit forced to 1 (the key-form
// tag); the rest of d0's bits carry through unchanged. L1 is d1 with
// its low sizeBits bits replaced by size; L2, L3 are d2, d3 unchanged.
func NewKey(digest [32]byte, size uint32) LargeKey {
	if size > MaxFragmentSize {
		panic("fragment: size exceeds MaxFragmentSize")
	}

	d0 := binary.LittleEndian.Uint64(digest[0:8])
	d1 := binary.LittleEndian.Uint64(digest[8:16])
	d2 := binary.LittleEndian.Uint64(digest[16:24])
	d3 := binary.LittleEndian.Uint64(digest[24:32])

	smallKey := d0 | 1
	l1 := (d1 &^ sizeMask) | (uint64(size) & sizeMask)

	return LargeKey{SmallKey: smallKey, L1: l1, L2: d2, L3: d3}
}

// NewAlias builds an alias-form LargeKey recording that a fragment's
// identity is owned by collisionIndex within the collision index,
// whose primary lives at primarySKIndex within the smallKey index.
// The digest remainder words are carried over unchanged from the
// colliding key.
func NewAlias(collisionIndex uint32, primarySKIndex uint32, l1, l2, l3 uint64) LargeKey {
	smallKey := (uint64(primarySKIndex) << 32) | (uint64(collisionIndex&0x7FFFFFFF) << 1)
	return LargeKey{SmallKey: smallKey, L1: l1, L2: l2, L3: l3}
}

// HasSize reports whether the key is in key form (as opposed to alias
// form). Invariant 1 of the data model requires every key inserted
// into the primary smallKey index to satisfy HasSize() == true.
func (k LargeKey) HasSize() bool {
	return k.SmallKey&1 == 1
}

// Size returns the fragment length embedded in a key-form LargeKey.
// Calling Size on an alias-form key returns a meaningless value; check
// HasSize first.
func (k LargeKey) Size() uint32 {
	return uint32(k.L1 & sizeMask)
}

// CollisionIndex returns the collision-index component of an
// alias-form key's smallKey. Calling it on a key-form LargeKey returns
// a meaningless value; check HasSize first.
func (k LargeKey) CollisionIndex() uint32 {
	return uint32((k.SmallKey >> 1) & 0x7FFFFFFF)
}

// PrimaryIndex returns the primary smallKey index embedded in an
// alias-form key's smallKey. Calling it on a key-form LargeKey returns
// a meaningless value; check HasSize first.
func (k LargeKey) PrimaryIndex() uint32 {
	return uint32(k.SmallKey >> 32)
}

// ShortCmp reports whether two keys share the same digest remainder
// (L1, L2, L3), independent of their smallKey fields. ResolveCollisions
// uses this to decide whether a logged fragment matches the dictionary
// entry at its sorted position without a full LargeKey comparison.
func (k LargeKey) ShortCmp(other LargeKey) bool {
	return k.L1 == other.L1 && k.L2 == other.L2 && k.L3 == other.L3
}

// Bytes encodes the key into its 32-byte little-endian wire form.
func (k LargeKey) Bytes() [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint64(buf[0:8], k.SmallKey)
	binary.LittleEndian.PutUint64(buf[8:16], k.L1)
	binary.LittleEndian.PutUint64(buf[16:24], k.L2)
	binary.LittleEndian.PutUint64(buf[24:32], k.L3)
	return buf
}

// ParseLargeKey decodes a 32-byte little-endian wire record into a
// LargeKey. Panics if buf is shorter than Size — callers read fixed
// 32-byte slices off disk and this indicates a framing bug, not a
// runtime condition.
func ParseLargeKey(buf []byte) LargeKey {
	if len(buf) < Size {
		panic("fragment: buffer shorter than LargeKey size")
	}
	return LargeKey{
		SmallKey: binary.LittleEndian.Uint64(buf[0:8]),
		L1:       binary.LittleEndian.Uint64(buf[8:16]),
		L2:       binary.LittleEndian.Uint64(buf[16:24]),
		L3:       binary.LittleEndian.Uint64(buf[24:32]),
	}
}
