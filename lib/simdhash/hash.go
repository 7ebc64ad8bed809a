// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package simdhash

import "math/bits"

// HashMode selects the finishing transform applied to a key's raw
// 64-bit hash before it is split into a group-selecting index and a
// 7-bit control tag.
type HashMode int

const (
	// Std applies no extra finishing: the raw hash is used as-is.
	// This is the right choice when the caller's hash function is
	// already well mixed (e.g. a cryptographic or BLAKE3-derived
	// hash), matching "language default" behavior.
	Std HashMode = iota

	// Fib finishes with Fibonacci hashing: (h ^ phi64) * phi64. Cheap
	// and good at spreading low-entropy inputs (e.g. small integers)
	// across the high bits used for group selection.
	Fib

	// Absl finishes with the abseil-style mix: (h ^ kMul) * kMul.
	Absl
)

// phi64 is 2^64/φ rounded to the nearest odd integer, the standard
// Fibonacci hashing multiplier.
const phi64 = 0x9E3779B97F4A7C15

// kMul is the odd mixing constant absl::Hash uses for its final
// mixing step.
const kMul = 0x9DDFEA08EB382D69

// finish applies mode's finishing transform to a raw hash.
func finish(mode HashMode, h uint64) uint64 {
	switch mode {
	case Fib:
		return (h ^ phi64) * phi64
	case Absl:
		return (h ^ kMul) * kMul
	default:
		return h
	}
}

// tagOf extracts the 7-bit control tag from a finished hash: the top
// 7 bits, bits 57..63.
func tagOf(h uint64) byte {
	return byte(h>>57) & 0x7F
}

// groupSelector extracts the bits used to pick a starting group,
// excluding the bits already consumed by the tag.
func groupSelector(h uint64) uint64 {
	return h & (1<<57 - 1)
}

// reduce maps a 64-bit value into [0, n) without a division, using
// the high word of a 64x64->128 multiply (Lemire's trick). Used by
// "slow mode" capacities that are not a power of two.
func reduce(h uint64, n uint64) uint64 {
	hi, _ := bits.Mul64(h, n)
	return hi
}

// nextPow2 returns the smallest power of two >= n, at least 1.
func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}
