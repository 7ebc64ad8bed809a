// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package simdhash implements the SimdHash family: an open-addressing
// hash table with a parallel control-byte array probed in fixed-width
// groups, in the style of a Swiss table. Three flavors share the same
// probe mechanics:
//
//   - [Set] stores unique keys.
//   - [Map] stores key/value pairs.
//   - [Index] stores unique keys and additionally returns a stable,
//     monotonically increasing integer (realIndex) for each one, in
//     first-insertion order. realIndex values never change across a
//     rehash; LargeKeyStorage depends on this.
//
// Every entry's control byte is EMPTY, TOMBSTONE, FORBIDDEN (the guard
// byte past the end of the array), or a 7-bit tag equal to the high
// bits of the entry's finished hash. A probe reads one group of
// control bytes at a time and tests all of them in parallel against a
// target tag.
//
// This package runs a portable scalar group-match loop rather than
// hand-written SIMD intrinsics (Go does not offer either without
// assembly or unsafe deep enough to be worth it here); it uses
// github.com/klauspost/cpuid/v2 only to decide whether it is worth
// reading 16 control bytes per probe or whether 8 keeps branch
// misprediction down on CPUs this package has not been tuned for.
// Semantics are identical either way, matching the explicit escape
// hatch described by the design this package implements.
package simdhash
