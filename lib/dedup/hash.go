// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import "github.com/shardkeep/shardkeep/lib/fragment"

// fnvPrime is the FNV-1a 64-bit prime, reused here as a cheap mixing
// constant for combining a LargeKey's four words into one hash for
// the simdhash tables keyed on fragment.LargeKey.
const fnvPrime = 1099511628211

func identityU64(k uint64) uint64 { return k }

func largeKeyHash(lk fragment.LargeKey) uint64 {
	h := lk.SmallKey
	h = h*fnvPrime ^ lk.L1
	h = h*fnvPrime ^ lk.L2
	h = h*fnvPrime ^ lk.L3
	return h
}

func fragmentKeyHash(k fragment.Key) uint64 {
	h := uint64(k.FileIndex) * fnvPrime
	h ^= uint64(k.FileOffset)
	return h * fnvPrime
}
