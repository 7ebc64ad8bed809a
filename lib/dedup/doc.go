// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedup implements LargeKeyStorage, the dedup identity engine:
// it decides whether an incoming fragment is novel, assigns it a
// canonical 32-byte key, resolves two-level smallKey collisions
// against the real BLAKE3 digest, and reconstructs the final ordered
// key list for every ingested file.
//
// The on-disk layout follows the teacher's append-only log discipline
// (lib/artifact/cache_index.go: fixed-size records, block-aligned
// flushes, a trailing partial page kept resident) applied to two logs:
// fi.log (one FragmentInfo record per occurrence) and lk.dat (one
// LargeKey record per canonical dictionary entry, indexed by hi's
// realIndex). fi.log is consumed and rewritten through lib/extsort;
// lk.dat is read back through a bounded window of records. Neither is
// loaded whole into memory.
package dedup
