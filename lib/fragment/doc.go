// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fragment defines the two fixed-layout binary records that
// LargeKeyStorage persists: LargeKey (32 bytes, the fragment identity)
// and FragmentInfo (40 bytes, one per ingested fragment occurrence).
//
// Both types are designed to be read and written with raw
// encoding/binary calls against a little-endian wire layout — the same
// convention the rest of the on-disk format in lib/dedup follows. A
// LargeKey's low smallKey bit distinguishes its two logical shapes
// (key form vs. collision-alias form); callers that care which shape
// they have should call HasSize before reading size-dependent fields.
package fragment
