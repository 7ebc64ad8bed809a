// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdc

// fastMultTable and fastSumTable are the two 256-entry constant tables
// the Zpaq-style rolling hash multiplies and accumulates against on
// every byte. They are indexed by the XOR of the current byte and the
// order-1 predecessor stored in o1: fastMultTable drives the rolling
// hash, and fastSumTable decides how strongly local byte repetition
// raises the hit counter (and therefore the entropy score).
var (
	fastMultTable [256]uint32
	fastSumTable  [256]uint32
)

func init() {
	for i := range fastMultTable {
		fastMultTable[i] = 271828182
	}
	fastMultTable[0] = 314159265

	// fastSumTable stays zero everywhere except index 0: hits only
	// increases when the current byte exactly matches its order-1
	// predecessor's last successor, a cheap proxy for local repetition.
	fastSumTable[0] = 1
}
