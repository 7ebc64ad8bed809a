// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "math/rand"

// SeededBytes returns n pseudo-random bytes generated from a
// deterministic seed. Two calls with the same seed and n always
// produce identical output; different seeds are overwhelmingly likely
// to produce different output. Used by fixtures that need distinct,
// reproducible file content without committing binary blobs to the
// repository.
func SeededBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		panic("testutil: reading from seeded rand source: " + err.Error())
	}
	return buf
}
