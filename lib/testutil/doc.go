// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for shardkeep packages.
//
// [SeededBytes] produces deterministic pseudo-random byte slices from
// a fixed seed, used by the CDC tests that need reproducible input
// streams.
//
// SeededBytes panics rather than returning an error if its seeded
// source fails, since test setup failures are not recoverable.
package testutil
