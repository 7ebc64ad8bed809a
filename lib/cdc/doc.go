// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cdc implements CDC.Zpaq, the content-defined chunker that
// partitions a byte stream into variable-length fragments whose
// boundaries depend on content rather than fixed offsets.
//
// The cutter is driven by a producer callback rather than an
// io.Reader: Cut repeatedly calls source to pull more bytes, reports
// each finalized fragment to sink along with a cheap entropy score,
// and returns once source signals end of stream. This mirrors the
// teacher's lib/artifact/chunker.go Chunker.Next() iterator shape, but
// the boundary algorithm itself — a Zpaq-style rolling hash with a
// per-fragment order-1 table, rather than GearHash — is specific to
// this package and is not shared with the teacher.
package cdc
