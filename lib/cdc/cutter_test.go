// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdc

import (
	"testing"

	"github.com/shardkeep/shardkeep/lib/testutil"
)

// sliceSource adapts an in-memory byte slice to the Source callback
// shape, honoring the consumed-since-last-call protocol.
func sliceSource(data []byte) Source {
	offset := 0
	return func(consumed int, requestedSize int) ([]byte, bool) {
		offset += consumed
		if offset >= len(data) {
			return nil, false
		}
		end := offset + requestedSize
		if end > len(data) {
			end = len(data)
		}
		return data[offset:end], true
	}
}

func cutAll(t *testing.T, params Params, data []byte) ([][]byte, []int) {
	t.Helper()
	c, err := New(params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var fragments [][]byte
	var scores []int
	c.Cut(sliceSource(data), func(d []byte, score int) {
		cp := make([]byte, len(d))
		copy(cp, d)
		fragments = append(fragments, cp)
		scores = append(scores, score)
	})
	return fragments, scores
}

func TestNewRejectsInvalidParams(t *testing.T) {
	cases := []Params{
		{MinFragmentSize: 4096, MaxFragmentBits: 18, AvgFragmentSize: 6},
		{MinFragmentSize: 4096, MaxFragmentBits: 19, AvgFragmentSize: 5},
		{MinFragmentSize: 4097, MaxFragmentBits: 19, AvgFragmentSize: 6},
		{MinFragmentSize: 1 << 19, MaxFragmentBits: 19, AvgFragmentSize: 6},
	}
	for _, p := range cases {
		if _, err := New(p); err == nil {
			t.Errorf("New(%+v) unexpectedly succeeded", p)
		}
	}
}

func TestEmptyStreamEmitsNothing(t *testing.T) {
	fragments, _ := cutAll(t, Params{MinFragmentSize: 4096, MaxFragmentBits: 19, AvgFragmentSize: 6}, nil)
	if len(fragments) != 0 {
		t.Fatalf("expected no fragments for an empty stream, got %d", len(fragments))
	}
}

func TestFragmentLengthsRespectBounds(t *testing.T) {
	params := Params{MinFragmentSize: 4096, MaxFragmentBits: 19, AvgFragmentSize: 6, IncludeZeroSize: true}
	data := testutil.SeededBytes(1, 4<<20)

	fragments, _ := cutAll(t, params, data)
	if len(fragments) == 0 {
		t.Fatal("expected at least one fragment")
	}

	total := 0
	maxSize := params.maxFragmentSize()
	for i, f := range fragments {
		total += len(f)
		last := i == len(fragments)-1
		if len(f) > maxSize {
			t.Fatalf("fragment %d length %d exceeds max %d", i, len(f), maxSize)
		}
		if !last && len(f) < params.MinFragmentSize {
			t.Fatalf("non-trailing fragment %d length %d below min %d", i, len(f), params.MinFragmentSize)
		}
	}
	if total != len(data) {
		t.Fatalf("fragment lengths sum to %d, want %d", total, len(data))
	}
}

func TestCutIsDeterministic(t *testing.T) {
	params := Params{MinFragmentSize: 4096, MaxFragmentBits: 19, AvgFragmentSize: 6, IncludeZeroSize: true}
	data := testutil.SeededBytes(7, 2<<20)

	fragments1, _ := cutAll(t, params, data)
	fragments2, _ := cutAll(t, params, data)

	if len(fragments1) != len(fragments2) {
		t.Fatalf("fragment counts differ: %d vs %d", len(fragments1), len(fragments2))
	}
	for i := range fragments1 {
		if len(fragments1[i]) != len(fragments2[i]) {
			t.Fatalf("fragment %d length differs across runs: %d vs %d", i, len(fragments1[i]), len(fragments2[i]))
		}
	}
}

// TestRepeatingByteForcesMaxSizeFragments reproduces the reference
// scenario of a stream of 1,048,576 repetitions of 0x41 against
// MinFragmentSize=4096, MaxFragmentBits=19, AvgFragmentSize=6,
// IncludeZeroSize=true: the rolling hash never dips below hashLimit on
// this input, so every fragment but the trailing remainder is forced
// to the maximum size of 2^19-1 bytes.
func TestRepeatingByteForcesMaxSizeFragments(t *testing.T) {
	params := Params{MinFragmentSize: 4096, MaxFragmentBits: 19, AvgFragmentSize: 6, IncludeZeroSize: true}
	data := make([]byte, 1048576)
	for i := range data {
		data[i] = 0x41
	}

	fragments, _ := cutAll(t, params, data)
	maxSize := params.maxFragmentSize()

	total := 0
	for i, f := range fragments {
		total += len(f)
		last := i == len(fragments)-1
		if !last && len(f) != maxSize {
			t.Fatalf("fragment %d length %d, want max size %d", i, len(f), maxSize)
		}
	}
	if total != len(data) {
		t.Fatalf("fragment lengths sum to %d, want %d", total, len(data))
	}
}
