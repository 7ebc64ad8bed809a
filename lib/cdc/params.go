// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdc

import "fmt"

// Params configures a Cutter.
type Params struct {
	// MinFragmentSize is the smallest fragment the cutter will emit,
	// other than a trailing partial fragment at end of stream. It must
	// be a power of two and at most half of 1<<MaxFragmentBits.
	MinFragmentSize int

	// MaxFragmentBits bounds the largest possible fragment at
	// 1<<MaxFragmentBits bytes (before the IncludeZeroSize adjustment).
	// Only 19 and 20 are accepted.
	MaxFragmentBits int

	// AvgFragmentSize selects the rolling-hash cut probability. 6
	// targets a 64KiB mean fragment size, 7 a 128KiB mean.
	AvgFragmentSize int

	// IncludeZeroSize shrinks the maximum fragment size by one byte,
	// reserving room for a zero-length sentinel fragment downstream.
	IncludeZeroSize bool
}

func (p Params) maxFragmentSize() int {
	n := 1 << p.MaxFragmentBits
	if p.IncludeZeroSize {
		n--
	}
	return n
}

func (p Params) hashLimit() uint32 {
	return uint32(1<<(22-p.AvgFragmentSize)) + 4096
}

func (p Params) validate() error {
	if p.MaxFragmentBits != 19 && p.MaxFragmentBits != 20 {
		return fmt.Errorf("cdc: MaxFragmentBits must be 19 or 20, got %d", p.MaxFragmentBits)
	}
	if p.AvgFragmentSize != 6 && p.AvgFragmentSize != 7 {
		return fmt.Errorf("cdc: AvgFragmentSize must be 6 or 7, got %d", p.AvgFragmentSize)
	}
	if p.MinFragmentSize <= 0 || p.MinFragmentSize&(p.MinFragmentSize-1) != 0 {
		return fmt.Errorf("cdc: MinFragmentSize must be a positive power of two, got %d", p.MinFragmentSize)
	}
	if p.MinFragmentSize > (1<<p.MaxFragmentBits)/2 {
		return fmt.Errorf("cdc: MinFragmentSize %d exceeds half of 1<<MaxFragmentBits", p.MinFragmentSize)
	}
	return nil
}
