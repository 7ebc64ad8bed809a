// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how a fragment's stored bytes were
// compressed, independent of its dedup identity: LargeKeyStorage
// always hashes and indexes the uncompressed fragment (Invariant 5),
// so a tag chosen here can never affect what Add decides.
type CompressionTag uint8

const (
	// CompressionNone stores the fragment's bytes unchanged. Used for
	// high-entropy fragments (a CDC score near or at the match rate
	// ceiling usually means already-compressed or random content),
	// where compression would spend CPU without shrinking anything.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is the fast default for fragments whose entropy
	// score is at or above the low-entropy threshold but below the
	// high-entropy one.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd gives a better ratio for clearly low-entropy
	// (repetitive/text-like) fragments, at higher CPU cost.
	CompressionZstd CompressionTag = 2
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// FragmentSink compresses a fragment's bytes for storage, choosing a
// codec however it likes. It never participates in dedup identity:
// LargeKeyStorage.Add always receives the fragment's original,
// uncompressed bytes.
type FragmentSink interface {
	Compress(data []byte, score int) ([]byte, CompressionTag, error)
	Decompress(compressed []byte, tag CompressionTag, size int) ([]byte, error)
}

// ScoreThresholdSink is the default FragmentSink: fragments scoring
// below LowEntropyBelow route to Zstd, fragments at or above it but
// below HighEntropyAt route to LZ4, and fragments at or above
// HighEntropyAt are stored raw. Score is CDC's hits*100/length from
// lib/cdc, so lower scores mean more chunking-hash matches within the
// fragment — a proxy for repetitive, more compressible content.
type ScoreThresholdSink struct {
	LowEntropyBelow int
	HighEntropyAt   int

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewScoreThresholdSink returns a ScoreThresholdSink with the given
// thresholds. Zero values fall back to 10 and 60, the teacher's
// zstd/LZ4/none split applied to a 0-100 score rather than a
// compression-ratio probe.
func NewScoreThresholdSink(lowEntropyBelow, highEntropyAt int) (*ScoreThresholdSink, error) {
	if lowEntropyBelow == 0 {
		lowEntropyBelow = 10
	}
	if highEntropyAt == 0 {
		highEntropyAt = 60
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("dedup: zstd encoder init: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("dedup: zstd decoder init: %w", err)
	}
	return &ScoreThresholdSink{LowEntropyBelow: lowEntropyBelow, HighEntropyAt: highEntropyAt, enc: enc, dec: dec}, nil
}

func (s *ScoreThresholdSink) Compress(data []byte, score int) ([]byte, CompressionTag, error) {
	switch {
	case score < s.LowEntropyBelow:
		compressed := s.enc.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return data, CompressionNone, nil
		}
		return compressed, CompressionZstd, nil
	case score < s.HighEntropyAt:
		bound := lz4.CompressBlockBound(len(data))
		dst := make([]byte, bound)
		written, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("dedup: lz4 compress: %w", err)
		}
		if written == 0 || written >= len(data) {
			return data, CompressionNone, nil
		}
		return dst[:written], CompressionLZ4, nil
	default:
		return data, CompressionNone, nil
	}
}

func (s *ScoreThresholdSink) Decompress(compressed []byte, tag CompressionTag, size int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(compressed) != size {
			return nil, fmt.Errorf("dedup: uncompressed fragment size %d, want %d", len(compressed), size)
		}
		return compressed, nil
	case CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(compressed, dst)
		if err != nil {
			return nil, fmt.Errorf("dedup: lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("dedup: lz4 decompressed %d bytes, want %d", n, size)
		}
		return dst, nil
	case CompressionZstd:
		result, err := s.dec.DecodeAll(compressed, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("dedup: zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("dedup: zstd decompressed %d bytes, want %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("dedup: unsupported compression tag %d", tag)
	}
}
