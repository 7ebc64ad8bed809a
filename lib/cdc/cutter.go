// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cdc

// Source supplies the bytes a Cutter consumes. consumed reports how
// many bytes from the previously returned chunk the cutter has fully
// processed, letting the producer advance or release a read cursor
// before handing back the next chunk. requestedSize is a hint, not a
// guarantee; the producer may return fewer bytes. ok is false once the
// stream is exhausted, at which point chunk is ignored.
type Source func(consumed int, requestedSize int) (chunk []byte, ok bool)

// Sink receives one finalized fragment. data is owned by the cutter
// and must not be retained past the call; score is hits*100/length, a
// cheap proxy for how repetitive the fragment's bytes were.
type Sink func(data []byte, score int)

// Cutter partitions a byte stream into content-defined fragments using
// a Zpaq-style rolling hash with a per-fragment order-1 byte table.
type Cutter struct {
	params Params
}

// New validates params and returns a Cutter. It returns an error if
// params is inconsistent (see Params field docs).
func New(params Params) (*Cutter, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Cutter{params: params}, nil
}

// Cut drives source to exhaustion, reporting each finalized fragment to
// sink in stream order. A trailing partial fragment shorter than
// MinFragmentSize is still reported once the stream ends.
func (c *Cutter) Cut(source Source, sink Sink) {
	var (
		o1       [256]byte
		hash     uint32
		hits     uint32
		prev     byte
		fragment []byte
	)

	minSize := c.params.MinFragmentSize
	maxSize := c.params.maxFragmentSize()
	limit := c.params.hashLimit()

	emit := func() {
		n := len(fragment)
		score := int(hits) * 100 / n
		sink(fragment, score)
		fragment = nil
		hash, hits, prev = 0, 0, 0
		o1 = [256]byte{}
	}

	consumed := 0
	for {
		chunk, ok := source(consumed, maxSize)
		if !ok {
			break
		}
		for _, b := range chunk {
			idx := o1[prev] ^ b
			hash = (hash + 1 + uint32(b)) * fastMultTable[idx]
			hits += fastSumTable[idx]
			o1[prev] = b
			prev = b

			fragment = append(fragment, b)
			n := len(fragment)
			if n < minSize {
				continue
			}
			if hash < limit || n >= maxSize {
				emit()
			}
		}
		consumed = len(chunk)
	}

	if len(fragment) > 0 {
		emit()
	}
}
