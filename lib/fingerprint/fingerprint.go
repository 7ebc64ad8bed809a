// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint defines the two external hash primitives the
// dedup core consumes (spec.md §1): a fragment-hash primitive
// producing a 32-byte digest, and a streaming fingerprint primitive
// over a LargeKey sequence. The core only depends on the interfaces
// below; this package also provides the default production
// implementations (BLAKE3 keyed hashing and streaming XXH3-64),
// following the teacher's domain-separated keyed-hash idiom.
package fingerprint

import (
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// FragmentHasher computes the content digest LargeKeyStorage packs
// into a fragment's LargeKey. Implementations must be deterministic:
// identical bytes always produce an identical digest.
type FragmentHasher interface {
	HashFragment(data []byte) [32]byte
}

// DictionaryFingerprinter computes a running fingerprint over the
// canonical LargeKey dictionary as it is emitted, in emission order.
// Write is called once per canonical key with its 32-byte wire
// encoding; Sum returns the fingerprint of everything written so far
// without disturbing further writes.
type DictionaryFingerprinter interface {
	Write(keyBytes [32]byte)
	Sum() uint64
	Reset()
}

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different digests
// in different contexts.
type domainKey [32]byte

// fragmentDomainKey is the sole domain used by this package: fragment
// content hashing for dedup identity. A second, unused domain key
// is deliberately not defined — nothing else in this core hashes
// anything BLAKE3-keyed, so a single domain is sufficient and a second
// one would be dead ceremony.
var fragmentDomainKey = domainKey{
	's', 'h', 'a', 'r', 'd', 'k', 'e', 'e', 'p', '.', 'f', 'r', 'a', 'g', 'm', 'e',
	'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// blake3Hasher is the default FragmentHasher: keyed BLAKE3 over the
// fragment-content domain.
type blake3Hasher struct{}

// NewBlake3Hasher returns the default FragmentHasher, backed by keyed
// BLAKE3 (github.com/zeebo/blake3), matching the keyed-hash pattern
// the teacher's lib/artifact/hash.go uses for chunk/container/file
// domain separation.
func NewBlake3Hasher() FragmentHasher {
	return blake3Hasher{}
}

func (blake3Hasher) HashFragment(data []byte) [32]byte {
	hasher, err := blake3.NewKeyed(fragmentDomainKey[:])
	if err != nil {
		panic("fingerprint: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// xxh3Fingerprinter is the default DictionaryFingerprinter: streaming
// XXH3-64 over the concatenated canonical key stream.
type xxh3Fingerprinter struct {
	hasher *xxh3.Hasher
}

// NewXXH3Fingerprinter returns the default DictionaryFingerprinter,
// backed by streaming XXH3-64 (github.com/zeebo/xxh3) — the primitive
// spec.md §4.4/§9 names for the canonical dictionary fingerprint.
func NewXXH3Fingerprinter() DictionaryFingerprinter {
	return &xxh3Fingerprinter{hasher: xxh3.New()}
}

func (f *xxh3Fingerprinter) Write(keyBytes [32]byte) {
	_, _ = f.hasher.Write(keyBytes[:])
}

func (f *xxh3Fingerprinter) Sum() uint64 {
	return f.hasher.Sum64()
}

func (f *xxh3Fingerprinter) Reset() {
	f.hasher.Reset()
}
