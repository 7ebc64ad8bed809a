// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/shardkeep/shardkeep/lib/extsort"
	"github.com/shardkeep/shardkeep/lib/fingerprint"
	"github.com/shardkeep/shardkeep/lib/fragment"
	"github.com/shardkeep/shardkeep/lib/rangemap"
	"github.com/shardkeep/shardkeep/lib/simdhash"
)

// fiFlushBatch and lkFlushBatch are the record counts at which
// Storage opportunistically flushes its in-memory buffers to disk.
// Both are multiples of the on-disk page-alignment unit (512
// FragmentInfo records / 128 LargeKey records), so a mid-run flush
// never needs padding — only the final flush does.
const (
	fiPageRecords  = 512
	lkPageRecords  = 128
	fiFlushBatch   = fiPageRecords * 8
	lkFlushBatch   = lkPageRecords * 8
	lkWindowRecord = 4096
)

// Options configures a Storage.
type Options struct {
	Hasher        fingerprint.FragmentHasher
	Fingerprinter fingerprint.DictionaryFingerprinter
	MemoryBudget  int64
	Logger        *slog.Logger
}

// Storage is LargeKeyStorage: the dedup identity engine described by
// the data model. It owns two on-disk logs (fiFile, lkFile) and a set
// of in-memory indexes that together decide whether a fragment is
// novel and, eventually, what every ingested file's final key list
// looks like.
type Storage struct {
	hasher fingerprint.FragmentHasher
	fp     fingerprint.DictionaryFingerprinter
	logger *slog.Logger

	memoryBudget int64

	hi          *simdhash.Index[uint64]
	hiCollision *simdhash.Index[fragment.LargeKey]
	low         *selector
	high        *selector
	rm          *rangemap.Mapper
	fiReMap     *simdhash.Map[fragment.Key, uint32]

	fiFile        extsort.File
	fiBuffer      []fragment.Info
	fiWriteOffset int64

	lkFile        extsort.File
	lkBuffer      []fragment.LargeKey
	lkWriteOffset int64
	lkWindowBase  uint32
	lkWindow      []fragment.LargeKey
}

// New returns a Storage backed by fiFile (the FragmentInfo log) and
// lkFile (the canonical LargeKey dictionary), both expected empty.
// hi is seeded with a zero-key sentinel occupying realIndex 0, and
// that sentinel is appended as the first dictionary record (buffered
// until the next lkFile flush), so every later realIndex lines up 1:1
// with its record position in lkFile.
func New(fiFile, lkFile extsort.File, opts Options) (*Storage, error) {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = fingerprint.NewBlake3Hasher()
	}
	fp := opts.Fingerprinter
	if fp == nil {
		fp = fingerprint.NewXXH3Fingerprinter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	budget := opts.MemoryBudget
	if budget == 0 {
		budget = extsort.DefaultMemoryBudget
	}

	s := &Storage{
		hasher:       hasher,
		fp:           fp,
		logger:       logger,
		memoryBudget: budget,
		hi:           simdhash.NewIndex[uint64](identityU64, simdhash.Options{Mode: simdhash.Std}),
		hiCollision:  simdhash.NewIndex[fragment.LargeKey](largeKeyHash, simdhash.Options{Mode: simdhash.Absl}),
		low:          newSelector(selectorSeedLow),
		high:         newSelector(selectorSeedHigh),
		rm:           rangemap.New(),
		fiReMap:      simdhash.NewMap[fragment.Key, uint32](fragmentKeyHash, simdhash.Options{}),
		fiFile:       fiFile,
		lkFile:       lkFile,
	}

	if _, inserted := s.hi.Add(uint64(0)); !inserted {
		return nil, fmt.Errorf("dedup: sentinel smallKey collided on an empty index (corruption)")
	}
	if err := s.appendLargeKey(fragment.LargeKey{}); err != nil {
		return nil, fmt.Errorf("dedup: writing sentinel dictionary record: %w", err)
	}
	return s, nil
}

// DictionaryCount returns the number of canonical dictionary entries
// registered so far, including the sentinel at realIndex 0.
func (s *Storage) DictionaryCount() int {
	return s.hi.Count()
}

func (s *Storage) selectorFor(isLow bool) *selector {
	if isLow {
		return s.low
	}
	return s.high
}

// Add records one occurrence of a fragment's content at
// (fileIndex, fileOffset), hashing data and deciding whether it is
// already known (exactly, or as a known collision alias), or whether
// it must wait for the next GetLargeKeys drain to find out. Reports
// whether this occurrence is the first ever seen for its identity.
func (s *Storage) Add(data []byte, fileIndex uint32, fileOffset int64, isLow bool) (bool, error) {
	digest := s.hasher.HashFragment(data)
	lk := fragment.NewKey(digest, uint32(len(data)))

	var skIndex uint32
	var novel bool
	resolved := false

	if hiIdx, ok := s.hi.TryGetIndex(lk.SmallKey); ok {
		if ckIdx, ok2 := s.hiCollision.TryGetIndex(lk); ok2 {
			alias := fragment.NewAlias(ckIdx, hiIdx, lk.L1, lk.L2, lk.L3)
			aliasIdx, ok3 := s.hi.TryGetIndex(alias.SmallKey)
			if !ok3 {
				return false, fmt.Errorf("dedup: alias smallKey %d missing from primary index (corruption)", alias.SmallKey)
			}
			skIndex = aliasIdx
			novel = false
			resolved = true
		} else {
			primary, err := s.readLargeKeyAt(hiIdx)
			if err != nil {
				return false, err
			}
			if primary.ShortCmp(lk) {
				skIndex = hiIdx
				novel = false
				resolved = true
			}
		}
	}

	if !resolved {
		sel := s.selectorFor(isLow)
		lookupIdx, inserted := sel.tryAdd(lk)
		if inserted {
			sel.index++
			skIndex = uint32(sel.index)
			novel = true
		} else {
			skIndex = uint32(sel.index) - uint32(sel.count()) + 1 + lookupIdx
			novel = false
		}
	}

	fi := fragment.Info{
		SKIndex:    skIndex,
		FileIndex:  fileIndex,
		FileOffset: fileOffset,
		L1:         lk.L1,
		L2:         lk.L2,
		L3:         lk.L3,
	}
	return novel, s.appendFragmentInfo(fi)
}

func (s *Storage) appendFragmentInfo(fi fragment.Info) error {
	s.fiBuffer = append(s.fiBuffer, fi)
	if len(s.fiBuffer) >= fiFlushBatch {
		return s.flushFI(false)
	}
	return nil
}

func (s *Storage) flushFI(final bool) error {
	n := len(s.fiBuffer)
	if final && n%fiPageRecords != 0 {
		for pad := fiPageRecords - n%fiPageRecords; pad > 0; pad-- {
			s.fiBuffer = append(s.fiBuffer, fragment.Padding())
		}
	}
	pages := len(s.fiBuffer) / fiPageRecords
	if pages == 0 {
		return nil
	}
	toWrite := s.fiBuffer[:pages*fiPageRecords]
	buf := make([]byte, len(toWrite)*fragment.InfoSize)
	for i, fi := range toWrite {
		b := fi.Bytes()
		copy(buf[i*fragment.InfoSize:], b[:])
	}
	if _, err := s.fiFile.Seek(s.fiWriteOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.fiFile.Write(buf); err != nil {
		return err
	}
	s.fiWriteOffset += int64(len(buf))
	s.fiBuffer = append([]fragment.Info(nil), s.fiBuffer[pages*fiPageRecords:]...)
	return nil
}

func (s *Storage) appendLargeKey(lk fragment.LargeKey) error {
	s.lkBuffer = append(s.lkBuffer, lk)
	if len(s.lkBuffer) >= lkFlushBatch {
		return s.flushLK(false)
	}
	return nil
}

func (s *Storage) flushLK(final bool) error {
	n := len(s.lkBuffer)
	if final && n%lkPageRecords != 0 {
		for pad := lkPageRecords - n%lkPageRecords; pad > 0; pad-- {
			s.lkBuffer = append(s.lkBuffer, fragment.LargeKey{})
		}
	}
	pages := len(s.lkBuffer) / lkPageRecords
	if pages == 0 {
		return nil
	}
	toWrite := s.lkBuffer[:pages*lkPageRecords]
	buf := make([]byte, len(toWrite)*fragment.Size)
	for i, lk := range toWrite {
		b := lk.Bytes()
		copy(buf[i*fragment.Size:], b[:])
	}
	if _, err := s.lkFile.Seek(s.lkWriteOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.lkFile.Write(buf); err != nil {
		return err
	}
	s.lkWriteOffset += int64(len(buf))
	s.lkBuffer = append([]fragment.LargeKey(nil), s.lkBuffer[pages*lkPageRecords:]...)
	return nil
}

// readLargeKeyAt returns the dictionary entry at dictionary position
// index, consulting the still-resident tail buffer for positions
// beyond what has been flushed to lkFile.
func (s *Storage) readLargeKeyAt(index uint32) (fragment.LargeKey, error) {
	flushedRecords := uint32(s.lkWriteOffset / fragment.Size)
	if index >= flushedRecords {
		off := index - flushedRecords
		if int(off) >= len(s.lkBuffer) {
			return fragment.LargeKey{}, fmt.Errorf("dedup: dictionary position %d not yet written", index)
		}
		return s.lkBuffer[off], nil
	}

	if index < s.lkWindowBase || index >= s.lkWindowBase+uint32(len(s.lkWindow)) {
		base := index
		if base >= lkWindowRecord/2 {
			base -= lkWindowRecord / 2
		} else {
			base = 0
		}
		count := lkWindowRecord
		if base+uint32(count) > flushedRecords {
			count = int(flushedRecords - base)
		}
		buf := make([]byte, count*fragment.Size)
		if _, err := s.lkFile.ReadAt(buf, int64(base)*fragment.Size); err != nil && err != io.EOF {
			return fragment.LargeKey{}, err
		}
		window := make([]fragment.LargeKey, count)
		for i := range window {
			window[i] = fragment.ParseLargeKey(buf[i*fragment.Size:])
		}
		s.lkWindowBase = base
		s.lkWindow = window
	}
	return s.lkWindow[index-s.lkWindowBase], nil
}
