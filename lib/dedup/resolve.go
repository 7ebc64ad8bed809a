// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"fmt"

	"github.com/shardkeep/shardkeep/lib/extsort"
	"github.com/shardkeep/shardkeep/lib/fragment"
)

// GetLargeKeys drains every entry accumulated in the low or high
// selector since its last drain, registering each as a canonical
// dictionary entry (or, if its smallKey is already taken, as a
// collision alias), appending it to the dictionary log, and folding
// it into the running fingerprint. out is reused as scratch space for
// the returned slice.
//
// The provisional skIndex range this selector handed out between
// drains is registered with the RangeMapper so ResolveCollisions can
// later translate it to the dictionary positions assigned here.
func (s *Storage) GetLargeKeys(isLow bool, out []fragment.LargeKey) ([]fragment.LargeKey, uint64, error) {
	sel := s.selectorFor(isLow)
	count := sel.count()
	startIndex := uint32(s.hi.Count())
	keys := out[:0]

	var rangeErr error
	sel.table.Range(func(_ uint32, k fragment.LargeKey) bool {
		hiIdx, inserted := s.hi.Add(k.SmallKey)
		final := k
		if !inserted {
			ckIdx, _ := s.hiCollision.Add(k)
			alias := fragment.NewAlias(ckIdx, hiIdx, k.L1, k.L2, k.L3)
			if _, ok := s.hi.Add(alias.SmallKey); !ok {
				rangeErr = fmt.Errorf("dedup: alias smallKey %d already present (corruption)", alias.SmallKey)
				return false
			}
			final = alias
		}
		if err := s.appendLargeKey(final); err != nil {
			rangeErr = err
			return false
		}
		s.fp.Write(final.Bytes())
		keys = append(keys, final)
		return true
	})
	if rangeErr != nil {
		return nil, 0, rangeErr
	}

	if count > 0 {
		lo := uint32(sel.index) - uint32(count) + 1
		s.rm.AddRange(isLow, lo, startIndex, uint32(count))
	}
	sel.clear()
	return keys, s.fp.Sum(), nil
}

// ReadFragment re-reads size bytes of a fragment's original content
// from fileIndex at fileOffset into scratch[:size]. It reports false
// when the source file cannot be read as logged (moved, truncated,
// modified) so ResolveCollisions can drop the record instead of
// treating the failure as fatal.
type ReadFragment func(scratch []byte, size uint32, fileIndex uint32, fileOffset int64) bool

// NewAliasObserver is invoked once for every alias LargeKey newly
// discovered while resolving collisions — a hook for callers that
// want to mirror dictionary growth (e.g. into a separate index) without
// re-deriving it from lk.dat.
type NewAliasObserver func(realIndex uint32, lk fragment.LargeKey)

// ResolveCollisions finalizes every FragmentInfo logged since
// construction: the fi.log is flushed and sorted by (remapped)
// skIndex, and each record is checked against the dictionary entry at
// its final position. A mismatch means the position was claimed by a
// genuine smallKey collision; ResolveCollisions re-reads the
// fragment's original bytes to confirm its identity, recording it as
// a new alias or, if the source no longer matches, dropping the
// record. The dropped/remapped destinations are recorded so
// GetFileIndexInfo can apply them. Returns the final dictionary
// fingerprint.
func (s *Storage) ResolveCollisions(scratch []byte, readFragment ReadFragment, onNewAlias NewAliasObserver) (uint64, error) {
	if err := s.flushFI(true); err != nil {
		return 0, err
	}
	if err := s.flushLK(false); err != nil {
		return 0, err
	}

	less := func(a, b []byte) bool {
		return fragment.ParseInfo(a).SKIndex < fragment.ParseInfo(b).SKIndex
	}
	preSort := func(rec []byte) {
		fi := fragment.ParseInfo(rec)
		remapped := s.rm.Remap(fi.SKIndex)
		if remapped != fi.SKIndex {
			fi.SKIndex = remapped
			b := fi.Bytes()
			copy(rec, b[:])
		}
	}

	sorter := &extsort.Sorter{RecordSize: fragment.InfoSize, Less: less, MemoryBudget: s.memoryBudget}
	if err := sorter.ChunkSort(s.fiFile, preSort, nil); err != nil {
		return 0, err
	}

	err := sorter.Sort(s.fiFile, func(rec []byte) error {
		fi := fragment.ParseInfo(rec)
		if fi.SKIndex == 0 {
			return nil
		}
		return s.resolveOne(fi, scratch, readFragment, onNewAlias)
	})
	if err != nil {
		return 0, err
	}

	if err := s.flushLK(true); err != nil {
		return 0, err
	}
	return s.fp.Sum(), nil
}

func (s *Storage) resolveOne(fi fragment.Info, scratch []byte, readFragment ReadFragment, onNewAlias NewAliasObserver) error {
	remainder := fragment.LargeKey{L1: fi.L1, L2: fi.L2, L3: fi.L3}

	lk, err := s.readLargeKeyAt(fi.SKIndex)
	if err != nil {
		return err
	}
	if lk.ShortCmp(remainder) {
		return nil
	}
	if !lk.HasSize() {
		return fmt.Errorf("dedup: dictionary entry %d is an alias but a mismatched record targets it (corruption)", fi.SKIndex)
	}

	clk := fragment.LargeKey{SmallKey: lk.SmallKey, L1: fi.L1, L2: fi.L2, L3: fi.L3}
	if ckIdx, ok := s.hiCollision.TryGetIndex(clk); ok {
		alias := fragment.NewAlias(ckIdx, fi.SKIndex, fi.L1, fi.L2, fi.L3)
		finalIdx, ok2 := s.hi.TryGetIndex(alias.SmallKey)
		if !ok2 {
			return fmt.Errorf("dedup: known collision alias smallKey %d missing from primary index (corruption)", alias.SmallKey)
		}
		s.fiReMap.AddOrUpdate(fi.Key(), finalIdx)
		return nil
	}

	size := lk.Size()
	if int(size) > len(scratch) {
		return fmt.Errorf("dedup: scratch buffer of %d bytes too small for fragment of size %d", len(scratch), size)
	}
	if !readFragment(scratch[:size], size, fi.FileIndex, fi.FileOffset) {
		s.fiReMap.AddOrUpdate(fi.Key(), 0)
		return nil
	}
	digest := s.hasher.HashFragment(scratch[:size])
	rehashed := fragment.NewKey(digest, size)
	if !rehashed.ShortCmp(remainder) {
		s.fiReMap.AddOrUpdate(fi.Key(), 0)
		return nil
	}

	ckIdx, _ := s.hiCollision.Add(clk)
	alias := fragment.NewAlias(ckIdx, fi.SKIndex, fi.L1, fi.L2, fi.L3)
	newIdx, inserted := s.hi.Add(alias.SmallKey)
	if !inserted {
		return fmt.Errorf("dedup: newly minted alias smallKey %d already present (corruption)", alias.SmallKey)
	}
	if err := s.appendLargeKey(alias); err != nil {
		return err
	}
	s.fp.Write(alias.Bytes())
	if onNewAlias != nil {
		onNewAlias(newIdx, alias)
	}
	s.fiReMap.AddOrUpdate(fi.Key(), newIdx)
	return nil
}

// GetFileIndexInfo re-sorts fi.log by (fileIndex, fileOffset),
// applying any remap ResolveCollisions recorded, and calls sink once
// per file with its ordered key list. Keys equal to 0 mean the
// fragment at that position was dropped (its source file changed
// between logging and ResolveCollisions); sink is not called at all
// for a file whose key list contains any such dropped entry, matching
// the data model's "modified source drops the whole file" rule.
func (s *Storage) GetFileIndexInfo(sink func(fileIndex uint32, keys []uint32) error) error {
	less := func(a, b []byte) bool {
		fa, fb := fragment.ParseInfo(a), fragment.ParseInfo(b)
		if fa.FileIndex != fb.FileIndex {
			return fa.FileIndex < fb.FileIndex
		}
		return fa.FileOffset < fb.FileOffset
	}
	preSort := func(rec []byte) {
		fi := fragment.ParseInfo(rec)
		if fi.IsPadding() {
			return
		}
		if remapped, ok := s.fiReMap.TryGetValue(fi.Key()); ok {
			fi.SKIndex = remapped
			b := fi.Bytes()
			copy(rec, b[:])
		}
	}

	sorter := &extsort.Sorter{RecordSize: fragment.InfoSize, Less: less, MemoryBudget: s.memoryBudget}
	if err := sorter.ChunkSort(s.fiFile, preSort, nil); err != nil {
		return err
	}

	var curFile uint32
	var curKeys []uint32
	haveCur := false
	dropped := false

	flush := func() error {
		if !haveCur {
			return nil
		}
		if !dropped {
			if err := sink(curFile, curKeys); err != nil {
				return err
			}
		}
		curKeys = nil
		dropped = false
		return nil
	}

	err := sorter.Sort(s.fiFile, func(rec []byte) error {
		fi := fragment.ParseInfo(rec)
		if fi.IsPadding() {
			return nil
		}
		if !haveCur || fi.FileIndex != curFile {
			if err := flush(); err != nil {
				return err
			}
			curFile = fi.FileIndex
			haveCur = true
		}
		if fi.SKIndex == 0 {
			dropped = true
		}
		curKeys = append(curKeys, fi.SKIndex)
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}
