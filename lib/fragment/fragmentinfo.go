// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fragment

import "encoding/binary"

// InfoSize is the on-disk byte length of a FragmentInfo record.
const InfoSize = 40

// PaddingFileIndex marks a FragmentInfo record as a sentinel used to
// pad fi.log to the minimum alignment. Records with this FileIndex
// carry no data and are skipped by every consumer.
const PaddingFileIndex uint32 = 0xFFFFFFFF

// Info is one occurrence of a fragment within an ingested file: which
// canonical key it resolved to (SKIndex, 0 until assigned), which file
// it came from, and its byte offset within that file. The trailing
// L1/L2/L3 fields are the digest remainder of the fragment's LargeKey
// at the time it was hashed — carried on the record so ResolveCollisions
// can compare a logged fragment against the dictionary without
// re-reading the source file on the common (non-colliding) path.
type Info struct {
	SKIndex    uint32
	FileIndex  uint32
	FileOffset int64
	L1         uint64
	L2         uint64
	L3         uint64
}

// Key returns the (FileIndex, FileOffset) pair used to address this
// record in the fiReMap built during collision resolution.
func (fi Info) Key() Key {
	return Key{FileIndex: fi.FileIndex, FileOffset: fi.FileOffset}
}

// IsPadding reports whether this is a sentinel record inserted purely
// to align a log flush to the minimum write alignment.
func (fi Info) IsPadding() bool {
	return fi.FileIndex == PaddingFileIndex
}

// Padding returns a sentinel FragmentInfo record.
func Padding() Info {
	return Info{FileIndex: PaddingFileIndex}
}

// Key is the (fileIndex, fileOffset) identity of a single FragmentInfo
// record, used as the key of the remap map built by ResolveCollisions.
type Key struct {
	FileIndex  uint32
	FileOffset int64
}

// Bytes encodes the record into its 40-byte little-endian wire form.
func (fi Info) Bytes() [InfoSize]byte {
	var buf [InfoSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], fi.SKIndex)
	binary.LittleEndian.PutUint32(buf[4:8], fi.FileIndex)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(fi.FileOffset))
	binary.LittleEndian.PutUint64(buf[16:24], fi.L1)
	binary.LittleEndian.PutUint64(buf[24:32], fi.L2)
	binary.LittleEndian.PutUint64(buf[32:40], fi.L3)
	return buf
}

// ParseInfo decodes a 40-byte little-endian wire record into an Info.
// Panics if buf is shorter than InfoSize.
func ParseInfo(buf []byte) Info {
	if len(buf) < InfoSize {
		panic("fragment: buffer shorter than FragmentInfo size")
	}
	return Info{
		SKIndex:    binary.LittleEndian.Uint32(buf[0:4]),
		FileIndex:  binary.LittleEndian.Uint32(buf[4:8]),
		FileOffset: int64(binary.LittleEndian.Uint64(buf[8:16])),
		L1:         binary.LittleEndian.Uint64(buf[16:24]),
		L2:         binary.LittleEndian.Uint64(buf[24:32]),
		L3:         binary.LittleEndian.Uint64(buf[32:40]),
	}
}
