// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
)

// printStats writes a human-readable summary of one ingest run to w.
func printStats(w io.Writer, stats runStats) {
	fmt.Fprintf(w, "files scanned:       %d\n", stats.FilesScanned)
	fmt.Fprintf(w, "directories:         %d\n", stats.DistinctDirectories)
	if stats.FilesDropped > 0 {
		fmt.Fprintf(w, "files dropped:       %d (source changed during the run)\n", stats.FilesDropped)
	}
	fmt.Fprintf(w, "fragments seen:      %d\n", stats.FragmentsSeen)
	fmt.Fprintf(w, "fragments novel:     %d\n", stats.FragmentsNovel)
	fmt.Fprintf(w, "dictionary entries:  %d\n", stats.DictionaryEntries)
	fmt.Fprintf(w, "fingerprint:         %016x\n", stats.Fingerprint)
	fmt.Fprintf(w, "bytes in:            %d\n", stats.BytesIn)

	if !stats.CompressionActive {
		return
	}
	fmt.Fprintf(w, "bytes out:           %d\n", stats.BytesOut)
	if stats.BytesIn > 0 {
		ratio := float64(stats.BytesOut) / float64(stats.BytesIn)
		fmt.Fprintf(w, "compression ratio:   %.3f\n", ratio)
	}
}
