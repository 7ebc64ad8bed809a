// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shardkeep/shardkeep/lib/cdc"
	"github.com/shardkeep/shardkeep/lib/dedup"
	"github.com/shardkeep/shardkeep/lib/extsort"
	"github.com/shardkeep/shardkeep/lib/fileindex"
	"github.com/shardkeep/shardkeep/lib/storeconfig"
	"github.com/shardkeep/shardkeep/lib/strtable"
)

// runStats summarizes one ingest pass, printed to the operator at the
// end of the run.
type runStats struct {
	FilesScanned        int
	FilesDropped        int
	DistinctDirectories int
	FragmentsSeen       int
	FragmentsNovel      int
	BytesIn             int64
	BytesOut            int64
	CompressionActive   bool
	DictionaryEntries   int
	Fingerprint         uint64
}

// ingest runs the full walk -> CDC -> dedup -> resolve -> persist
// pipeline described by the core's data flow and returns a summary.
func ingest(cfg *storeconfig.Config, logger *slog.Logger) (runStats, error) {
	var stats runStats

	if err := os.MkdirAll(cfg.Paths.State, 0o755); err != nil {
		return stats, fmt.Errorf("creating state directory %s: %w", cfg.Paths.State, err)
	}

	fiFile, err := extsort.Create(filepath.Join(cfg.Paths.State, "fi.log"))
	if err != nil {
		return stats, fmt.Errorf("creating fragment log: %w", err)
	}
	defer fiFile.Close()

	lkFile, err := extsort.Create(filepath.Join(cfg.Paths.State, "lk.dat"))
	if err != nil {
		return stats, fmt.Errorf("creating key dictionary: %w", err)
	}
	defer lkFile.Close()

	memoryBudget := extsort.DefaultMemoryBudget
	if cfg.Dedup.MemoryBudgetMB > 0 {
		memoryBudget = cfg.Dedup.MemoryBudgetMB * 1024 * 1024
	}

	storage, err := dedup.New(fiFile, lkFile, dedup.Options{
		MemoryBudget: memoryBudget,
		Logger:       logger,
	})
	if err != nil {
		return stats, fmt.Errorf("initializing dedup storage: %w", err)
	}

	var sink dedup.FragmentSink
	lowThreshold, highThreshold := cfg.Sink.LowEntropyBelow, cfg.Sink.HighEntropyAt
	if cfg.Sink.Enabled {
		sink, err = dedup.NewScoreThresholdSink(lowThreshold, highThreshold)
		if err != nil {
			return stats, fmt.Errorf("initializing compression sink: %w", err)
		}
		stats.CompressionActive = true
	}
	isLowEntropy := func(score int) bool {
		return score < (lowThreshold+highThreshold)/2
	}

	cutter, err := cdc.New(cdc.Params{
		MinFragmentSize: cfg.CDC.MinFragmentSize,
		MaxFragmentBits: cfg.CDC.MaxFragmentBits,
		AvgFragmentSize: cfg.CDC.AvgFragmentSize,
	})
	if err != nil {
		return stats, fmt.Errorf("initializing chunker: %w", err)
	}

	paths, err := enumerateFiles(cfg.Paths.Scan)
	if err != nil {
		return stats, err
	}

	dirs := strtable.New()
	for fileIndex, path := range paths {
		dirs.Add(filepath.Dir(path))

		if err := ingestFile(storage, cutter, sink, uint32(fileIndex), path, isLowEntropy, &stats); err != nil {
			return stats, fmt.Errorf("ingesting %s: %w", path, err)
		}
		if _, _, err := storage.GetLargeKeys(false, nil); err != nil {
			return stats, fmt.Errorf("draining high-entropy selector: %w", err)
		}
		if _, _, err := storage.GetLargeKeys(true, nil); err != nil {
			return stats, fmt.Errorf("draining low-entropy selector: %w", err)
		}
	}
	stats.FilesScanned = len(paths)
	stats.DistinctDirectories = dirs.Count()

	scratch := make([]byte, 1<<cfg.CDC.MaxFragmentBits)
	readFragment := func(buf []byte, size uint32, fileIndex uint32, offset int64) bool {
		if int(fileIndex) >= len(paths) {
			return false
		}
		return readFragmentAt(paths[fileIndex], buf, size, offset)
	}
	fingerprint, err := storage.ResolveCollisions(scratch, readFragment, nil)
	if err != nil {
		return stats, fmt.Errorf("resolving collisions: %w", err)
	}
	stats.Fingerprint = fingerprint
	stats.DictionaryEntries = storage.DictionaryCount()

	indexFile, err := os.Create(filepath.Join(cfg.Paths.State, "fileindex.cbor"))
	if err != nil {
		return stats, fmt.Errorf("creating file index: %w", err)
	}
	defer indexFile.Close()
	writer := fileindex.NewWriter(indexFile)

	err = storage.GetFileIndexInfo(func(fileIndex uint32, keys []uint32) error {
		return writer.Put(fileIndex, keys)
	})
	if err != nil {
		return stats, fmt.Errorf("writing file index: %w", err)
	}
	stats.FilesDropped = stats.FilesScanned - countIndexedFiles(cfg, logger)

	return stats, nil
}

// ingestFile feeds one file's bytes through the cutter, routing each
// emitted fragment to the dedup engine (and, if enabled, the
// compression sink for byte-count statistics only).
func ingestFile(
	storage *dedup.Storage,
	cutter *cdc.Cutter,
	sink dedup.FragmentSink,
	fileIndex uint32,
	path string,
	isLowEntropy func(score int) bool,
	stats *runStats,
) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var offset int64
	var innerErr error

	source := newSequentialSource(file)
	cutter.Cut(source.asCDCSource(), func(data []byte, score int) {
		if innerErr != nil {
			return
		}
		fragmentOffset := offset
		offset += int64(len(data))

		novel, err := storage.Add(data, fileIndex, fragmentOffset, isLowEntropy(score))
		if err != nil {
			innerErr = err
			return
		}
		stats.FragmentsSeen++
		if novel {
			stats.FragmentsNovel++
		}
		stats.BytesIn += int64(len(data))

		if sink == nil {
			stats.BytesOut += int64(len(data))
			return
		}
		compressed, _, err := sink.Compress(data, score)
		if err != nil {
			innerErr = err
			return
		}
		stats.BytesOut += int64(len(compressed))
	})
	return innerErr
}

// countIndexedFiles re-reads the file index just written to count how
// many files actually survived (were not dropped for content drift).
// ResolveCollisions/GetFileIndexInfo don't return this count directly,
// so the persisted index is the source of truth.
func countIndexedFiles(cfg *storeconfig.Config, logger *slog.Logger) int {
	file, err := os.Open(filepath.Join(cfg.Paths.State, "fileindex.cbor"))
	if err != nil {
		logger.Warn("could not reopen file index to count entries", "error", err)
		return 0
	}
	defer file.Close()

	records, err := fileindex.ReadAll(file)
	if err != nil {
		logger.Warn("could not read file index back", "error", err)
		return 0
	}
	return len(records)
}
