// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package storeconfig provides YAML configuration loading for
// shardkeep.
//
// Configuration is loaded from a single file specified by either the
// SHARDKEEP_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This ensures deterministic,
// auditable configuration with no hidden overrides.
package storeconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a shardkeep run.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// CDC configures the content-defined chunker.
	CDC CDCConfig `yaml:"cdc"`

	// Dedup configures the dedup identity engine.
	Dedup DedupConfig `yaml:"dedup"`

	// Sink configures the optional fragment compression router.
	Sink SinkConfig `yaml:"sink"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Scan is the directory walked for input files.
	Scan string `yaml:"scan"`

	// State is where fi.log, lk.dat, and the persisted file index are
	// written.
	State string `yaml:"state"`
}

// CDCConfig configures the content-defined chunker (lib/cdc.Params).
type CDCConfig struct {
	// MinFragmentSize is the smallest fragment the cutter will emit.
	// Must be a power of two.
	MinFragmentSize int `yaml:"min_fragment_size"`

	// MaxFragmentBits bounds the largest possible fragment at
	// 1<<MaxFragmentBits bytes. Only 19 and 20 are accepted.
	MaxFragmentBits int `yaml:"max_fragment_bits"`

	// AvgFragmentSize selects the rolling-hash cut probability. 6
	// targets a 64KiB mean fragment size, 7 a 128KiB mean.
	AvgFragmentSize int `yaml:"avg_fragment_size"`
}

// DedupConfig configures the dedup identity engine (lib/dedup.Options).
type DedupConfig struct {
	// MemoryBudgetMB bounds the in-memory chunk size extsort uses when
	// sorting fi.log. 0 means use the package default.
	MemoryBudgetMB int64 `yaml:"memory_budget_mb"`
}

// SinkConfig configures the optional entropy-routed fragment
// compressor (lib/dedup.ScoreThresholdSink).
type SinkConfig struct {
	// Enabled turns on compression routing. When false, fragments are
	// stored uncompressed and CDC, extsort, and dedup still get
	// exercised in full.
	Enabled bool `yaml:"enabled"`

	// LowEntropyBelow is the score (hits*100/len) below which a
	// fragment is routed to zstd.
	LowEntropyBelow int `yaml:"low_entropy_below"`

	// HighEntropyAt is the score at or above which a fragment is
	// stored uncompressed. Scores from LowEntropyBelow up to (but not
	// including) HighEntropyAt route to LZ4.
	HighEntropyAt int `yaml:"high_entropy_at"`
}

// Default returns the default configuration. These defaults exist to
// give every field a sensible zero-value, not as a fallback — the
// config file is still required.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Scan:  ".",
			State: "./shardkeep-state",
		},
		CDC: CDCConfig{
			MinFragmentSize: 4096,
			MaxFragmentBits: 20,
			AvgFragmentSize: 6,
		},
		Dedup: DedupConfig{
			MemoryBudgetMB: 64,
		},
		Sink: SinkConfig{
			Enabled:         false,
			LowEntropyBelow: 10,
			HighEntropyAt:   60,
		},
	}
}

// Load loads configuration from the SHARDKEEP_CONFIG environment
// variable. There is no fallback — if the variable is unset, this
// fails.
func Load() (*Config, error) {
	path := os.Getenv("SHARDKEEP_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("storeconfig: SHARDKEEP_CONFIG environment variable not set; " +
			"set it to a config file path, or pass --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging it
// onto [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storeconfig: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("storeconfig: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("storeconfig: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Scan == "" {
		errs = append(errs, fmt.Errorf("paths.scan is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	if c.CDC.MaxFragmentBits != 19 && c.CDC.MaxFragmentBits != 20 {
		errs = append(errs, fmt.Errorf("cdc.max_fragment_bits must be 19 or 20, got %d", c.CDC.MaxFragmentBits))
	}
	if c.CDC.AvgFragmentSize != 6 && c.CDC.AvgFragmentSize != 7 {
		errs = append(errs, fmt.Errorf("cdc.avg_fragment_size must be 6 or 7, got %d", c.CDC.AvgFragmentSize))
	}
	if c.CDC.MinFragmentSize <= 0 || c.CDC.MinFragmentSize&(c.CDC.MinFragmentSize-1) != 0 {
		errs = append(errs, fmt.Errorf("cdc.min_fragment_size must be a positive power of two, got %d", c.CDC.MinFragmentSize))
	}

	if c.Dedup.MemoryBudgetMB < 0 {
		errs = append(errs, fmt.Errorf("dedup.memory_budget_mb must not be negative, got %d", c.Dedup.MemoryBudgetMB))
	}

	if c.Sink.LowEntropyBelow < 0 || c.Sink.LowEntropyBelow > 100 {
		errs = append(errs, fmt.Errorf("sink.low_entropy_below must be in [0,100], got %d", c.Sink.LowEntropyBelow))
	}
	if c.Sink.HighEntropyAt < 0 || c.Sink.HighEntropyAt > 100 {
		errs = append(errs, fmt.Errorf("sink.high_entropy_at must be in [0,100], got %d", c.Sink.HighEntropyAt))
	}
	if c.Sink.LowEntropyBelow > c.Sink.HighEntropyAt {
		errs = append(errs, fmt.Errorf("sink.low_entropy_below (%d) must not exceed sink.high_entropy_at (%d)",
			c.Sink.LowEntropyBelow, c.Sink.HighEntropyAt))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
