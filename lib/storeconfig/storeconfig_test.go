// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storeconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Paths.Scan != "." {
		t.Errorf("expected paths.scan=., got %s", cfg.Paths.Scan)
	}
	if cfg.CDC.MaxFragmentBits != 20 {
		t.Errorf("expected cdc.max_fragment_bits=20, got %d", cfg.CDC.MaxFragmentBits)
	}
	if cfg.Sink.Enabled {
		t.Error("expected sink.enabled=false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_RequiresShardkeepConfig(t *testing.T) {
	origConfig := os.Getenv("SHARDKEEP_CONFIG")
	defer os.Setenv("SHARDKEEP_CONFIG", origConfig)

	os.Unsetenv("SHARDKEEP_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SHARDKEEP_CONFIG not set, got nil")
	}
}

func TestLoad_WithShardkeepConfig(t *testing.T) {
	origConfig := os.Getenv("SHARDKEEP_CONFIG")
	defer os.Setenv("SHARDKEEP_CONFIG", origConfig)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "shardkeep.yaml")

	configContent := `
paths:
  scan: /data/incoming
  state: /data/state
sink:
  enabled: true
  low_entropy_below: 15
  high_entropy_at: 70
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	os.Setenv("SHARDKEEP_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Paths.Scan != "/data/incoming" {
		t.Errorf("expected paths.scan=/data/incoming, got %s", cfg.Paths.Scan)
	}
	if cfg.Paths.State != "/data/state" {
		t.Errorf("expected paths.state=/data/state, got %s", cfg.Paths.State)
	}
	if !cfg.Sink.Enabled {
		t.Error("expected sink.enabled=true")
	}
	if cfg.Sink.LowEntropyBelow != 15 || cfg.Sink.HighEntropyAt != 70 {
		t.Errorf("sink thresholds = %d/%d, want 15/70", cfg.Sink.LowEntropyBelow, cfg.Sink.HighEntropyAt)
	}
	// Unspecified fields keep their defaults.
	if cfg.CDC.MaxFragmentBits != 20 {
		t.Errorf("expected cdc.max_fragment_bits to keep default 20, got %d", cfg.CDC.MaxFragmentBits)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile("/nonexistent/shardkeep.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_RejectsInvalidFragmentBits(t *testing.T) {
	cfg := Default()
	cfg.CDC.MaxFragmentBits = 21
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid max_fragment_bits")
	}
}

func TestValidate_RejectsNonPowerOfTwoMinFragmentSize(t *testing.T) {
	cfg := Default()
	cfg.CDC.MinFragmentSize = 4097
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-power-of-two min_fragment_size")
	}
}

func TestValidate_RejectsInvertedEntropyThresholds(t *testing.T) {
	cfg := Default()
	cfg.Sink.LowEntropyBelow = 80
	cfg.Sink.HighEntropyAt = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when low_entropy_below exceeds high_entropy_at")
	}
}

func TestValidate_RejectsMissingPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.Scan = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing paths.scan")
	}
}
