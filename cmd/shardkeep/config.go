// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/shardkeep/shardkeep/lib/storeconfig"
)

// loadConfig resolves configuration the same way the teacher's daemon
// binaries do: an explicit --config path takes precedence, otherwise
// SHARDKEEP_CONFIG must be set. There is no silent fallback to
// defaults-only operation.
func loadConfig(configPath string) (*storeconfig.Config, error) {
	if configPath != "" {
		return storeconfig.LoadFile(configPath)
	}
	return storeconfig.Load()
}
