// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// shardkeep walks a directory, feeds every regular file through the
// content-defined chunker, and hands each fragment to the dedup
// identity engine. It prints a summary of how many fragments were
// seen, how many were novel, and (if compression routing is enabled)
// how much the fragment bytes would have shrunk.
//
// This binary is a demonstration harness for lib/cdc, lib/dedup, and
// the supporting lib/* packages — it is deliberately thin: the
// filesystem walk and sequential-file wrapper live here because the
// core packages never touch a filesystem directly.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var scanOverride string
	var logLevel string

	flagSet := pflag.NewFlagSet("shardkeep", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to shardkeep.yaml (overrides SHARDKEEP_CONFIG)")
	flagSet.StringVar(&scanOverride, "scan", "", "directory to scan (overrides paths.scan from config)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if scanOverride != "" {
		cfg.Paths.Scan = scanOverride
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))

	stats, err := ingest(cfg, logger)
	if err != nil {
		return err
	}

	printStats(os.Stdout, stats)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `shardkeep — content-defined chunking and deduplication over a directory tree.

Usage:
  shardkeep [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
