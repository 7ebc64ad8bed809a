// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// enumerateFiles walks root and returns every regular file beneath it,
// in a deterministic (lexical) order. This is the minimum filesystem
// enumerator the core's fileIndex/fileOffset model needs — it is
// deliberately not part of any lib/* package, since the core never
// touches a filesystem directly.
func enumerateFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
