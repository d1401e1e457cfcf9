// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scm

import (
	"os"
	"path/filepath"
	"strings"
)

// IgnoreVCSRootsEnv names the env var listing roots that root discovery
// must never stop at, even if a backend's marker is present there
// (spec.md §4.7).
const IgnoreVCSRootsEnv = "SETUPTOOLS_SCM_IGNORE_VCS_ROOTS"

// IgnoredRoots reads and splits IgnoreVCSRootsEnv on the OS path-list
// separator.
func IgnoredRoots() map[string]bool {
	raw := os.Getenv(IgnoreVCSRootsEnv)
	if raw == "" {
		return nil
	}
	ignored := make(map[string]bool)
	for _, p := range filepath.SplitList(raw) {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			ignored[abs] = true
		}
	}
	return ignored
}

// Discover walks from start toward the filesystem root looking for a
// directory any of backends detects, skipping directories named in
// ignored. If searchParentDirectories is false, only start itself is
// probed. Spec.md §4.5.
func Discover(start string, searchParentDirectories bool, backends []Backend, ignored map[string]bool) (string, Backend, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", nil, false
	}

	for {
		if !ignored[dir] {
			for _, b := range backends {
				if b.Detect(dir) {
					return dir, b, true
				}
			}
		}

		if !searchParentDirectories {
			return "", nil, false
		}

		parent := filepath.Dir(dir)
		if parent == dir || isFilesystemRoot(dir) {
			return "", nil, false
		}
		dir = parent
	}
}

func isFilesystemRoot(dir string) bool {
	return dir == string(filepath.Separator) || strings.HasSuffix(dir, ":\\") || strings.HasSuffix(dir, ":/")
}
