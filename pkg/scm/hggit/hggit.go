// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package hggit implements the hg-git bridge backend of spec.md §4.4: when a
// Mercurial working copy is also managed by the hg-git extension, its Git
// metadata is preferred over plain Mercurial metadata.
package hggit

import (
	"context"
	"os"
	"path/filepath"

	"github.com/datawire/scmversion/pkg/scm/git"
	"github.com/datawire/scmversion/pkg/scmversion"
)

// Backend detects an hg-git-bridged working copy and delegates to the Git
// backend, whose metadata hg-git keeps authoritative.
type Backend struct {
	Git git.Backend
}

func (Backend) Name() string { return "hg-git" }

// Detect requires both a .hg directory and evidence that hg-git is
// managing it: a git-mapfile (classic hg-git) or a bookmarks file,
// alongside a .git directory hg-git keeps in sync (spec.md §4.4). Only the
// existence of these files is checked; the bookmarks file's contents are
// not read.
func (b Backend) Detect(path string) bool {
	hgInfo, err := os.Stat(filepath.Join(path, ".hg"))
	if err != nil || !hgInfo.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, ".hg", "git-mapfile")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(path, ".hg", "bookmarks")); err == nil {
		return true
	}
	return false
}

func (b Backend) Parse(ctx context.Context, path string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	return b.Git.Parse(ctx, path, cfg)
}

func (b Backend) ListFiles(ctx context.Context, path string) ([]string, error) {
	return b.Git.ListFiles(ctx, path)
}
