// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package scm discovers which version-control backend (if any) governs a
// directory, and defines the shared contract those backends implement
// (spec.md §4.4, §4.5).
package scm

import (
	"context"

	"github.com/datawire/scmversion/pkg/scmversion"
)

// Backend is the shared contract every VCS backend (Git, Mercurial, the
// hg-git bridge) implements.
type Backend interface {
	// Name identifies the backend for diagnostics ("git", "hg").
	Name() string
	// Detect reports whether path is governed by this backend: the
	// presence of a control directory (.git, .hg) with a valid marker.
	Detect(path string) bool
	// Parse queries the backend for the commit at path and returns the
	// resulting ScmVersion. It is only called after Detect has returned
	// true for path (or an ancestor root discovery resolved to).
	Parse(ctx context.Context, path string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error)
	// ListFiles enumerates version-controlled files under path, for the
	// external file-finder collaborator (spec.md §1); the core does not
	// call this itself.
	ListFiles(ctx context.Context, path string) ([]string, error)
}
