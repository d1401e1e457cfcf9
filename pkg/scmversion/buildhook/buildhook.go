// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package buildhook documents the seam a PEP 517 build backend would use to
// embed this engine. Spec.md §1 explicitly excludes "the setuptools/PEP 517
// build hook integration" from the core; this package is the external-facing
// stub showing where that integration plugs in, not an implementation of it.
package buildhook

import (
	"context"

	"github.com/datawire/scmversion/pkg/scmversion"
)

// Inputs is what a build backend gathers before calling into the core:
// the project root and the distribution name (for per-dist env overrides).
type Inputs struct {
	Root     string
	DistName string
}

// Result is what a build backend does with the core's output: write
// cfg.VersionFile (if set) from a template the backend owns, and report the
// rendered version to the packaging frontend.
type Result struct {
	Version    string
	ScmVersion *scmversion.ScmVersion
}

// Hook is the shape a build backend's setuptools_scm entry point has. A real
// PEP 517 backend would resolve a Configuration from Inputs (pyproject +
// env), call scmengine.Infer, and render Result.Version via this function
// type -- but the resolution and I/O around that (reading setup.cfg,
// registering with setuptools' Distribution, writing templated files) is
// the collaborator's job, not the core's.
type Hook func(ctx context.Context, in Inputs) (Result, error)
