// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package scmengine implements the top-level inference orchestrator (spec.md
// §4.10): pretend-version? -> configured parse override? -> archive file? ->
// live VCS? -> parent-dir prefix? -> PKG-INFO? -> configured fallback? ->
// error.
//
// It lives in its own package, separate from pkg/scmversion, because it is
// the one component that needs both the core data model (pkg/scmversion)
// and the VCS backend implementations (pkg/scm/...), and pkg/scm/... already
// depends on pkg/scmversion for Configuration and ScmVersion -- putting the
// orchestrator inside pkg/scmversion itself would make that an import cycle.
package scmengine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/datawire/scmversion/pkg/scm"
	"github.com/datawire/scmversion/pkg/scm/archival"
	"github.com/datawire/scmversion/pkg/scm/fallback"
	"github.com/datawire/scmversion/pkg/scm/git"
	"github.com/datawire/scmversion/pkg/scm/hg"
	"github.com/datawire/scmversion/pkg/scm/hggit"
	"github.com/datawire/scmversion/pkg/scmversion"
	"github.com/datawire/scmversion/pkg/scmversion/diag"
	"github.com/datawire/scmversion/pkg/scmversion/envoverride"
	"github.com/datawire/scmversion/pkg/scmversion/schemes"
)

// Backends returns the default backend set, in the preference order
// Detect is tried against (hg-git before plain hg, since it is the more
// specific match): git, hg-git, hg.
func Backends(warn *diag.Sink) []scm.Backend {
	gitBackend := git.Backend{Warn: warn}
	return []scm.Backend{
		gitBackend,
		hggit.Backend{Git: gitBackend},
		hg.Backend{},
	}
}

// Result is the (ScmVersion, rendered string) tuple spec.md §6 names as the
// core's return-value boundary.
type Result struct {
	Version  *scmversion.ScmVersion
	Rendered string
}

// Infer runs the 8-stage resolution order of spec.md §4.10 against cfg,
// using envReader for the env-var overrides (§4.7) and backends for live
// VCS discovery (§4.5).
func Infer(ctx context.Context, cfg *scmversion.Configuration, envReader envoverride.Reader, backends []scm.Backend) (*Result, error) {
	warn := diag.NewSink(ctx)

	absRoot, err := cfg.AbsoluteRoot()
	if err != nil {
		return nil, err
	}

	// Stage 1: pretend version.
	if v, ok, err := pretendVersion(cfg, envReader); err != nil {
		return nil, err
	} else if ok {
		return render(v, cfg, absRoot)
	}

	// Stage 2: configured parse override.
	if cfg.Parse != nil {
		v, err := cfg.Parse(ctx, absRoot, cfg)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return render(v, cfg, absRoot)
		}
	}

	var attempts []scmversion.StageAttempt

	// Stage 3: archive file. An unusable archive (e.g. an unexpanded
	// describe-name placeholder with no usable ref-names) is a recoverable
	// stage failure, not a fatal error -- it falls through to stage 4.
	if v, reason, err := archiveFile(absRoot, cfg, warn); err != nil {
		attempts = append(attempts, scmversion.StageAttempt{Stage: "archive file", Reason: err.Error()})
	} else if v != nil {
		return render(v, cfg, absRoot)
	} else {
		attempts = append(attempts, scmversion.StageAttempt{Stage: "archive file", Reason: reason})
	}

	// Stage 4: live VCS.
	root, backend, ok := scm.Discover(absRoot, cfg.SearchParentDirectories, backends, scm.IgnoredRoots())
	if ok {
		v, err := backend.Parse(ctx, root, cfg)
		if err != nil {
			return nil, err
		}
		return render(v, cfg, absRoot)
	}
	attempts = append(attempts, scmversion.StageAttempt{Stage: "live VCS", Reason: "no .git or .hg found"})

	// Stage 5: parent-dir prefix.
	if cfg.ParentDirPrefixVersion != "" {
		v, err := fallback.ParentDirPrefixVersion(absRoot, cfg.ParentDirPrefixVersion, cfg)
		if err == nil {
			return render(v, cfg, absRoot)
		}
		attempts = append(attempts, scmversion.StageAttempt{Stage: "parentdir_prefix_version", Reason: err.Error()})
	}

	// Stage 6: PKG-INFO.
	if v, reason, err := pkgInfo(absRoot, cfg); err != nil {
		return nil, err
	} else if v != nil {
		return render(v, cfg, absRoot)
	} else {
		attempts = append(attempts, scmversion.StageAttempt{Stage: "PKG-INFO", Reason: reason})
	}

	// Stage 7: configured fallback.
	if cfg.HasFallbackVersion {
		tag, err := scmversion.ParsePreformatted(cfg.FallbackVersion)
		if err != nil {
			return nil, err
		}
		v := &scmversion.ScmVersion{Tag: tag, Preformatted: true, PreformattedTag: cfg.FallbackVersion, Config: cfg}
		return render(v, cfg, absRoot)
	}
	attempts = append(attempts, scmversion.StageAttempt{Stage: "fallback_version", Reason: "not configured"})

	// Stage 8: give up.
	return nil, &scmversion.NoVersionInferredError{Attempts: attempts}
}

func pretendVersion(cfg *scmversion.Configuration, envReader envoverride.Reader) (*scmversion.ScmVersion, bool, error) {
	versionStr, ok := envReader.PretendVersion()
	if !ok {
		return nil, false, nil
	}

	tag, err := scmversion.ParsePreformatted(versionStr)
	if err != nil {
		return nil, false, err
	}

	v := &scmversion.ScmVersion{Tag: tag, Preformatted: true, PreformattedTag: versionStr, Config: cfg}

	metadata, hasMetadata, err := envReader.PretendMetadata()
	if err != nil {
		return nil, false, err
	}
	if hasMetadata {
		applyMetadataOverlay(v, metadata)
	}

	return v, true, nil
}

func applyMetadataOverlay(v *scmversion.ScmVersion, metadata map[string]interface{}) {
	if s, ok := metadata["node"].(string); ok {
		v.Node = s
	}
	if s, ok := metadata["branch"].(string); ok {
		v.Branch = s
	}
	if b, ok := metadata["dirty"].(bool); ok {
		v.Dirty = b
	}
	if b, ok := metadata["preformatted"].(bool); ok {
		v.Preformatted = b
	}
	switch d := metadata["distance"].(type) {
	case int64:
		v.Distance = int(d)
	case int:
		v.Distance = d
	}
}

// applyConfigOverrides overlays cfg.Overrides (the decoded
// SETUPTOOLS_SCM_OVERRIDES_FOR_<DIST> table) onto v, in place, after
// whichever stage produced v. It shares applyMetadataOverlay's schema but
// also understands "tag", since unlike pretend-metadata this override can
// replace the tag of a version that was genuinely parsed from the VCS.
func applyConfigOverrides(v *scmversion.ScmVersion, cfg *scmversion.Configuration) error {
	if len(cfg.Overrides) == 0 {
		return nil
	}
	applyMetadataOverlay(v, cfg.Overrides)
	if s, ok := cfg.Overrides["tag"].(string); ok {
		tag, err := cfg.VersionCls(s)
		if err != nil {
			return &scmversion.ConfigurationError{Reason: "SETUPTOOLS_SCM_OVERRIDES_FOR_" + cfg.DistName + " sets an unparseable tag", Err: err}
		}
		v.Tag = tag
		v.Preformatted = false
		v.PreformattedTag = ""
		v.NoTagsFound = false
	}
	return nil
}

func archiveFile(root string, cfg *scmversion.Configuration, warn *diag.Sink) (*scmversion.ScmVersion, string, error) {
	gitArchival := filepath.Join(root, ".git_archival.txt")
	if _, err := os.Stat(gitArchival); err == nil {
		v, err := archival.ReadGitArchival(gitArchival, cfg, warn)
		return v, "", err
	}
	hgArchival := filepath.Join(root, ".hg_archival.txt")
	if _, err := os.Stat(hgArchival); err == nil {
		v, err := archival.ReadHgArchival(hgArchival, cfg)
		return v, "", err
	}
	return nil, "no .git_archival.txt or .hg_archival.txt present", nil
}

func pkgInfo(root string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, string, error) {
	path := filepath.Join(root, "PKG-INFO")
	if _, err := os.Stat(path); err != nil {
		return nil, "PKG-INFO not present", nil
	}
	info, err := fallback.ReadPkgInfo(path)
	if err != nil {
		return nil, "", err
	}
	tag, err := scmversion.ParsePreformatted(info.Version)
	if err != nil {
		return nil, "", err
	}
	return &scmversion.ScmVersion{
		Tag: tag, Preformatted: true, PreformattedTag: info.Version, Config: cfg,
	}, "", nil
}

func render(v *scmversion.ScmVersion, cfg *scmversion.Configuration, root string) (*Result, error) {
	v.Config = cfg

	if err := applyConfigOverrides(v, cfg); err != nil {
		return nil, err
	}

	rendered := v.TagString()
	if !v.Preformatted {
		main, err := schemes.ResolveMain(cfg.VersionScheme)
		if err != nil {
			return nil, err
		}
		local, err := schemes.ResolveLocal(cfg.LocalScheme)
		if err != nil {
			return nil, err
		}
		rendered = schemes.Render(v, main, local, schemes.Context{Root: root})

		if _, err := cfg.VersionCls(rendered); err != nil {
			return nil, &scmversion.ConfigurationError{
				Reason: "rendered version " + rendered + " does not parse under version_cls",
				Err:    err,
			}
		}
	}

	return &Result{Version: v, Rendered: rendered}, nil
}
