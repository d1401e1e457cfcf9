// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scmversion

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/datawire/scmversion/pkg/python/pep440"
	"github.com/datawire/scmversion/pkg/python/pep503"
)

// PreParseMode selects the Git pre-parse hook (spec.md §4.4).
type PreParseMode string

const (
	WarnOnShallow           PreParseMode = "warn_on_shallow"
	FailOnShallow           PreParseMode = "fail_on_shallow"
	FetchOnShallow          PreParseMode = "fetch_on_shallow"
	FailOnMissingSubmodules PreParseMode = "fail_on_missing_submodules"
)

// ParseOverride is the `parse?` seam in the Configuration data model: a
// caller-supplied handle that, if set, is tried before the archive/live-VCS
// stages of the orchestrator (spec.md §4.10 stage 2).
type ParseOverride func(ctx context.Context, root string, cfg *Configuration) (*ScmVersion, error)

// RawConfig is an *unfrozen* configuration overlay: every field is optional
// (nil/zero means "not set at this layer"), so that Resolve can overlay
// several RawConfig values left-to-right, each layer only overwriting the
// keys it actually specifies (spec.md §4.8 steps 1-4).
type RawConfig struct {
	Root                    *string
	RelativeTo              *string
	FallbackRoot            *string
	FallbackVersion         *string
	TagRegex                *string
	ParentDirPrefixVersion  *string
	Parse                   ParseOverride
	VersionScheme           []string
	LocalScheme             *string
	Normalize               *bool
	NonNormalizedVersionCls *bool
	WriteTo                 *string
	VersionFile             *string
	VersionFileTemplate     *string
	SearchParentDirectories *bool
	GitDescribeCommand      []string
	GitPreParse             *PreParseMode
	DistName                *string

	// Overrides is the decoded SETUPTOOLS_SCM_OVERRIDES_FOR_<DIST> table
	// (spec.md §4.7/§4.8 step 4): the same schema as pretend-metadata
	// (distance/node/dirty/branch/node_date/time/preformatted/tag),
	// applied by the orchestrator directly onto the inferred ScmVersion
	// after whichever stage produced it, taking precedence over anything
	// pyproject or a call-site override configured. Of these keys,
	// node_date and time are accepted but not applied.
	Overrides map[string]interface{}
}

// Configuration is the frozen result of Resolve: regex compiled,
// scheme names resolved to callables, version_cls resolved to a concrete
// pep440.VersionClass (spec.md §4.8 step 5).
type Configuration struct {
	Root                   string
	RelativeTo             string
	FallbackRoot           string
	FallbackVersion        string
	HasFallbackVersion     bool
	TagRegexPattern        string
	TagRegex               *regexp.Regexp
	ParentDirPrefixVersion string
	Parse                  ParseOverride
	VersionScheme          []string
	LocalScheme            string
	Normalize              bool
	VersionCls             pep440.VersionClass
	WriteTo                string
	VersionFile            string
	VersionFileTemplate    string
	WriteToIsDeprecated    bool

	SearchParentDirectories bool
	GitDescribeCommand      []string
	GitPreParse             PreParseMode

	DistName string

	Overrides map[string]interface{}
}

func defaultRawConfig() RawConfig {
	root := "."
	searchParents := true
	normalize := true
	localScheme := "node-and-date"
	describeCmd := []string{"git", "describe", "--dirty", "--tags", "--long", "--match", "*[0-9]*"}
	preParse := WarnOnShallow
	return RawConfig{
		Root:                    &root,
		VersionScheme:           []string{"guess-next-dev"},
		LocalScheme:             &localScheme,
		Normalize:               &normalize,
		SearchParentDirectories: &searchParents,
		GitDescribeCommand:      describeCmd,
		GitPreParse:             &preParse,
	}
}

// overlay copies every non-nil/non-empty field of src onto dst.
func overlay(dst *RawConfig, src RawConfig) {
	if src.Root != nil {
		dst.Root = src.Root
	}
	if src.RelativeTo != nil {
		dst.RelativeTo = src.RelativeTo
	}
	if src.FallbackRoot != nil {
		dst.FallbackRoot = src.FallbackRoot
	}
	if src.FallbackVersion != nil {
		dst.FallbackVersion = src.FallbackVersion
	}
	if src.TagRegex != nil {
		dst.TagRegex = src.TagRegex
	}
	if src.ParentDirPrefixVersion != nil {
		dst.ParentDirPrefixVersion = src.ParentDirPrefixVersion
	}
	if src.Parse != nil {
		dst.Parse = src.Parse
	}
	if len(src.VersionScheme) > 0 {
		dst.VersionScheme = src.VersionScheme
	}
	if src.LocalScheme != nil {
		dst.LocalScheme = src.LocalScheme
	}
	if src.Normalize != nil {
		dst.Normalize = src.Normalize
	}
	if src.NonNormalizedVersionCls != nil {
		dst.NonNormalizedVersionCls = src.NonNormalizedVersionCls
	}
	if src.WriteTo != nil {
		dst.WriteTo = src.WriteTo
	}
	if src.VersionFile != nil {
		dst.VersionFile = src.VersionFile
	}
	if src.VersionFileTemplate != nil {
		dst.VersionFileTemplate = src.VersionFileTemplate
	}
	if src.SearchParentDirectories != nil {
		dst.SearchParentDirectories = src.SearchParentDirectories
	}
	if len(src.GitDescribeCommand) > 0 {
		dst.GitDescribeCommand = src.GitDescribeCommand
	}
	if src.GitPreParse != nil {
		dst.GitPreParse = src.GitPreParse
	}
	if src.DistName != nil {
		dst.DistName = src.DistName
	}
	if src.Overrides != nil {
		dst.Overrides = src.Overrides
	}
}

// Resolve overlays layers (in increasing precedence: pyproject, call-site
// overrides, per-dist env overrides) on top of the hard-coded defaults, then
// freezes the result: compiling tag_regex, resolving version_cls, and
// canonicalizing dist_name. Spec.md §4.8.
func Resolve(layers ...RawConfig) (*Configuration, error) {
	merged := defaultRawConfig()
	for _, layer := range layers {
		overlay(&merged, layer)
	}

	cfg := &Configuration{}

	if merged.Root != nil {
		cfg.Root = *merged.Root
	}
	if merged.RelativeTo != nil {
		cfg.RelativeTo = *merged.RelativeTo
	}
	if merged.FallbackRoot != nil {
		cfg.FallbackRoot = *merged.FallbackRoot
	}
	if merged.FallbackVersion != nil {
		cfg.FallbackVersion = *merged.FallbackVersion
		cfg.HasFallbackVersion = true
	}
	if merged.ParentDirPrefixVersion != nil {
		cfg.ParentDirPrefixVersion = *merged.ParentDirPrefixVersion
	}
	cfg.Parse = merged.Parse
	cfg.VersionScheme = merged.VersionScheme
	if merged.LocalScheme != nil {
		cfg.LocalScheme = *merged.LocalScheme
	}
	if merged.Normalize != nil {
		cfg.Normalize = *merged.Normalize
	}
	if merged.WriteTo != nil {
		cfg.WriteTo = *merged.WriteTo
	}
	if merged.VersionFile != nil {
		cfg.VersionFile = *merged.VersionFile
	}
	if merged.VersionFileTemplate != nil {
		cfg.VersionFileTemplate = *merged.VersionFileTemplate
	}
	if cfg.WriteTo != "" && cfg.VersionFile != "" {
		cfg.WriteToIsDeprecated = true
	}
	if merged.SearchParentDirectories != nil {
		cfg.SearchParentDirectories = *merged.SearchParentDirectories
	}
	cfg.GitDescribeCommand = merged.GitDescribeCommand
	if merged.GitPreParse != nil {
		cfg.GitPreParse = *merged.GitPreParse
	}
	if merged.DistName != nil {
		cfg.DistName = pep503.Normalize(*merged.DistName)
	}
	cfg.Overrides = merged.Overrides

	pattern := DefaultTagRegex
	if merged.TagRegex != nil {
		pattern = *merged.TagRegex
	}
	re, err := CompileTagRegex(pattern)
	if err != nil {
		return nil, err
	}
	cfg.TagRegexPattern = pattern
	cfg.TagRegex = re

	if merged.NonNormalizedVersionCls != nil && *merged.NonNormalizedVersionCls {
		cfg.VersionCls = pep440.ParseNonNormalized
	} else {
		cfg.VersionCls = pep440.Normalizing
	}

	if len(cfg.VersionScheme) == 0 {
		return nil, &ConfigurationError{Reason: "version_scheme must name at least one scheme"}
	}
	if cfg.LocalScheme == "" {
		return nil, &ConfigurationError{Reason: "local_scheme must be set"}
	}

	return cfg, nil
}

// AbsoluteRoot resolves root relative to the directory containing
// RelativeTo (or the current directory if RelativeTo is unset), per the
// `absolute_root = normpath(relative_to_parent / root)` invariant.
func (c *Configuration) AbsoluteRoot() (string, error) {
	base := "."
	if c.RelativeTo != "" {
		base = filepath.Dir(c.RelativeTo)
	}
	root := c.Root
	if root == "" {
		root = "."
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root), nil
	}
	abs, err := filepath.Abs(filepath.Join(base, root))
	if err != nil {
		return "", fmt.Errorf("scmversion: could not resolve absolute root: %w", err)
	}
	return abs, nil
}
