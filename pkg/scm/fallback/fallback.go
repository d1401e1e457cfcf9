// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package fallback implements the last-resort version sources of spec.md
// §4.11: a minimal PKG-INFO reader and the parentdir_prefix_version rule.
package fallback

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/scmversion/pkg/scmversion"
)

// PkgInfo is the subset of an sdist's PKG-INFO headers this package reads.
type PkgInfo struct {
	Name    string
	Version string
}

// ReadPkgInfo scans path line by line until the first blank line,
// collecting Name: and Version: headers (spec.md §4.11).
func ReadPkgInfo(path string) (*PkgInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &PkgInfo{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "Name:"):
			info.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case strings.HasPrefix(line, "Version:"):
			info.Version = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scmversion: reading %s: %w", path, err)
	}
	if info.Version == "" {
		return nil, fmt.Errorf("scmversion: %s has no Version: header", path)
	}
	return info, nil
}

// ParentDirPrefixVersion applies the parentdir_prefix_version rule: if the
// basename of absoluteRoot starts with prefix, the remainder is parsed
// against tag_regex as a preformatted version (spec.md §4.10 stage 5).
func ParentDirPrefixVersion(absoluteRoot, prefix string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	base := filepath.Base(absoluteRoot)
	if !strings.HasPrefix(base, prefix) {
		return nil, fmt.Errorf("scmversion: directory name %q does not start with"+
			" parentdir_prefix_version %q", base, prefix)
	}
	remainder := strings.TrimPrefix(base, prefix)

	tag, err := scmversion.ParseTag(cfg.TagRegex, cfg.VersionCls, remainder)
	if err != nil {
		return nil, err
	}

	return &scmversion.ScmVersion{
		Tag:             tag,
		Preformatted:    true,
		PreformattedTag: tag.String(),
		Config:          cfg,
	}, nil
}
