// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package hg implements the Mercurial VCS backend of spec.md §4.4.
package hg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/scmversion/pkg/scm/runner"
	"github.com/datawire/scmversion/pkg/scmversion"
)

// Backend implements scm.Backend for Mercurial working trees.
type Backend struct{}

func (Backend) Name() string { return "hg" }

func (Backend) Detect(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".hg"))
	return err == nil && info.IsDir()
}

// logTemplate extracts everything Parse needs in a single `hg log`
// invocation: tag, distance-from-that-tag, node, branch, and commit
// timestamp, pipe-separated.
const logTemplate = `{latesttag}|{latesttagdistance}|{node|short}|{branch}|{date|rfc3339date}`

func (b Backend) Parse(ctx context.Context, path string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	r := runner.Runner{Dir: path}

	res, err := r.Run(ctx, "hg", "log", "-r", ".", "--template", logTemplate)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &scmversion.VcsCommandError{Argv: []string{"hg", "log"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	fields := strings.SplitN(res.Stdout, "|", 5)
	if len(fields) != 5 {
		return nil, fmt.Errorf("scmversion: unexpected `hg log` output %q", res.Stdout)
	}
	tagName, distanceStr, node, branch, dateStr := fields[0], fields[1], fields[2], fields[3], fields[4]

	dirty, err := b.dirty(ctx, r)
	if err != nil {
		return nil, err
	}

	v := &scmversion.ScmVersion{
		Node:   "h" + node,
		Branch: branch,
		Dirty:  dirty,
		Config: cfg,
	}

	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		v.NodeDate, v.HasNodeDate = t.UTC(), true
	}

	distance, err := strconv.Atoi(distanceStr)
	if err != nil {
		distance = 0
	}

	if tagName == "" || tagName == "null" {
		tag, perr := scmversion.ParsePreformatted("0.0")
		if perr != nil {
			return nil, perr
		}
		v.Tag = tag
		v.Distance = distance
		v.NoTagsFound = true
		return v, nil
	}

	tag, err := scmversion.ParseTag(cfg.TagRegex, cfg.VersionCls, tagName)
	if err != nil {
		return nil, err
	}
	v.Tag = tag
	v.Distance = distance
	return v, nil
}

func (Backend) dirty(ctx context.Context, r runner.Runner) (bool, error) {
	res, err := r.Run(ctx, "hg", "status")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

func (b Backend) ListFiles(ctx context.Context, path string) ([]string, error) {
	r := runner.Runner{Dir: path}
	res, err := r.Run(ctx, "hg", "status", "--all", "--no-status")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &scmversion.VcsCommandError{Argv: []string{"hg", "status"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	var files []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
