// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package git implements the Git VCS backend of spec.md §4.4.
package git

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/scmversion/pkg/scm/runner"
	"github.com/datawire/scmversion/pkg/scmversion"
	"github.com/datawire/scmversion/pkg/scmversion/diag"
)

// Backend implements scm.Backend for Git working trees.
type Backend struct {
	Warn *diag.Sink
}

func (Backend) Name() string { return "git" }

// Detect reports whether path itself contains a .git entry -- a directory
// for a normal checkout, or a file for a worktree/submodule. Parent
// directories are not checked here.
func (Backend) Detect(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// ListFiles enumerates files tracked by Git, for the external file-finder
// collaborator (spec.md §1); core code never calls this.
func (b Backend) ListFiles(ctx context.Context, path string) ([]string, error) {
	r := runner.Runner{Dir: path}
	res, err := r.Run(ctx, "git", "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, &scmversion.VcsCommandError{Argv: []string{"git", "ls-files"}, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	var files []string
	for _, f := range strings.Split(res.Stdout, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

var describeRe = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+?)(-dirty)?$`)

// Parse implements the live Git half of spec.md §4.4.
func (b Backend) Parse(ctx context.Context, path string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	r := runner.Runner{Dir: path}

	toplevel, err := b.workTreeRoot(ctx, r)
	if err != nil {
		return nil, err
	}
	r.Dir = toplevel

	if err := b.preParse(ctx, r, toplevel, cfg.GitPreParse); err != nil {
		return nil, err
	}

	v, err := b.describe(ctx, r, cfg)
	if err != nil {
		return nil, err
	}

	v.Branch = b.branch(ctx, r)
	v.NodeDate, v.HasNodeDate = b.nodeDate(ctx, r)
	v.Config = cfg
	return v, nil
}

func (b Backend) workTreeRoot(ctx context.Context, r runner.Runner) (string, error) {
	res, err := r.Run(ctx, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &scmversion.VcsCommandError{
			Argv: []string{"git", "rev-parse", "--show-toplevel"}, ExitCode: res.ExitCode, Stderr: res.Stderr,
		}
	}
	return res.Stdout, nil
}

func (b Backend) preParse(ctx context.Context, r runner.Runner, root string, mode scmversion.PreParseMode) error {
	switch mode {
	case scmversion.FailOnShallow:
		if b.isShallow(root) {
			return &scmversion.RepoShallowError{Root: root}
		}
	case scmversion.FetchOnShallow:
		if b.isShallow(root) {
			res, err := r.Run(ctx, "git", "fetch", "--unshallow")
			if err != nil || res.ExitCode != 0 {
				return &scmversion.RepoShallowError{Root: root}
			}
		}
	case scmversion.FailOnMissingSubmodules:
		missing, err := b.missingSubmodule(root)
		if err != nil {
			return err
		}
		if missing != "" {
			return &scmversion.SubmoduleMissingError{Root: root, Path: missing}
		}
	case scmversion.WarnOnShallow:
		fallthrough
	default:
		if b.isShallow(root) && b.Warn != nil {
			b.Warn.Warnf("shallow-clone", "%s is a shallow clone; distance/tag information may be incomplete", root)
		}
	}
	return nil
}

func (Backend) isShallow(root string) bool {
	_, err := os.Stat(filepath.Join(root, ".git", "shallow"))
	return err == nil
}

func (Backend) missingSubmodule(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, ".gitmodules"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scmversion: reading .gitmodules: %w", err)
	}
	defer f.Close()

	var path string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "path") {
			if idx := strings.Index(line, "="); idx >= 0 {
				path = strings.TrimSpace(line[idx+1:])
				entries, err := os.ReadDir(filepath.Join(root, path))
				if err != nil || len(entries) == 0 {
					return path, nil
				}
			}
		}
	}
	return "", nil
}

func (b Backend) describe(ctx context.Context, r runner.Runner, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	argv := cfg.GitDescribeCommand
	res, err := r.Run(ctx, argv...)
	if err != nil {
		return nil, err
	}

	if res.ExitCode == 0 {
		return b.parseDescribeOutput(ctx, r, cfg, res.Stdout)
	}
	return b.noTagFallback(ctx, r, cfg)
}

func (b Backend) parseDescribeOutput(ctx context.Context, r runner.Runner, cfg *scmversion.Configuration, out string) (*scmversion.ScmVersion, error) {
	m := describeRe.FindStringSubmatch(out)
	if m == nil {
		return b.noTagFallback(ctx, r, cfg)
	}

	tagStr, distanceStr, shortHash, dirtyMarker := m[1], m[2], m[3], m[4]

	distance, err := strconv.Atoi(distanceStr)
	if err != nil {
		return nil, fmt.Errorf("scmversion: unexpected distance in git describe output %q: %w", out, err)
	}

	tag, err := scmversion.ParseTag(cfg.TagRegex, cfg.VersionCls, tagStr)
	if err != nil {
		return nil, err
	}

	return &scmversion.ScmVersion{
		Tag:      tag,
		Distance: distance,
		Node:     "g" + shortHash,
		Dirty:    dirtyMarker != "",
	}, nil
}

// noTagFallback implements spec.md §4.4's "describe fails because no tag
// exists" path, including the zero-commit special case.
func (b Backend) noTagFallback(ctx context.Context, r runner.Runner, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	countRes, err := r.Run(ctx, "git", "rev-list", "--count", "HEAD")
	if err != nil {
		return nil, err
	}
	if countRes.ExitCode != 0 {
		// No commits at all.
		dirty := b.dirty(ctx, r)
		tag, err := scmversion.ParsePreformatted("0.0")
		if err != nil {
			return nil, err
		}
		return &scmversion.ScmVersion{Tag: tag, Distance: 0, Node: "", Dirty: dirty, NoTagsFound: true}, nil
	}

	distance, err := strconv.Atoi(strings.TrimSpace(countRes.Stdout))
	if err != nil {
		return nil, fmt.Errorf("scmversion: unexpected `git rev-list --count` output %q: %w", countRes.Stdout, err)
	}

	hashRes, err := r.Run(ctx, "git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return nil, err
	}

	tag, err := scmversion.ParsePreformatted("0.0")
	if err != nil {
		return nil, err
	}

	return &scmversion.ScmVersion{
		Tag:         tag,
		Distance:    distance,
		Node:        "g" + strings.TrimSpace(hashRes.Stdout),
		Dirty:       b.dirty(ctx, r),
		NoTagsFound: true,
	}, nil
}

// dirty re-verifies via `git diff --quiet` so that a pure mtime touch (with
// no content change) does not count as dirty, per spec.md §4.4.
func (b Backend) dirty(ctx context.Context, r runner.Runner) bool {
	res, err := r.Run(ctx, "git", "diff", "--quiet", "HEAD")
	if err != nil {
		return false
	}
	if res.ExitCode != 0 {
		return true
	}
	untracked, err := r.Run(ctx, "git", "status", "--porcelain", "--untracked-files=normal")
	if err != nil {
		return false
	}
	return strings.TrimSpace(untracked.Stdout) != ""
}

func (b Backend) branch(ctx context.Context, r runner.Runner) string {
	res, err := r.Run(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	if res.Stdout == "HEAD" {
		return ""
	}
	return res.Stdout
}

func (b Backend) nodeDate(ctx context.Context, r runner.Runner) (time.Time, bool) {
	res, err := r.Run(ctx, "git", "log", "-1", "--format=%cI")
	if err != nil || res.ExitCode != 0 || res.Stdout == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, res.Stdout)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
