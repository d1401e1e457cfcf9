// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package schemes implements the named main-version and local-version
// scheme registries of spec.md §4.9: the deterministic, pluggable
// transformation from an ScmVersion to a rendered version string.
package schemes

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/datawire/scmversion/pkg/python/pep440"
	"github.com/datawire/scmversion/pkg/reproducible"
	"github.com/datawire/scmversion/pkg/scmversion"
)

// Context carries the ambient data a scheme needs beyond the ScmVersion
// itself: the repository root (towncrier-fragments scans changelog.d/
// there) and a major_on_zero-style knob for release-branch detection.
type Context struct {
	Root string
	// MajorOnZero, when true, treats a release-branch bump on a 0.x
	// series as a major bump instead of minor (semver-pep440-release-branch).
	MajorOnZero bool
}

// MainScheme computes the "guessed next version" half of the render.
type MainScheme func(v *scmversion.ScmVersion, sctx Context) string

// LocalScheme computes the "+local" half of the render.
type LocalScheme func(v *scmversion.ScmVersion, sctx Context) string

// MainSchemes is the registry of names usable in Configuration.VersionScheme.
var MainSchemes = map[string]MainScheme{
	"guess-next-dev":               guessNextDev,
	"no-guess-dev":                 noGuessDev,
	"post-release":                 postRelease,
	"only-version":                 onlyVersion,
	"semver-pep440":                semverPep440,
	"semver-pep440-release-branch": semverPep440ReleaseBranch,
	"calver-by-date":               calverByDate,
	"towncrier-fragments":          towncrierFragments,
}

// LocalSchemes is the registry of names usable in Configuration.LocalScheme.
var LocalSchemes = map[string]LocalScheme{
	"node-and-date":      nodeAndDate,
	"node-and-timestamp": nodeAndTimestamp,
	"dirty-tag":          dirtyTag,
	"no-local-version":   noLocalVersion,
}

// ResolveMain validates that every name in names is registered and returns a
// MainScheme that tries each in order, the first non-empty result winning.
func ResolveMain(names []string) (MainScheme, error) {
	fns := make([]MainScheme, 0, len(names))
	for _, name := range names {
		fn, ok := MainSchemes[name]
		if !ok {
			return nil, fmt.Errorf("scmversion: unknown version_scheme %q", name)
		}
		fns = append(fns, fn)
	}
	return func(v *scmversion.ScmVersion, sctx Context) string {
		for _, fn := range fns {
			if out := fn(v, sctx); out != "" {
				return out
			}
		}
		return ""
	}, nil
}

// ResolveLocal validates name and returns its LocalScheme.
func ResolveLocal(name string) (LocalScheme, error) {
	fn, ok := LocalSchemes[name]
	if !ok {
		return nil, fmt.Errorf("scmversion: unknown local_scheme %q", name)
	}
	return fn, nil
}

// Render composes main + local into the final version string, omitting the
// "+" separator when local is empty, and skipping both schemes entirely for
// a preformatted ScmVersion (spec.md §4.9 composition rule).
func Render(v *scmversion.ScmVersion, main MainScheme, local LocalScheme, sctx Context) string {
	if v.Preformatted {
		return v.TagString()
	}
	out := main(v, sctx)
	if loc := local(v, sctx); loc != "" {
		out += "+" + loc
	}
	return out
}

func guessNextDev(v *scmversion.ScmVersion, _ Context) string {
	if v.Clean() {
		return v.TagString()
	}
	next := pep440.BumpLastRelease(pep440.Semantic(v.Tag))
	return v.FormatNextVersion(func(*scmversion.ScmVersion) string {
		return next.String()
	}, fmt.Sprintf("{guessed}.dev%d", v.Distance))
}

func noGuessDev(v *scmversion.ScmVersion, _ Context) string {
	if v.Clean() {
		return v.TagString()
	}
	return fmt.Sprintf("%s.post1.dev%d", v.TagString(), v.Distance)
}

func postRelease(v *scmversion.ScmVersion, _ Context) string {
	if v.Clean() {
		return v.TagString()
	}
	return fmt.Sprintf("%s.post%d", v.TagString(), v.Distance)
}

func onlyVersion(v *scmversion.ScmVersion, _ Context) string {
	return v.TagString()
}

var bugfixBranch = regexp.MustCompile(`(?i)(bugfix|hotfix|fix)`)

// semverPep440 bumps minor on feature-like branches, patch on bugfix-like
// ones. It renders true SemVer-shaped output but remains PEP 440 text.
func semverPep440(v *scmversion.ScmVersion, sctx Context) string {
	if v.Clean() {
		return v.TagString()
	}
	segment := 1 // minor
	if bugfixBranch.MatchString(v.Branch) {
		segment = 2 // patch
	}
	next := bumpSegment(pep440.Semantic(v.Tag), segment)
	return fmt.Sprintf("%s.dev%d", next.String(), v.Distance)
}

var releaseBranch = regexp.MustCompile(`(?:^|/)(?:v)?(\d+)\.(\d+)\.x$`)

// semverPep440ReleaseBranch consults the branch name against a release-branch
// pattern ("1.4.x") to pick a major or minor bump; any other branch bumps
// patch.
func semverPep440ReleaseBranch(v *scmversion.ScmVersion, sctx Context) string {
	if v.Clean() {
		return v.TagString()
	}
	segment := 2 // patch, the default off-branch case
	if m := releaseBranch.FindStringSubmatch(v.Branch); m != nil {
		if m[1] == "0" && !sctx.MajorOnZero {
			segment = 1
		} else {
			segment = 0
		}
	}
	next := bumpSegment(pep440.Semantic(v.Tag), segment)
	return fmt.Sprintf("%s.dev%d", next.String(), v.Distance)
}

func calverByDate(v *scmversion.ScmVersion, _ Context) string {
	if v.Clean() {
		return v.TagString()
	}
	t := v.Time
	if v.HasNodeDate {
		t = v.NodeDate
	}
	if t.IsZero() {
		t = reproducible.Now().UTC()
	}
	return fmt.Sprintf("%04d.%02d.%02d.dev%d", t.Year(), t.Month(), t.Day(), v.Distance)
}

// towncrierFragments inspects changelog.d/*.{type}.md fragments to choose a
// major/minor/patch bump, then delegates the actual dev-suffix rendering to
// guessNextDev-shaped bumping.
func towncrierFragments(v *scmversion.ScmVersion, sctx Context) string {
	if v.Clean() {
		return v.TagString()
	}
	if sctx.Root == "" {
		return guessNextDev(v, sctx)
	}
	matches, err := filepath.Glob(filepath.Join(sctx.Root, "changelog.d", "*.*.md"))
	if err != nil || len(matches) == 0 {
		return guessNextDev(v, sctx)
	}
	segment := 2
	for _, m := range matches {
		switch fragmentKind(m) {
		case "feature", "minor":
			if segment > 1 {
				segment = 1
			}
		case "breaking", "major":
			segment = 0
		}
	}
	next := bumpSegment(pep440.Semantic(v.Tag), segment)
	return fmt.Sprintf("%s.dev%d", next.String(), v.Distance)
}

func fragmentKind(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".md")
	parts := strings.Split(name, ".")
	return parts[len(parts)-1]
}

func bumpSegment(ver pep440.Version, idx int) pep440.Version {
	release := make([]int, idx+1)
	copy(release, ver.Release)
	release[idx]++
	for i := idx + 1; i < len(release); i++ {
		release[i] = 0
	}
	return pep440.Version{
		PublicVersion: pep440.PublicVersion{
			Epoch:   ver.Epoch,
			Release: release,
		},
	}
}

func nodeAndDate(v *scmversion.ScmVersion, _ Context) string {
	return nodeAndTime(v, "d20060102")
}

func nodeAndTimestamp(v *scmversion.ScmVersion, _ Context) string {
	return nodeAndTime(v, "d20060102150405")
}

func nodeAndTime(v *scmversion.ScmVersion, layout string) string {
	t := v.Time
	if t.IsZero() {
		t = reproducible.Now().UTC()
	}
	switch {
	case v.Distance == 0 && v.Dirty:
		return t.UTC().Format(layout)
	case v.Distance > 0 && !v.Dirty:
		return v.Node
	case v.Distance > 0 && v.Dirty:
		return v.Node + "." + t.UTC().Format(layout)
	default:
		return ""
	}
}

func dirtyTag(v *scmversion.ScmVersion, _ Context) string {
	if v.Dirty {
		return "dirty"
	}
	return ""
}

func noLocalVersion(*scmversion.ScmVersion, Context) string {
	return ""
}
