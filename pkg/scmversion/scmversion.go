// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package scmversion infers a PEP 440 package version from a source-control
// checkout, an exported archive of one, or distribution metadata left behind
// in a source tree -- together with the structured data (tag, distance,
// node, dirty, branch, timestamp) the version was derived from.
package scmversion

import (
	"strconv"
	"strings"
	"time"

	"github.com/datawire/scmversion/pkg/python/pep440"
)

// ScmVersion is the structured result of one inference call (spec.md §3).
// It is built once and never mutated afterward.
type ScmVersion struct {
	// Tag is either a parsed PEP 440 rendering or, when Preformatted is
	// true, an opaque preformatted string (held in PreformattedTag).
	Tag             pep440.Rendering
	PreformattedTag string
	Preformatted    bool

	// Distance is the number of commits since Tag; 0 means "at the tag".
	Distance int

	// NoTagsFound marks the "0.0" sentinel produced when a backend could
	// not locate any matching tag at all (spec.md §4.4's describe-fails
	// fallback). A sentinel tag is never considered Clean, even at
	// distance 0 -- this is the documented "empty repo" hazard of
	// spec.md §8.
	NoTagsFound bool

	// Node is the short hash, prefixed with the VCS letter ("g" for Git,
	// "h" for Mercurial). Empty when there is no commit yet.
	Node string

	Dirty bool

	// Branch is the short branch name, if known.
	Branch string

	// NodeDate is the commit date (UTC date component), if known.
	NodeDate time.Time
	HasNodeDate bool

	// Time is the build timestamp local schemes render from. It is
	// derived from SOURCE_DATE_EPOCH if set, else the current UTC time.
	Time time.Time

	// Config is a back-reference to the Configuration that produced this
	// value, for scheme callables that need tag_regex or version_cls.
	Config *Configuration
}

// TagString renders Tag the way schemes expect str(tag) to behave: the
// preformatted string verbatim, or the rendering's own String().
func (v *ScmVersion) TagString() string {
	if v.Preformatted {
		return v.PreformattedTag
	}
	return v.Tag.String()
}

// Clean reports whether this is "exactly at the tag, no local changes" --
// the condition every main scheme treats as "just emit the tag".
func (v *ScmVersion) Clean() bool {
	return !v.NoTagsFound && v.Distance == 0 && !v.Dirty
}

// FormatWith expands a template containing {tag}, {distance}, {node},
// {branch}, and {dirty}, per spec.md §4.12.
func (v *ScmVersion) FormatWith(template string) string {
	replacer := strings.NewReplacer(
		"{tag}", v.TagString(),
		"{distance}", strconv.Itoa(v.Distance),
		"{node}", v.Node,
		"{branch}", v.Branch,
		"{dirty}", formatBool(v.Dirty),
	)
	return replacer.Replace(template)
}

func formatBool(b bool) string {
	if b {
		return "dirty"
	}
	return "clean"
}

// FormatNextVersion composes a next-version template: guess computes the
// "next" release (e.g. bumping the last release segment) from the current
// tag, and the result is substituted into template's "{guessed}" alongside
// the usual {distance}/{node}/{branch}/{dirty} placeholders.
func (v *ScmVersion) FormatNextVersion(guess func(*ScmVersion) string, template string) string {
	guessed := guess(v)
	replacer := strings.NewReplacer(
		"{guessed}", guessed,
		"{tag}", v.TagString(),
		"{distance}", strconv.Itoa(v.Distance),
		"{node}", v.Node,
		"{branch}", v.Branch,
		"{dirty}", formatBool(v.Dirty),
	)
	return replacer.Replace(template)
}

// FormatChoice picks cleanFormat when Clean(), else dirtyFormat -- both are
// then expanded via FormatWith.
func (v *ScmVersion) FormatChoice(cleanFormat, dirtyFormat string) string {
	if v.Clean() {
		return v.FormatWith(cleanFormat)
	}
	return v.FormatWith(dirtyFormat)
}
