// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scmversion

import (
	"fmt"
	"regexp"

	"github.com/datawire/scmversion/pkg/python/pep440"
)

// DefaultTagRegex accepts an optional project prefix of word characters and
// dashes, an optional leading v/V, a PEP 440 version body, and discards
// anything from a trailing "+" build-metadata segment onward (spec.md §4.2).
const DefaultTagRegex = `^(?:[\w-]+-)?(?P<version>[vV]?\d+(?:\.\d+){0,2}[^+]*)(?:\+.*)?$`

// CompileTagRegex compiles pattern, wrapping a failure as a
// ConfigurationError (spec.md §7).
func CompileTagRegex(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("tag_regex %q does not compile", pattern),
			Err:    err,
		}
	}
	if names := re.SubexpNames(); !containsString(names, "version") && re.NumSubexp() > 1 {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("tag_regex %q must expose its version body as a named"+
				" group \"version\" or as the sole unnamed group", pattern),
		}
	}
	return re, nil
}

// ParseTag applies re to tag to extract the version-bearing substring, then
// feeds that substring to versionCls. Spec.md §4.2's two-step parse.
func ParseTag(re *regexp.Regexp, versionCls pep440.VersionClass, tag string) (pep440.Rendering, error) {
	match := re.FindStringSubmatch(tag)
	if match == nil {
		return nil, &TagParseError{Tag: tag, Err: fmt.Errorf("does not match tag_regex %q", re.String())}
	}

	captured := match[0]
	if names := re.SubexpNames(); containsString(names, "version") {
		captured = match[indexOfString(names, "version")]
	} else if len(match) > 1 {
		captured = match[1]
	}

	rendering, err := versionCls(captured)
	if err != nil {
		return nil, &TagParseError{Tag: tag, Err: err}
	}
	return rendering, nil
}

// ParsePreformatted wraps a string that is already a final version (the
// archive/parent-dir-prefix/PKG-INFO/pretend-version fallback paths) without
// running it through tag_regex at all -- spec.md §4.2's "empty captured
// string is legal only ... for preformatted tags" carve-out.
func ParsePreformatted(str string) (pep440.Rendering, error) {
	return pep440.ParseNonNormalized(str)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func indexOfString(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
