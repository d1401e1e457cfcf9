// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import "strings"

// VersionClass is the `version_cls` seam from the scmversion Configuration:
// a way to turn a tag-regex capture into something with a String() and a
// Cmp(), without necessarily running it through PEP 440 normalization.
//
// The default implementation is the package-level ParseVersion (normalizing,
// canonical form). NonNormalized is the alternative: it preserves whatever
// casing/prefixes the tag actually had, only trimming surrounding whitespace
// (a leading "v" is kept).
type VersionClass func(str string) (Rendering, error)

// Rendering is anything a tag can be turned in to that schemes know how to
// render and compare.
type Rendering interface {
	String() string
	Cmp(Rendering) int
}

// Normalizing is the default VersionClass: parse and canonicalize per PEP 440.
func Normalizing(str string) (Rendering, error) {
	ver, err := ParseVersion(str)
	if err != nil {
		return nil, err
	}
	return normalizingRendering{ver}, nil
}

type normalizingRendering struct{ *Version }

func (r normalizingRendering) Cmp(other Rendering) int {
	o, ok := other.(normalizingRendering)
	if !ok {
		panic("pep440: cannot compare a Normalizing version against a different VersionClass")
	}
	return r.Version.Cmp(*o.Version)
}

// NonNormalized wraps a tag string verbatim: it is used when `normalize =
// false`, so that e.g. a tag like "V1.02" renders back out exactly as
// "V1.02" rather than "1.2". Only surrounding whitespace is stripped (a
// leading v/V stays part of the rendered string), and the value must
// still parse as a legal PEP 440 version underneath, so that comparison
// (needed by "clean vs dirty" checks and scheme dispatch) stays meaningful.
type NonNormalized struct {
	raw      string
	semantic *Version
}

// ParseNonNormalized parses str into a NonNormalized version, validating it
// against the PEP 440 grammar (for comparison purposes) without rewriting
// its surface form.
func ParseNonNormalized(str string) (Rendering, error) {
	trimmed := strings.TrimSpace(str)
	semantic, err := ParseVersion(trimmed)
	if err != nil {
		return nil, err
	}
	return NonNormalized{raw: trimmed, semantic: semantic}, nil
}

func (v NonNormalized) String() string { return v.raw }

func (v NonNormalized) Cmp(other Rendering) int {
	o, ok := other.(NonNormalized)
	if !ok {
		panic("pep440: cannot compare a NonNormalized version against a different VersionClass")
	}
	return v.semantic.Cmp(*o.semantic)
}

// Semantic exposes the underlying parsed PEP440 version, for schemes that
// need to inspect release segments (next-version guessing, IsFinal, etc)
// regardless of which VersionClass produced the Rendering.
func (v NonNormalized) Semantic() Version { return *v.semantic }

// Semantic extracts the underlying PEP 440 structure from any Rendering
// produced by Normalizing or NonNormalized, panicking on unrecognized
// implementations. Scheme callables use this rather than re-parsing strings.
func Semantic(r Rendering) Version {
	switch v := r.(type) {
	case normalizingRendering:
		return *v.Version
	case NonNormalized:
		return v.Semantic()
	default:
		panic("pep440: not a Rendering produced by this package")
	}
}

// BumpLastRelease returns a copy of ver with 1 added to the last release
// segment, and pre/post/dev/local all cleared -- the "next version" that
// guess-next-dev and friends build a .devN suffix on top of (spec.md §4.9).
func BumpLastRelease(ver Version) Version {
	release := make([]int, len(ver.Release))
	copy(release, ver.Release)
	if len(release) == 0 {
		release = []int{0}
	}
	release[len(release)-1]++
	return Version{
		PublicVersion: PublicVersion{
			Epoch:   ver.Epoch,
			Release: release,
		},
	}
}
