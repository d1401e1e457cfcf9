// Package pep503 implements the distribution-name-normalization rule from
// PEP 503 -- Simple Repository API.
//
// https://www.python.org/dev/peps/pep-0503/
//
// Only the normalization rule is implemented here; the rest of PEP 503 (the
// simple-repository HTTP API) is a networked PyPI client, which is out of
// scope for this repository (see SPEC_FULL.md's Non-goals).
package pep503

import (
	"regexp"
	"strings"
)

var runOfSeparators = regexp.MustCompile(`[-_.]+`)

// Normalize implements the canonicalization rule PEP 503 specifies for
// comparing distribution names:
//
//	re.sub(r"[-_.]+", "-", name).lower()
func Normalize(name string) string {
	return strings.ToLower(runOfSeparators.ReplaceAllLiteralString(name, "-"))
}
