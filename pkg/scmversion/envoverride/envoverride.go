// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package envoverride reads the environment-variable overrides of spec.md
// §4.7: pretend-version, pretend-metadata, and per-distribution
// configuration overrides, each available in a generic and a
// per-distribution form.
package envoverride

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/datawire/scmversion/pkg/python/pep503"
	"github.com/datawire/scmversion/pkg/scmversion"
	"github.com/datawire/scmversion/pkg/scmversion/diag"
)

// DistSuffix derives the per-dist env-var suffix from a distribution name:
// canonicalize per PEP 503, then replace runs of [._-] with a single _, and
// upper-case (spec.md §4.7).
func DistSuffix(distName string) string {
	canon := pep503.Normalize(distName)
	return strings.ToUpper(runOfSeparators.ReplaceAllString(canon, "_"))
}

var runOfSeparators = regexp.MustCompile(`[._-]+`)

// Reader reads env-var overrides under a given prefix (normally
// SETUPTOOLS_SCM, but overridable by an embedder via OverrideContext).
type Reader struct {
	Prefix   string
	DistName string
	Warn     *diag.Sink
}

func (r Reader) generic(kind string) string {
	return fmt.Sprintf("%s_%s", r.Prefix, kind)
}

func (r Reader) perDist(kind string) string {
	return fmt.Sprintf("%s_%s_FOR_%s", r.Prefix, kind, DistSuffix(r.DistName))
}

// lookup returns the per-dist value if set, else the generic value, per the
// "per-dist wins" precedence rule.
func (r Reader) lookup(kind string) (string, bool) {
	if r.DistName != "" {
		if v, ok := os.LookupEnv(r.perDist(kind)); ok {
			return v, true
		}
	}
	return os.LookupEnv(r.generic(kind))
}

// PretendVersion reads SETUPTOOLS_SCM_PRETEND_VERSION[_FOR_<DIST>].
func (r Reader) PretendVersion() (string, bool) {
	return r.lookup("PRETEND_VERSION")
}

// PretendMetadata reads and schema-validates SETUPTOOLS_SCM_PRETEND_METADATA[_FOR_<DIST>].
func (r Reader) PretendMetadata() (map[string]interface{}, bool, error) {
	raw, ok := r.lookup("PRETEND_METADATA")
	if !ok {
		return nil, false, nil
	}
	decoded, err := r.decodeValidated(raw, r.envVarNameFor("PRETEND_METADATA"))
	return decoded, true, err
}

// Overrides reads SETUPTOOLS_SCM_OVERRIDES_FOR_<DIST>; unlike the other two
// variables, this one has no generic form -- it only makes sense per-dist.
func (r Reader) Overrides() (map[string]interface{}, bool, error) {
	if r.DistName == "" {
		return nil, false, nil
	}
	envVar := r.perDist("OVERRIDES")
	raw, ok := os.LookupEnv(envVar)
	if !ok {
		r.fuzzyHint("OVERRIDES")
		return nil, false, nil
	}
	decoded, err := r.decodeValidated(raw, envVar)
	return decoded, true, err
}

func (r Reader) envVarNameFor(kind string) string {
	if r.DistName != "" {
		if _, ok := os.LookupEnv(r.perDist(kind)); ok {
			return r.perDist(kind)
		}
	}
	return r.generic(kind)
}

// fuzzyHint scans the environment for a variable that has the right prefix
// and kind but a suffix that doesn't exactly match this dist's canonical
// suffix, and if found, emits a diagnostic naming the expected variable
// (spec.md §4.7).
func (r Reader) fuzzyHint(kind string) {
	if r.Warn == nil || r.DistName == "" {
		return
	}
	want := r.perDist(kind)
	wantPrefix := fmt.Sprintf("%s_%s_FOR_", r.Prefix, kind)
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		name := kv[:eq]
		if name == want || !strings.HasPrefix(name, wantPrefix) {
			continue
		}
		gotSuffix := strings.TrimPrefix(name, wantPrefix)
		wantSuffix := DistSuffix(r.DistName)
		if fuzzyEqual(gotSuffix, wantSuffix) {
			r.Warn.Warnf("env-fuzzy-"+name, "found %s, which looks like it was meant for this"+
				" distribution but doesn't match the expected name %s", name, want)
		}
	}
}

// fuzzyEqual treats two suffixes as a near-match if they're equal once all
// underscores are stripped (catches e.g. MY_PKG vs MYPKG).
func fuzzyEqual(a, b string) bool {
	return strings.ReplaceAll(a, "_", "") == strings.ReplaceAll(b, "_", "")
}

// schemaKind enumerates the typed fields an override/metadata table may set.
var schemaKind = map[string]string{
	"distance":     "int",
	"node":         "str",
	"dirty":        "bool",
	"branch":       "str",
	"node_date":    "date",
	"time":         "datetime",
	"preformatted": "bool",
	"tag":          "str",
}

// decodeValidated decodes raw (a TOML inline table, e.g. `{tag = "1.2.3",
// dirty = true}`) by wrapping it as `v = {...}` and parsing that as a
// one-key document, then drops and warns on any key not in schemaKind.
func (r Reader) decodeValidated(raw, envVar string) (map[string]interface{}, error) {
	wrapped := "v = " + raw
	tree, err := toml.Load(wrapped)
	if err != nil {
		return nil, &scmversion.OverrideDecodeError{EnvVar: envVar, Raw: raw, Err: err}
	}
	table, ok := tree.Get("v").(*toml.Tree)
	if !ok {
		return nil, &scmversion.OverrideDecodeError{
			EnvVar: envVar, Raw: raw,
			Err: fmt.Errorf("value is not an inline table"),
		}
	}

	result := make(map[string]interface{})
	for k, v := range table.ToMap() {
		if _, known := schemaKind[k]; !known {
			if r.Warn != nil {
				r.Warn.Warnf("env-unknown-key-"+envVar+"-"+k,
					"%s sets unknown key %q; ignoring it", envVar, k)
			}
			continue
		}
		result[k] = v
	}
	return result, nil
}
