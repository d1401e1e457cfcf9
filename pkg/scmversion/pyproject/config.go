// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import "github.com/datawire/scmversion/pkg/scmversion"

// RawConfig converts the extracted [tool.setuptools_scm] table into a
// scmversion.RawConfig overlay layer, for the Configuration Resolver to
// apply as its step 2 (spec.md §4.8): "overlay pyproject values (only keys
// that are present)". Keys not recognized, or of the wrong TOML type, are
// left unset rather than erroring -- an unrecognized key is the embedder's
// own concern to validate, not this reader's.
func (p *Payload) RawConfig() scmversion.RawConfig {
	var layer scmversion.RawConfig
	sec := p.Section

	if s, ok := stringVal(sec, "root"); ok {
		layer.Root = &s
	}
	if s, ok := stringVal(sec, "relative_to"); ok {
		layer.RelativeTo = &s
	}
	if s, ok := stringVal(sec, "fallback_root"); ok {
		layer.FallbackRoot = &s
	}
	if s, ok := stringVal(sec, "fallback_version"); ok {
		layer.FallbackVersion = &s
	}
	if s, ok := stringVal(sec, "tag_regex"); ok {
		layer.TagRegex = &s
	}
	if s, ok := stringVal(sec, "parentdir_prefix_version"); ok {
		layer.ParentDirPrefixVersion = &s
	}
	if ss, ok := stringListVal(sec, "version_scheme"); ok {
		layer.VersionScheme = ss
	}
	if s, ok := stringVal(sec, "local_scheme"); ok {
		layer.LocalScheme = &s
	}
	if b, ok := boolVal(sec, "normalize"); ok {
		layer.Normalize = &b
	}
	if b, ok := boolVal(sec, "version_cls_non_normalized"); ok {
		layer.NonNormalizedVersionCls = &b
	}
	if s, ok := stringVal(sec, "write_to"); ok {
		layer.WriteTo = &s
	}
	if s, ok := stringVal(sec, "version_file"); ok {
		layer.VersionFile = &s
	}
	if s, ok := stringVal(sec, "version_file_template"); ok {
		layer.VersionFileTemplate = &s
	}
	if b, ok := boolVal(sec, "search_parent_directories"); ok {
		layer.SearchParentDirectories = &b
	}
	if ss, ok := stringListVal(sec, "git_describe_command"); ok {
		layer.GitDescribeCommand = ss
	}
	if s, ok := stringVal(sec, "git_pre_parse"); ok {
		mode := scmversion.PreParseMode(s)
		layer.GitPreParse = &mode
	}
	if s, ok := stringVal(sec, "dist_name"); ok {
		layer.DistName = &s
	}

	return layer
}

func stringVal(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func boolVal(m map[string]interface{}, key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// stringListVal accepts either a bare string (wrapped as a one-element
// list) or an array of strings, matching setuptools_scm's own leniency for
// version_scheme/git_describe_command.
func stringListVal(m map[string]interface{}, key string) ([]string, bool) {
	switch v := m[key].(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
