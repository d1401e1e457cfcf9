// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package archival parses the VCS-export substitution files
// (.git_archival.txt, .hg_archival.txt) that let a version be recovered
// from an exported archive with no live VCS present (spec.md §4.3).
package archival

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/scmversion/pkg/scmversion"
	"github.com/datawire/scmversion/pkg/scmversion/diag"
)

// readKV reads a flat RFC-822-ish "key: value" file. Unlike pkg/scm/fallback's
// PKG-INFO reader it does not stop at the first blank line: archival files
// have no body to separate from the headers.
func readKV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		kv[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scmversion: reading %s: %w", path, err)
	}
	return kv, nil
}

var placeholderRe = regexp.MustCompile(`^\$Format:.*\$$`)

// expanded reports whether a substitution value was actually expanded by
// `git archive`/`hg archive`, as opposed to being left as the literal
// "$Format:...$" placeholder (meaning the export mechanism isn't wired up).
func expanded(value string) bool {
	return value != "" && !placeholderRe.MatchString(value)
}

var describeRe = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)$`)

// ReadGitArchival parses .git_archival.txt. Spec.md §4.3.
func ReadGitArchival(path string, cfg *scmversion.Configuration, warn *diag.Sink) (*scmversion.ScmVersion, error) {
	kv, err := readKV(path)
	if err != nil {
		return nil, err
	}

	v := &scmversion.ScmVersion{Config: cfg}

	if node, ok := kv["node"]; ok && expanded(node) {
		v.Node = "g" + node
	}
	if dateStr, ok := kv["node-date"]; ok && expanded(dateStr) {
		if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
			v.NodeDate, v.HasNodeDate = t.UTC(), true
		}
	}

	describeName, describeOK := kv["describe-name"]
	if !describeOK || !expanded(describeName) {
		if warn != nil {
			warn.Warnf("archival-unexpanded", "%s has no expanded describe-name (archive was"+
				" exported without `export-subst`); falling back to ref-names", path)
		}
		return readGitArchivalFromRefNames(kv, v, cfg)
	}

	m := describeRe.FindStringSubmatch(describeName)
	if m == nil {
		return nil, fmt.Errorf("scmversion: %s: describe-name %q is not parseable as"+
			" tag-distance-node", path, describeName)
	}
	tagStr, distanceStr, shortHash := m[1], m[2], m[3]

	distance, err := strconv.Atoi(distanceStr)
	if err != nil {
		return nil, fmt.Errorf("scmversion: %s: bad distance in describe-name %q: %w", path, describeName, err)
	}

	tag, err := scmversion.ParseTag(cfg.TagRegex, cfg.VersionCls, tagStr)
	if err != nil {
		return nil, err
	}

	v.Tag = tag
	v.Distance = distance
	v.Node = "g" + shortHash
	v.Dirty = false
	return v, nil
}

func readGitArchivalFromRefNames(kv map[string]string, v *scmversion.ScmVersion, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	refNames, ok := kv["ref-names"]
	if !ok || !expanded(refNames) {
		return nil, fmt.Errorf("scmversion: .git_archival.txt has neither an expanded" +
			" describe-name nor ref-names")
	}
	for _, ref := range strings.Split(refNames, ",") {
		ref = strings.TrimSpace(ref)
		ref = strings.TrimPrefix(ref, "tag: ")
		tag, err := scmversion.ParseTag(cfg.TagRegex, cfg.VersionCls, ref)
		if err == nil {
			v.Tag = tag
			v.Distance = 0
			v.Dirty = false
			return v, nil
		}
	}
	return nil, fmt.Errorf("scmversion: no ref in ref-names %q parses as a version tag", refNames)
}

// ReadHgArchival parses .hg_archival.txt. Spec.md §4.3.
func ReadHgArchival(path string, cfg *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	kv, err := readKV(path)
	if err != nil {
		return nil, err
	}

	v := &scmversion.ScmVersion{Config: cfg}
	if node, ok := kv["node"]; ok && expanded(node) {
		v.Node = "h" + node
	}
	if branch, ok := kv["branch"]; ok {
		v.Branch = branch
	}

	tagName, ok := kv["tag"]
	if !ok || !expanded(tagName) {
		tagName, ok = kv["latesttag"]
	}
	distanceStr, distOK := kv["latesttagdistance"]
	distance := 0
	if distOK {
		distance, _ = strconv.Atoi(distanceStr)
	}

	if !ok || !expanded(tagName) {
		tag, err := scmversion.ParsePreformatted("0.0")
		if err != nil {
			return nil, err
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
