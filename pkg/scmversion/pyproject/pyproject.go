// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pyproject reads pyproject.toml and extracts the
// [tool.setuptools_scm] (or an embedder's alias) table plus [project].name,
// per spec.md §4.6. It applies no defaults -- those belong to the
// Configuration resolver (C8).
package pyproject

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/datawire/scmversion/pkg/python/pep503"
)

// Payload is the typed result of reading pyproject.toml.
type Payload struct {
	SectionPresent bool
	ProjectPresent bool
	ProjectName    string // already PEP 503 canonicalized
	Section        map[string]interface{}
}

// DefaultToolName is the primary section name: [tool.setuptools_scm].
const DefaultToolName = "setuptools_scm"

// Read loads path and extracts toolName's table (falling back to any names
// in aliasToolNames, merged shallowly with toolName taking precedence) plus
// project.name.
func Read(path string, toolName string, aliasToolNames ...string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Payload{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scmversion: reading %s: %w", path, err)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("scmversion: parsing %s: %w", path, err)
	}

	payload := &Payload{Section: map[string]interface{}{}}

	for _, name := range append([]string{}, aliasToolNames...) {
		mergeToolSection(payload, tree, name)
	}
	mergeToolSection(payload, tree, toolName) // primary wins: applied last

	if name, ok := tree.Get("project.name").(string); ok && name != "" {
		payload.ProjectPresent = true
		payload.ProjectName = pep503.Normalize(name)
	}

	return payload, nil
}

func mergeToolSection(payload *Payload, tree *toml.Tree, name string) {
	sub, ok := tree.Get("tool." + name).(*toml.Tree)
	if !ok {
		return
	}
	payload.SectionPresent = true
	for k, v := range sub.ToMap() {
		payload.Section[k] = v
	}
}
