// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scmversion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/scmversion/pkg/scmversion"
)

func TestResolveDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := scmversion.Resolve()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, []string{"guess-next-dev"}, cfg.VersionScheme)
	assert.Equal(t, "node-and-date", cfg.LocalScheme)
	assert.True(t, cfg.Normalize)
	assert.True(t, cfg.SearchParentDirectories)
	assert.Equal(t, scmversion.WarnOnShallow, cfg.GitPreParse)
	assert.Equal(t, scmversion.DefaultTagRegex, cfg.TagRegexPattern)
	assert.False(t, cfg.HasFallbackVersion)
}

func TestResolveOverlayPrecedence(t *testing.T) {
	t.Parallel()

	pyprojectScheme := "post-release"
	callSiteScheme := "only-version"
	envScheme := "no-guess-dev"

	pyproject := scmversion.RawConfig{LocalScheme: &pyprojectScheme}
	callSite := scmversion.RawConfig{LocalScheme: &callSiteScheme}
	envOverride := scmversion.RawConfig{LocalScheme: &envScheme}

	cfg, err := scmversion.Resolve(pyproject, callSite, envOverride)
	require.NoError(t, err)
	assert.Equal(t, envScheme, cfg.LocalScheme, "later layers must win over earlier ones")

	cfg, err = scmversion.Resolve(pyproject, callSite)
	require.NoError(t, err)
	assert.Equal(t, callSiteScheme, cfg.LocalScheme, "call-site overrides must win over pyproject")
}

func TestResolveOnlySetKeysOverlay(t *testing.T) {
	t.Parallel()
	distName := "my-pkg"
	cfg, err := scmversion.Resolve(scmversion.RawConfig{DistName: &distName})
	require.NoError(t, err)

	// A layer that only sets DistName must not clobber defaults for
	// fields it left nil.
	assert.Equal(t, "node-and-date", cfg.LocalScheme)
	assert.Equal(t, "my-pkg", cfg.DistName)
}

func TestResolveDistNameCanonicalized(t *testing.T) {
	t.Parallel()
	distName := "My_Package.Name"
	cfg, err := scmversion.Resolve(scmversion.RawConfig{DistName: &distName})
	require.NoError(t, err)
	assert.Equal(t, "my-package-name", cfg.DistName)
}

func TestResolveBadTagRegex(t *testing.T) {
	t.Parallel()
	bad := "(unterminated"
	_, err := scmversion.Resolve(scmversion.RawConfig{TagRegex: &bad})
	require.Error(t, err)
	var confErr *scmversion.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestResolveOverridesLayerPassesThroughUnchanged(t *testing.T) {
	t.Parallel()
	overrides := map[string]interface{}{"tag": "3.0.0", "dirty": true}
	cfg, err := scmversion.Resolve(scmversion.RawConfig{Overrides: overrides})
	require.NoError(t, err)
	assert.Equal(t, overrides, cfg.Overrides)
}

func TestResolveWriteToDeprecated(t *testing.T) {
	t.Parallel()
	writeTo := "VERSION"
	versionFile := "pkg/_version.py"
	cfg, err := scmversion.Resolve(scmversion.RawConfig{WriteTo: &writeTo, VersionFile: &versionFile})
	require.NoError(t, err)
	assert.True(t, cfg.WriteToIsDeprecated)
}
