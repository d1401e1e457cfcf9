// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package envoverride_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/scmversion/pkg/scmversion/diag"
	"github.com/datawire/scmversion/pkg/scmversion/envoverride"
)

func TestDistSuffixCanonicalizesAndUppercases(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "MY_PACKAGE_NAME", envoverride.DistSuffix("My_Package.Name"))
	assert.Equal(t, "MY_PACKAGE_NAME", envoverride.DistSuffix("my--package..name"))
}

func TestPretendVersionGenericForm(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_PRETEND_VERSION", "1.2.3")
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM", DistName: "my-pkg"}
	v, ok := r.PretendVersion()
	require.True(t, ok)
	assert.Equal(t, "1.2.3", v)
}

func TestPretendVersionPerDistWinsOverGeneric(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_PRETEND_VERSION", "1.0.0")
	t.Setenv("SETUPTOOLS_SCM_PRETEND_VERSION_FOR_MY_PKG", "2.0.0")
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM", DistName: "my-pkg"}
	v, ok := r.PretendVersion()
	require.True(t, ok)
	assert.Equal(t, "2.0.0", v)
}

func TestPretendMetadataDecodesSchemaKeysOnly(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_PRETEND_METADATA", `{branch = "main", dirty = true, bogus_key = "x"}`)
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM", DistName: "my-pkg", Warn: diag.NewSink(context.Background())}
	metadata, ok, err := r.PretendMetadata()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main", metadata["branch"])
	assert.Equal(t, true, metadata["dirty"])
	_, hasBogus := metadata["bogus_key"]
	assert.False(t, hasBogus, "unknown keys must be dropped")
}

func TestPretendMetadataInvalidTomlReturnsDecodeError(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_PRETEND_METADATA", `{not valid`)
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM", DistName: "my-pkg"}
	_, _, err := r.PretendMetadata()
	require.Error(t, err)
}

func TestOverridesOnlyHasPerDistForm(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_OVERRIDES_FOR_MY_PKG", `{tag = "3.0.0"}`)
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM", DistName: "my-pkg"}
	overrides, ok, err := r.Overrides()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3.0.0", overrides["tag"])
}

func TestOverridesWithoutDistNameIsNeverSet(t *testing.T) {
	t.Setenv("SETUPTOOLS_SCM_OVERRIDES_FOR_MY_PKG", `{tag = "3.0.0"}`)
	r := envoverride.Reader{Prefix: "SETUPTOOLS_SCM"}
	_, ok, err := r.Overrides()
	require.NoError(t, err)
	assert.False(t, ok)
}
