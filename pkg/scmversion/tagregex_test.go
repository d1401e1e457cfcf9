// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scmversion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/scmversion/pkg/python/pep440"
	"github.com/datawire/scmversion/pkg/scmversion"
)

func TestParseTagDefaultRegex(t *testing.T) {
	t.Parallel()
	re, err := scmversion.CompileTagRegex(scmversion.DefaultTagRegex)
	require.NoError(t, err)

	testcases := map[string]string{
		"v1.2.3":       "1.2.3",
		"1.2.3":        "1.2.3",
		"myproj-1.2.3": "1.2.3",
		"V2.0":         "2.0",
		"1.2.3+local1": "1.2.3",
	}
	for tag, want := range testcases {
		tag, want := tag, want
		t.Run(tag, func(t *testing.T) {
			t.Parallel()
			rendering, err := scmversion.ParseTag(re, pep440.Normalizing, tag)
			require.NoError(t, err)
			assert.Equal(t, want, rendering.String())
		})
	}
}

func TestParseTagNoMatch(t *testing.T) {
	t.Parallel()
	re, err := scmversion.CompileTagRegex(scmversion.DefaultTagRegex)
	require.NoError(t, err)

	_, err = scmversion.ParseTag(re, pep440.Normalizing, "not-a-version-at-all-!!!")
	require.Error(t, err)
	var tagErr *scmversion.TagParseError
	assert.ErrorAs(t, err, &tagErr)
}

func TestParseTagNonNormalizedPreservesCasing(t *testing.T) {
	t.Parallel()
	re, err := scmversion.CompileTagRegex(scmversion.DefaultTagRegex)
	require.NoError(t, err)

	rendering, err := scmversion.ParseTag(re, pep440.ParseNonNormalized, "V1.02")
	require.NoError(t, err)
	assert.Equal(t, "V1.02", rendering.String())
}
