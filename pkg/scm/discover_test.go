// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scm_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/scmversion/pkg/scm"
	"github.com/datawire/scmversion/pkg/scmversion"
)

type markerBackend struct {
	marker string
}

func (b markerBackend) Name() string { return b.marker }

func (b markerBackend) Detect(path string) bool {
	_, err := os.Stat(filepath.Join(path, b.marker))
	return err == nil
}

func (markerBackend) Parse(context.Context, string, *scmversion.Configuration) (*scmversion.ScmVersion, error) {
	return nil, nil
}

func (markerBackend) ListFiles(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestDiscoverFindsMarkerInParent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	found, backend, ok := scm.Discover(sub, true, []scm.Backend{markerBackend{marker: ".git"}}, nil)
	require.True(t, ok)
	assert.Equal(t, root, found)
	assert.Equal(t, "git", backend.Name())
}

func TestDiscoverWithoutSearchParentsOnlyChecksStart(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "a")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, _, ok := scm.Discover(sub, false, []scm.Backend{markerBackend{marker: ".git"}}, nil)
	assert.False(t, ok)

	_, _, ok = scm.Discover(root, false, []scm.Backend{markerBackend{marker: ".git"}}, nil)
	assert.True(t, ok)
}

func TestDiscoverHonorsIgnoredRoots(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	ignored := map[string]bool{abs: true}

	_, _, ok := scm.Discover(sub, true, []scm.Backend{markerBackend{marker: ".git"}}, ignored)
	assert.False(t, ok, "an ignored root must not be returned even though it carries the marker")
}

func TestDiscoverNoMarkerAnywhere(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	sub := filepath.Join(root, "x", "y")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, _, ok := scm.Discover(sub, true, []scm.Backend{markerBackend{marker: ".git"}}, nil)
	assert.False(t, ok)
}

func TestIgnoredRootsEmptyWhenUnset(t *testing.T) {
	t.Setenv(scm.IgnoreVCSRootsEnv, "")
	assert.Nil(t, scm.IgnoredRoots())
}

func TestIgnoredRootsSplitsPathList(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	t.Setenv(scm.IgnoreVCSRootsEnv, a+string(os.PathListSeparator)+b)

	ignored := scm.IgnoredRoots()
	absA, _ := filepath.Abs(a)
	absB, _ := filepath.Abs(b)
	assert.True(t, ignored[absA])
	assert.True(t, ignored[absB])
}
