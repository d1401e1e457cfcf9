// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{ //nolint:exhaustivestruct
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Dump renders a value (typically an ScmVersion or a Configuration) the same
// way across expected/actual so that a failure shows a readable field-level
// diff instead of two opaque %#v blobs.
func Dump(v interface{}) string {
	return spewConfig.Sdump(v)
}

// AssertEqualDump compares two values via Dump and, on mismatch, reports a
// unified diff instead of dumping both values in full.
func AssertEqualDump(t *testing.T, exp, act interface{}) bool {
	t.Helper()
	return AssertEqualStrings(t, Dump(exp), Dump(act), "Expected", "Actual")
}

// AssertEqualStrings is the string-level equivalent of AssertEqualDump, used
// directly for rendered version strings (where there is nothing to spew).
func AssertEqualStrings(t *testing.T, exp, act string, fromLabel, toLabel string) bool {
	t.Helper()
	if exp == act {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{ //nolint:exhaustivestruct
		A:        difflib.SplitLines(exp),
		B:        difflib.SplitLines(act),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
	t.Errorf("%s != %s:\n%s", fromLabel, toLabel, diff)
	return false
}

// AssertNoErrorf is a small convenience used throughout the orchestrator
// tests where testify's require would otherwise abort a table-driven
// subtest loop at the wrong granularity.
func AssertNoErrorf(t *testing.T, err error, format string, args ...interface{}) bool {
	t.Helper()
	if err == nil {
		return true
	}
	t.Errorf("%s: %v", fmt.Sprintf(format, args...), err)
	return false
}
