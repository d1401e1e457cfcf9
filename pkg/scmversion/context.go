// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package scmversion

import (
	"context"
	"fmt"
)

// OverrideContext is the process-wide "tool name prefix + log level" seam
// spec.md §5/§9 describes: an embedder (a different build backend reusing
// this engine under its own name) can register an alternative env-var
// prefix that is consulted before SETUPTOOLS_SCM_*, plus a log level.
//
// Go has no notion of per-thread storage that fits this module's shape, so
// this is modeled the idiomatic Go way instead: as a value carried on a
// context.Context. Entering the override context is deriving a child
// context via WithOverrideContext; exiting it is simply going back to using
// the parent context, which naturally restores whatever was there before
// (nesting falls out of normal context derivation, not explicit push/pop).
type OverrideContext struct {
	// ToolPrefix, if non-empty, is consulted before the SETUPTOOLS_SCM_
	// prefix when resolving any of the env vars in spec.md §4.7.
	ToolPrefix string
	// LogLevel is the SETUPTOOLS_SCM_DEBUG-equivalent level for this
	// override scope.
	LogLevel string
}

type overrideContextKey struct{}

// WithOverrideContext derives a child context carrying oc. Fields left zero
// in oc inherit the parent scope's value, so a nested override that only
// wants to change the log level doesn't have to repeat the tool prefix.
func WithOverrideContext(ctx context.Context, oc OverrideContext) context.Context {
	if prior := OverrideContextFrom(ctx); prior != nil {
		if oc.ToolPrefix == "" {
			oc.ToolPrefix = prior.ToolPrefix
		}
		if oc.LogLevel == "" {
			oc.LogLevel = prior.LogLevel
		}
	}
	return context.WithValue(ctx, overrideContextKey{}, &oc)
}

// OverrideContextFrom returns the override context in scope, or nil if none
// was ever established.
func OverrideContextFrom(ctx context.Context) *OverrideContext {
	oc, _ := ctx.Value(overrideContextKey{}).(*OverrideContext)
	return oc
}

// PrefixFrom returns the env-var prefix in effect for ctx: an embedder's
// registered ToolPrefix if one is in scope, else SETUPTOOLS_SCM. Callers
// building an envoverride.Reader should consult this instead of hard-coding
// the default prefix, so a registered embedder prefix is consulted before
// SETUPTOOLS_SCM_* (spec.md §4.7/§5/§9).
func PrefixFrom(ctx context.Context) string {
	return OverrideContextFrom(ctx).effectivePrefix()
}

// Environ renders the override context as KEY=VALUE pairs suitable for
// appending to a child process's environment, so that an embedder shelling
// out to a further nested invocation of this tool can propagate its
// tool-name prefix and log level (SUPPLEMENTED FEATURES #3).
func (oc *OverrideContext) Environ() []string {
	if oc == nil {
		return nil
	}
	var env []string
	if oc.ToolPrefix != "" {
		env = append(env, fmt.Sprintf("%s_TOOL_PREFIX=%s", envPrefix, oc.ToolPrefix))
	}
	if oc.LogLevel != "" {
		env = append(env, fmt.Sprintf("%s_DEBUG=%s", oc.effectivePrefix(), oc.LogLevel))
	}
	return env
}

func (oc *OverrideContext) effectivePrefix() string {
	if oc != nil && oc.ToolPrefix != "" {
		return oc.ToolPrefix
	}
	return envPrefix
}

// envPrefix is the default environment-variable prefix, used when no
// embedder has registered an alternative via OverrideContext.
const envPrefix = "SETUPTOOLS_SCM"
