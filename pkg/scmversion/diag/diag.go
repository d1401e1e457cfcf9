// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package diag provides one-shot warning emission: the same diagnostic
// produced more than once within a single inference call is only emitted
// once (spec.md §7, "Warnings are one-shot").
package diag

import (
	"context"
	"sync"

	"github.com/datawire/dlib/dlog"
)

// Sink de-duplicates warnings by key, scoped to one inference call. It is
// not safe for reuse across calls -- construct a fresh Sink per call, the
// same way each call gets a freshly frozen Configuration, so that one-shot
// state never leaks across concurrent inferences (spec.md §5).
type Sink struct {
	ctx context.Context //nolint:containedctx // stored once at construction, scopes this sink's lifetime to one call

	mu   sync.Mutex
	seen map[string]bool
}

// NewSink constructs a Sink that logs through ctx's dlog logger.
func NewSink(ctx context.Context) *Sink {
	return &Sink{ctx: ctx, seen: make(map[string]bool)}
}

// Warnf emits a warning identified by key, formatted from format/args. A
// second call with the same key, within the same Sink, is silently
// dropped.
func (s *Sink) Warnf(key, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	dlog.Warnf(s.ctx, format, args...)
}

// Errorf is the non-deduplicated counterpart, used for diagnostics that
// should always surface (e.g. fuzzy-match hints on a misspelled override
// env var), kept here so callers don't need to import dlog separately.
func (s *Sink) Errorf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	dlog.Errorf(s.ctx, format, args...)
}
