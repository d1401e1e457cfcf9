// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package runner provides the uniform, timeout-bounded execution of external
// VCS commands described in spec.md §4.1 (C1 Process Runner).
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/dlib/dexec"
)

// DefaultTimeout is the soft timeout applied to a VCS invocation when
// neither a per-call override nor SETUPTOOLS_SCM_SUBPROCESS_TIMEOUT is set.
const DefaultTimeout = 40 * time.Second

// Result is the (exit_code, stdout, stderr) tuple spec.md §4.1 specifies.
// Stdout and Stderr have had all trailing "\r"/"\n" characters stripped.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// TimeoutError distinguishes a command that was killed for running past its
// deadline from one that simply exited non-zero.
type TimeoutError struct {
	Argv    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "command timed out after " + e.Timeout.String() + ": " + strings.Join(e.Argv, " ")
}

// Runner executes argv vectors in a given working directory. It never goes
// through a shell: the command is always an explicit argv list, so no
// argument is ever subject to shell-escaping rules.
type Runner struct {
	// Dir is the working directory commands run in.
	Dir string
	// Timeout is the soft timeout for a single invocation. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// Env, if non-nil, replaces the inherited environment entirely
	// (mirroring os/exec.Cmd.Env semantics).
	Env []string
}

// TimeoutFromEnv reads SETUPTOOLS_SCM_SUBPROCESS_TIMEOUT (spec.md §4.7),
// falling back to DefaultTimeout if it is unset or unparseable.
func TimeoutFromEnv() time.Duration {
	raw := os.Getenv("SETUPTOOLS_SCM_SUBPROCESS_TIMEOUT")
	if raw == "" {
		return DefaultTimeout
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(secs * float64(time.Second))
}

// Run spawns argv[0] with argv[1:] as arguments, in r.Dir, capturing stdout
// and stderr as text. It never returns an error for a non-zero exit code --
// callers inspect Result.ExitCode for that -- but does return an error for
// failure to spawn the process at all, or for exceeding the timeout.
func (r Runner) Run(ctx context.Context, argv ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = TimeoutFromEnv()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := dexec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	cmd.DisableLogging = true

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *dexec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return Result{}, &TimeoutError{Argv: argv, Timeout: timeout}
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return Result{}, err
		}
	}

	return Result{
		ExitCode: exitCode,
		Stdout:   trimTrailingNewlines(stdout.String()),
		Stderr:   trimTrailingNewlines(stderr.String()),
	}, nil
}

func trimTrailingNewlines(s string) string {
	return strings.TrimRight(s, "\r\n")
}
