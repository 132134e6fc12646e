// Package proc is the process invoker (component A): it runs external
// tools, captures stdout/stderr/exit code, optionally feeds stdin, and
// provides the sudo and netns-entry wrappers every other component builds
// on. No operation in this package throws — failures are values.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/containerd/errdefs"
)

// Result is the outcome of running an external command.
type Result struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// ProcessError is returned by RunChecked when a command exits non-zero.
type ProcessError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", strings.Join(e.Argv, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

var (
	alreadyExistsMarkers = []string{"file exists", "already exists"}
	notFoundMarkers      = []string{"no such container", "not found", "unit not found", "no such file or directory", "not loaded"}
)

// ClassifyStderr wraps a failing Result's stderr into an errdefs-compatible
// error when it matches a recognized "already exists"/"not found" shape,
// so ensure/ensure-like idempotent callers can tell a real failure from a
// command stepping on state a previous tick already created, using
// errdefs.IsAlreadyExists/errdefs.IsNotFound instead of their own
// substring checks. Returns a plain error wrapping the stderr when no
// marker matches.
func ClassifyStderr(res Result) error {
	lower := strings.ToLower(res.Stderr)
	for _, m := range alreadyExistsMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%s: %w", strings.TrimSpace(res.Stderr), errdefs.ErrAlreadyExists)
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%s: %w", strings.TrimSpace(res.Stderr), errdefs.ErrNotFound)
		}
	}
	return fmt.Errorf("%s", strings.TrimSpace(res.Stderr))
}

// Invoker runs external processes. The zero value is ready to use.
type Invoker struct {
	// No fields: stdin, when needed, is passed per call as the stdin
	// argument of Run/RunChecked.
}

// Run executes argv and returns its outcome. It never returns an error for
// a non-zero exit — check Result.ExitCode. It returns an error only if the
// process could not be started at all.
func (iv *Invoker) Run(ctx context.Context, argv []string, stdin []byte) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("run: empty argv")
	}

	cmd := newCommand(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	slog.Debug("proc: exec", "argv", argv)
	runErr := cmd.Run()

	res := Result{
		Argv:   argv,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if runErr != nil {
		if exitErr, ok := asExitError(runErr); ok {
			res.ExitCode = exitErr
		} else {
			return Result{}, fmt.Errorf("start %q: %w", strings.Join(argv, " "), runErr)
		}
	}

	if res.Stdout != "" || res.Stderr != "" {
		slog.Debug("proc: output", "argv", argv, "exit", res.ExitCode, "stdout", truncate(res.Stdout), "stderr", truncate(res.Stderr))
	}
	return res, nil
}

// RunChecked runs argv and returns stdout, failing with a *ProcessError if
// the command exits non-zero.
func (iv *Invoker) RunChecked(ctx context.Context, argv []string, stdin []byte) (string, error) {
	res, err := iv.Run(ctx, argv, stdin)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", &ProcessError{Argv: argv, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}

// SudoWrap prepends `sudo` to argv iff the effective uid is not root.
func SudoWrap(argv []string) []string {
	if os.Geteuid() == 0 {
		return argv
	}
	return append([]string{"sudo"}, argv...)
}

// NsWrap prepends `ip netns exec <ns>` to argv iff ns is non-empty.
func NsWrap(ns string, argv []string) []string {
	if ns == "" {
		return argv
	}
	return append([]string{"ip", "netns", "exec", ns}, argv...)
}

func truncate(s string) string {
	const max = 2000
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
