// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// launchFailureExitCode is reported when the process never started.
	launchFailureExitCode = -1

	// pipeWaitDelay bounds how long Run waits for output pipes once the
	// process has exited or been killed. A background process holding the
	// pipes is abandoned after this delay.
	pipeWaitDelay = 2 * time.Second
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Runner runs a single external command to completion.
	Runner interface {
		Run(ctx context.Context, name string, args []string, opts Options) *Result
	}

	// Options controls a single command invocation.
	Options struct {
		// Dir is the working directory of the child process. Empty means the
		// current process working directory.
		Dir string
		// StreamOutput relays output lines to the logger as they arrive.
		StreamOutput bool
		// Timeout bounds the command's run time. Zero means no limit.
		Timeout time.Duration
		// Env holds extra KEY=VALUE pairs appended to the inherited environment.
		Env []string
	}

	// Result describes how a command ended.
	Result struct {
		// ExitCode is the process exit code, or -1 if it never started or was
		// terminated by a signal.
		ExitCode int
		// Signal names the terminating signal, if any.
		Signal string
		// Err is set when the command could not be launched or was cut short by
		// cancellation or timeout. A plain non-zero exit leaves Err nil.
		Err error
		// Stdout and Stderr hold the captured output streams.
		Stdout string
		Stderr string
		// CommandLine is the shell-quoted command that was run.
		CommandLine string
	}

	// Option configures an Executor.
	Option func(*Executor)

	// Executor is the os/exec backed Runner.
	Executor struct {
		execCommand ExecCommandFunc
		logger      *slog.Logger
	}
)

// WithExecCommand overrides how commands are constructed.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(e *Executor) { e.execCommand = fn }
}

// WithLogger sets the logger used for streamed output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		execCommand: exec.CommandContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Failed reports whether the command exited non-zero or did not run at all.
func (r *Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// FailureMessage summarizes why the command failed, preferring the launch
// error over the exit status.
func (r *Result) FailureMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	msg := fmt.Sprintf("exit code=%d", r.ExitCode)
	if r.Signal != "" {
		msg += " signal=" + r.Signal
	}
	if stderr := strings.TrimSpace(r.Stderr); stderr != "" {
		msg += " " + stderr
	}
	return msg
}

// Run executes name with args and waits for it to exit.
func (e *Executor) Run(ctx context.Context, name string, args []string, opts Options) *Result {
	result := &Result{CommandLine: CommandLine(name, args)}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := e.execCommand(ctx, name, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		base := cmd.Env
		if base == nil {
			base = os.Environ()
		}
		cmd.Env = append(base, opts.Env...)
	}
	killProcessGroup(cmd)
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var streams []*lineLogger
	if opts.StreamOutput {
		outLog := newLineLogger(e.logger, result.CommandLine, "stdout")
		errLog := newLineLogger(e.logger, result.CommandLine, "stderr")
		streams = append(streams, outLog, errLog)
		cmd.Stdout = io.MultiWriter(&stdout, outLog)
		cmd.Stderr = io.MultiWriter(&stderr, errLog)
	}

	err := cmd.Run()
	for _, s := range streams {
		s.Flush()
	}
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil {
		// Exited cleanly; something it started kept the pipes open.
		e.logger.Debug("abandoned output of background process", "cmd", result.CommandLine)
		err = nil
	}
	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		result.Signal = signalName(exitErr.ProcessState)
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Err = fmt.Errorf("%s interrupted: %w", result.CommandLine, ctxErr)
		}
		return result
	}

	result.ExitCode = launchFailureExitCode
	result.Err = fmt.Errorf("failed to run %s: %w", result.CommandLine, err)
	return result
}

// CommandLine renders name and args as a shell-quoted string for display.
func CommandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{name}, args...) {
		quoted, err := syntax.Quote(p, syntax.LangBash)
		if err != nil {
			quoted = p
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " ")
}

// SplitCommandLine splits a shell-style command line into argv without
// running a shell. Variable references are expanded from the environment.
func SplitCommandLine(line string) ([]string, error) {
	fields, err := shell.Fields(line, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid command line %q: %w", line, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("invalid command line %q: empty", line)
	}
	return fields, nil
}

func signalName(state *os.ProcessState) string {
	if state == nil {
		return ""
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return ws.Signal().String()
}
