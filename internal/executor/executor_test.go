// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// helperCommand returns an ExecCommandFunc that re-runs the test binary as a
// fake child process configured through GO_HELPER_* variables.
func helperCommand(t *testing.T, exitCode int, stdout, stderr string, extraEnv ...string) ExecCommandFunc {
	t.Helper()
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, arg...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append([]string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", exitCode),
			"GO_HELPER_STDOUT=" + stdout,
			"GO_HELPER_STDERR=" + stderr,
		}, extraEnv...)
		return cmd
	}
}

// TestHelperProcess is not a real test. It is the body of the fake child
// process started by helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if d := os.Getenv("GO_HELPER_SLEEP"); d != "" {
		if dur, err := time.ParseDuration(d); err == nil {
			time.Sleep(dur)
		}
	}
	if key := os.Getenv("GO_HELPER_ECHO_ENV"); key != "" {
		fmt.Fprint(os.Stdout, os.Getenv(key))
	}
	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	e := New(WithExecCommand(helperCommand(t, 0, "abc123\n", "")))
	result := e.Run(t.Context(), "git", []string{"rev-parse", "HEAD"}, Options{})

	if result.Failed() {
		t.Fatalf("expected success, got %s", result.FailureMessage())
	}
	if result.Stdout != "abc123\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "abc123\n")
	}
	if result.CommandLine != "git rev-parse HEAD" {
		t.Errorf("CommandLine = %q", result.CommandLine)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	e := New(WithExecCommand(helperCommand(t, 3, "", "npm ERR! missing script\n")))
	result := e.Run(t.Context(), "npm", []string{"install"}, Options{})

	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if result.Err != nil {
		t.Errorf("a plain non-zero exit should leave Err nil, got %v", result.Err)
	}
	if !strings.Contains(result.FailureMessage(), "npm ERR! missing script") {
		t.Errorf("FailureMessage() = %q, want stderr included", result.FailureMessage())
	}
}

func TestRun_LaunchFailure(t *testing.T) {
	t.Parallel()

	e := New()
	result := e.Run(t.Context(), "licensescan-no-such-binary-xyz", nil, Options{})

	if result.ExitCode != launchFailureExitCode {
		t.Errorf("ExitCode = %d, want %d", result.ExitCode, launchFailureExitCode)
	}
	if !errors.Is(result.Err, exec.ErrNotFound) {
		t.Errorf("Err = %v, want exec.ErrNotFound", result.Err)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	e := New(WithExecCommand(helperCommand(t, 0, "", "", "GO_HELPER_SLEEP=10s")))
	result := e.Run(t.Context(), "bower", []string{"install"}, Options{Timeout: 50 * time.Millisecond})

	if !result.Failed() {
		t.Fatal("expected the command to be cut short")
	}
	if !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want context.DeadlineExceeded", result.Err)
	}
}

func TestRun_EnvAppended(t *testing.T) {
	t.Parallel()

	e := New(WithExecCommand(helperCommand(t, 0, "", "", "GO_HELPER_ECHO_ENV=NPM_CONFIG_LOGLEVEL")))
	result := e.Run(t.Context(), "npm", []string{"prune"}, Options{Env: []string{"NPM_CONFIG_LOGLEVEL=warn"}})

	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.FailureMessage())
	}
	if result.Stdout != "warn" {
		t.Errorf("child did not see appended env, Stdout = %q", result.Stdout)
	}
}

func TestRun_StreamOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := New(
		WithExecCommand(helperCommand(t, 0, "added 12 packages\nfound 0 vulnerabilities", "")),
		WithLogger(logger),
	)
	result := e.Run(t.Context(), "npm", []string{"install"}, Options{StreamOutput: true})

	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.FailureMessage())
	}
	logged := buf.String()
	for _, want := range []string{"added 12 packages", "found 0 vulnerabilities", "stream=stdout"} {
		if !strings.Contains(logged, want) {
			t.Errorf("streamed log missing %q:\n%s", want, logged)
		}
	}
	if !strings.Contains(result.Stdout, "added 12 packages") {
		t.Error("streaming must not prevent capture")
	}
}

func TestCommandLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "git", args: []string{"status", "--porcelain"}, want: "git status --porcelain"},
		{name: "npm", args: []string{"install", "some dir"}, want: "npm install 'some dir'"},
		{name: "bower", want: "bower"},
	}
	for _, tt := range tests {
		if got := CommandLine(tt.name, tt.args); got != tt.want {
			t.Errorf("CommandLine(%q, %v) = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	t.Parallel()

	got, err := SplitCommandLine(`npm ci --prefer-offline "--cache=/tmp/npm cache"`)
	if err != nil {
		t.Fatalf("SplitCommandLine: %v", err)
	}
	want := []string{"npm", "ci", "--prefer-offline", "--cache=/tmp/npm cache"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SplitCommandLine = %q, want %q", got, want)
	}

	if _, err := SplitCommandLine("   "); err == nil {
		t.Error("blank command line should be rejected")
	}
	if _, err := SplitCommandLine(`npm "unterminated`); err == nil {
		t.Error("unterminated quote should be rejected")
	}
}
