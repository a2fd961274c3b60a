// SPDX-License-Identifier: MPL-2.0

//go:build unix

package executor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRun_TimeoutKillsChildProcesses(t *testing.T) {
	t.Parallel()
	requireShell(t)

	start := time.Now()
	result := New().Run(t.Context(), "sh", []string{"-c", "sleep 5 & wait"}, Options{Timeout: 200 * time.Millisecond})
	elapsed := time.Since(start)

	if !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want context.DeadlineExceeded", result.Err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Run returned after %s, the timeout did not stop the background sleep", elapsed)
	}
}

func TestRun_BackgroundProcessHoldingPipes(t *testing.T) {
	t.Parallel()
	requireShell(t)

	start := time.Now()
	result := New().Run(t.Context(), "sh", []string{"-c", "echo done; sleep 10 &"}, Options{})
	elapsed := time.Since(start)

	if result.Failed() {
		t.Fatalf("a clean exit must not fail: %s", result.FailureMessage())
	}
	if result.Stdout != "done\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "done\n")
	}
	if elapsed > pipeWaitDelay+3*time.Second {
		t.Errorf("Run returned after %s, want about %s", elapsed, pipeWaitDelay)
	}
}
