// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package executor

import "os/exec"

// killProcessGroup is a no-op; cancellation kills the direct child only and
// WaitDelay bounds the wait for its pipes.
func killProcessGroup(*exec.Cmd) {}
