// SPDX-License-Identifier: MPL-2.0

// Package executor runs external programs (git, npm, bower) and reports the
// outcome as data. A non-zero exit, a signal, a launch failure and a timeout
// all come back inside a Result; Run never returns a Go error, so callers
// decide what is fatal.
package executor
