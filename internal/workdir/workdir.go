// SPDX-License-Identifier: MPL-2.0

// Package workdir serializes changes to the process working directory.
//
// The working directory is process-global. Some extraction steps resolve paths
// relative to it, so every such step runs inside Guard.Do, which holds a
// single-slot semaphore, switches into the target directory, and always
// switches back to the guard's home directory before releasing the slot.
package workdir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// ErrAcquire is the sentinel error wrapped by AcquireError.
var ErrAcquire = errors.New("failed to acquire working directory")

type (
	// AcquireError is returned when the guard could not be taken or the
	// target directory could not be entered.
	AcquireError struct {
		Dir string
		Err error
	}

	// Guard owns the process working directory for the lifetime of a run.
	Guard struct {
		home string
		sem  *semaphore.Weighted
	}
)

// Error implements the error interface.
func (e *AcquireError) Error() string {
	return fmt.Sprintf("failed to enter %s: %v", e.Dir, e.Err)
}

// Unwrap returns both ErrAcquire and the underlying cause.
func (e *AcquireError) Unwrap() []error { return []error{ErrAcquire, e.Err} }

// New creates a Guard that restores to home. An empty home records the
// current working directory.
func New(home string) (*Guard, error) {
	if home == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		home = wd
	}
	abs, err := filepath.Abs(home)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory %s: %w", home, err)
	}
	return &Guard{home: abs, sem: semaphore.NewWeighted(1)}, nil
}

// Home returns the directory the guard restores to.
func (g *Guard) Home() string { return g.home }

// Do runs fn with the working directory set to dir. The home directory is
// restored on every exit path; a restore failure is appended to fn's error.
func (g *Guard) Do(ctx context.Context, dir string, fn func() error) (err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return &AcquireError{Dir: dir, Err: err}
	}
	defer g.sem.Release(1)

	defer func() {
		err = multierr.Append(err, g.chdirHome())
	}()

	if err := os.Chdir(dir); err != nil {
		return &AcquireError{Dir: dir, Err: err}
	}
	slog.Debug("entered directory", "dir", dir)

	return fn()
}

// Restore switches back to the home directory, waiting for any in-flight Do.
func (g *Guard) Restore(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return &AcquireError{Dir: g.home, Err: err}
	}
	defer g.sem.Release(1)
	return g.chdirHome()
}

func (g *Guard) chdirHome() error {
	if err := os.Chdir(g.home); err != nil {
		return fmt.Errorf("failed to restore working directory to %s: %w", g.home, err)
	}
	return nil
}
