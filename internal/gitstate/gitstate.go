// SPDX-License-Identifier: MPL-2.0

// Package gitstate reports whether a directory's git working tree is clean
// and which revision it is at.
package gitstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/connectedyard/licensescan/internal/executor"
)

const (
	// BackendGit shells out to the git binary.
	BackendGit Backend = "git"
	// BackendGoGit reads the repository in-process with go-git.
	BackendGoGit Backend = "go-git"
)

var (
	// ErrRepoStateUnknown is wrapped by Info.Err when inspection failed.
	ErrRepoStateUnknown = errors.New("repository state unknown")

	// ErrInvalidBackend is returned for an unrecognized backend name.
	ErrInvalidBackend = errors.New("invalid repository backend")
)

type (
	// Backend names an Inspector implementation.
	Backend string

	// Inspector queries repository state for a directory.
	Inspector interface {
		// IsClean reports whether tracked files have no changes.
		IsClean(ctx context.Context, dir string) (bool, error)
		// Revision returns the current commit identifier.
		Revision(ctx context.Context, dir string) (string, error)
		// Info combines IsClean and Revision. It never fails; a failure of
		// either query yields an unknown state.
		Info(ctx context.Context, dir string) Info
	}

	// Info is the combined repository state. When Known is false, Clean is
	// false and Err explains why.
	Info struct {
		Clean bool
		Hash  string
		Known bool
		Err   error
	}

	// CLIInspector implements Inspector with the git command line.
	CLIInspector struct {
		Runner  executor.Runner
		Timeout time.Duration
	}
)

// Backends returns every supported backend.
func Backends() []Backend { return []Backend{BackendGit, BackendGoGit} }

// Validate returns ErrInvalidBackend if b is not supported.
func (b Backend) Validate() error {
	switch b {
	case BackendGit, BackendGoGit:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected git or go-git)", ErrInvalidBackend, string(b))
	}
}

// New returns the Inspector for backend. runner and timeout apply to the
// git CLI backend only.
func New(backend Backend, runner executor.Runner, timeout time.Duration) (Inspector, error) {
	switch backend {
	case BackendGit, "":
		return &CLIInspector{Runner: runner, Timeout: timeout}, nil
	case BackendGoGit:
		return &GoGitInspector{}, nil
	default:
		return nil, backend.Validate()
	}
}

// Unknown builds the state reported when inspection failed.
func Unknown(err error) Info {
	return Info{Err: fmt.Errorf("%w: %w", ErrRepoStateUnknown, err)}
}

// String renders the state for logs.
func (i Info) String() string {
	switch {
	case !i.Known:
		return "unknown"
	case i.Clean:
		return "clean@" + i.Hash
	default:
		return "dirty@" + i.Hash
	}
}

// IsClean runs "git status" restricted to tracked files. The tree is clean
// iff the command exits 0 with no output.
func (c *CLIInspector) IsClean(ctx context.Context, dir string) (bool, error) {
	result := c.Runner.Run(ctx, "git", []string{"status", "--untracked-files=no", "--porcelain"},
		executor.Options{Dir: dir, Timeout: c.Timeout})
	if result.Failed() {
		return false, fmt.Errorf("%s in %s: %s", result.CommandLine, dir, result.FailureMessage())
	}
	return strings.TrimSpace(result.Stdout) == "", nil
}

// Revision runs "git rev-parse HEAD" and returns the first output line.
func (c *CLIInspector) Revision(ctx context.Context, dir string) (string, error) {
	result := c.Runner.Run(ctx, "git", []string{"rev-parse", "HEAD"},
		executor.Options{Dir: dir, Timeout: c.Timeout})
	if result.Failed() {
		return "", fmt.Errorf("%s in %s: %s", result.CommandLine, dir, result.FailureMessage())
	}
	return firstLine(result.Stdout, dir)
}

// Info implements Inspector.
func (c *CLIInspector) Info(ctx context.Context, dir string) Info {
	return inspect(ctx, c, dir)
}

func inspect(ctx context.Context, i Inspector, dir string) Info {
	clean, err := i.IsClean(ctx, dir)
	if err != nil {
		return Unknown(err)
	}
	hash, err := i.Revision(ctx, dir)
	if err != nil {
		return Unknown(err)
	}
	return Info{Clean: clean, Hash: hash, Known: true}
}

func firstLine(out, dir string) (string, error) {
	line, _, _ := strings.Cut(out, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty revision for %s", dir)
	}
	return line, nil
}
