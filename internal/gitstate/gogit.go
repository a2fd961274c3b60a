// SPDX-License-Identifier: MPL-2.0

package gitstate

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// GoGitInspector implements Inspector by reading the repository directly,
// so no git binary is required.
type GoGitInspector struct{}

// IsClean reports whether any tracked file differs from HEAD in the index or
// the worktree. Untracked files are ignored.
func (GoGitInspector) IsClean(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	repo, err := open(dir)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree for %s: %w", dir, err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read status for %s: %w", dir, err)
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return false, nil
		}
	}
	return true, nil
}

// Revision returns the commit HEAD points at.
func (GoGitInspector) Revision(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD for %s: %w", dir, err)
	}
	return head.Hash().String(), nil
}

// Info implements Inspector.
func (g GoGitInspector) Info(ctx context.Context, dir string) Info {
	return inspect(ctx, g, dir)
}

func open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	return repo, nil
}
