// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"context"
	"log/slog"
	"time"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/executor"
)

type (
	// Installer runs an ecosystem's install and prune commands in a project.
	Installer struct {
		Runner executor.Runner
	}

	// InstallOptions tune every command of one Install call.
	InstallOptions struct {
		// Timeout bounds each command; zero means no limit.
		Timeout time.Duration
		// StreamOutput relays child output to the log as it arrives.
		StreamOutput bool
	}
)

// Install runs the install step and then the prune step, both with dir as
// the child's working directory. The first failing step stops the sequence
// and is returned as an *InstallFailure.
func (i *Installer) Install(ctx context.Context, eco dependency.Ecosystem, dir string, cmds Commands, opts InstallOptions) error {
	steps := []struct {
		name string
		argv []string
	}{
		{"install", cmds.Install},
		{"prune", cmds.Prune},
	}

	for _, step := range steps {
		if len(step.argv) == 0 {
			continue
		}
		slog.Info("running "+step.name, "ecosystem", eco, "dir", dir, "cmd", executor.CommandLine(step.argv[0], step.argv[1:]))
		result := i.Runner.Run(ctx, step.argv[0], step.argv[1:], executor.Options{
			Dir:          dir,
			StreamOutput: opts.StreamOutput,
			Timeout:      opts.Timeout,
		})
		if result.Failed() {
			return &InstallFailure{Ecosystem: eco, Dir: dir, Step: step.name, Result: result}
		}
	}
	return nil
}
