// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/ecosystem"
	"github.com/connectedyard/licensescan/internal/executor"
	"github.com/connectedyard/licensescan/internal/issue"
	"github.com/connectedyard/licensescan/internal/orchestrator"
	"github.com/connectedyard/licensescan/internal/policy"
	"github.com/connectedyard/licensescan/internal/report"
	"github.com/connectedyard/licensescan/internal/scan"
	"github.com/connectedyard/licensescan/internal/workdir"
)

// scanEnv is what a scan needs besides its flags. Tests replace the
// command runner.
type scanEnv struct {
	commands executor.Runner
}

var defaultScanEnv = func() scanEnv {
	return scanEnv{commands: executor.New()}
}

// runScan is the root command: load settings, resolve targets, scan them
// one by one and write the report. Configuration errors exit 1 and report
// errors exit 2; per-directory failures are reported but do not change the
// exit code.
func runScan(cmd *cobra.Command, args []string, f *rootFlags) error {
	ctx := cmd.Context()
	installLogger(cmd.ErrOrStderr(), f.verbose)

	cwd, err := os.Getwd()
	if err != nil {
		return fail(cmd, ExitConfiguration, fmt.Errorf("failed to get current directory: %w", err), f.verbose)
	}

	settings, err := config.NewProvider().Load(ctx, config.LoadOptions{
		SettingsFile: f.settings,
		WorkDir:      cwd,
		Flags:        cmd.Flags(),
	})
	if err != nil {
		return fail(cmd, ExitConfiguration, err, f.verbose)
	}
	if settings.Source != "" {
		slog.Debug("settings loaded", "file", settings.Source)
	}

	reportOpts := settings.Report
	var rc *config.RunConfig
	if f.runConfig != "" {
		rc, err = config.LoadRunConfig(f.runConfig)
		if err != nil {
			return fail(cmd, ExitConfiguration, issue.NewErrorContext().
				WithOperation("load run configuration").
				WithResource(f.runConfig).
				WithSuggestion("A run configuration needs a non-empty \"directories\" object").
				WithSuggestion("Directory keys are resolved relative to the run configuration file").
				WithIssue(issue.RunConfigInvalidId).
				Wrap(err).
				BuildError(), f.verbose)
		}
		reportOpts = reportOpts.Merge(rc.Output)
		if err := reportOpts.Validate(); err != nil {
			return fail(cmd, ExitConfiguration, issue.WrapWithContext(err, "apply run configuration output", f.runConfig), f.verbose)
		}
	}

	targets, err := config.BuildTargets(settings.Options, args, cwd, rc)
	if err != nil {
		ec := issue.NewErrorContext().WithOperation("resolve scan targets").Wrap(err)
		if errors.Is(err, policy.ErrInvalidPolicy) {
			ec = ec.WithSuggestion("Run 'licensescan policy check <file>' for details").WithIssue(issue.PolicyInvalidId)
		}
		return fail(cmd, ExitConfiguration, ec.BuildError(), f.verbose)
	}

	guard, err := workdir.New(cwd)
	if err != nil {
		return fail(cmd, ExitConfiguration, err, f.verbose)
	}
	env := defaultScanEnv()
	probe := ecosystem.NewProbe(&ecosystem.Installer{Runner: env.commands}, guard)
	runner := scan.NewRunner(probe, env.commands)

	res := orchestrator.New(runner, guard).Run(ctx, targets)
	agg := report.Build(res.RunID, res.FinishedAt, res.Outcomes)

	out := cmd.OutOrStdout()
	printSummary(out, res, agg, f.verbose)

	art, err := report.NewWriter(reportOpts, cwd, Version).Write(agg)
	if err != nil {
		return fail(cmd, ExitReport, issue.NewErrorContext().
			WithOperation("write report").
			WithSuggestion("Check that the --output location is writable").
			WithIssue(issue.ReportWriteFailedId).
			Wrap(err).
			BuildError(), f.verbose)
	}
	printArtifacts(out, art)
	return nil
}
