// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/connectedyard/licensescan/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the flags that are not settings: they pick where settings
// come from or how the CLI itself behaves.
type rootFlags struct {
	verbose   bool
	settings  string
	runConfig string
}

// newRootCommand creates the licensescan command tree.
func newRootCommand() *cobra.Command {
	f := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "licensescan [directories...]",
		Short: "Audit open-source licenses of node and bower projects",
		Long: TitleStyle.Render("licensescan") + SubtitleStyle.Render(" - audit open-source licenses of node and bower projects") + `

licensescan installs each project's dependencies, reads the license every
dependency declares, reconciles the result with your license policy and
writes one deduplicated report for all scanned directories.

Directories whose git working tree has uncommitted changes are skipped
unless --enableUnclean is given.

` + SubtitleStyle.Render("Examples:") + `
  licensescan                          Scan the current directory
  licensescan ./web ./admin            Scan two projects
  licensescan --run scan.json          Scan the directories of a run configuration
  licensescan --config licenses.json   Apply a license policy
  licensescan -o reports --csv         Write the report and CSV files into ./reports`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, f)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging and detailed errors")

	flags := rootCmd.Flags()
	flags.StringVar(&f.settings, "settings", "", "settings file (default .licensescan.{yaml,json,toml} or the user config directory)")
	flags.StringVar(&f.runConfig, "run", "", "run configuration listing the directories to scan and their options")

	flags.String(config.KeyPolicy, "", "license policy file (overrides, exclusions, warnings)")
	flags.StringP(config.KeyOutput, "o", "", "report directory, or report file when it ends in .json, .yaml, .yml or .toml")
	flags.String(config.KeyFormat, config.FormatJSON, "report format: json, yaml, toml or cyclonedx")
	flags.Bool(config.KeyCSV, false, "also write per-directory CSV files")
	flags.Bool(config.KeyNoSave, false, "do not write any report file")
	flags.Bool(config.KeyProductionOnly, false, "only report production dependencies")

	flags.Bool(config.KeyEnableUnclean, false, "scan directories whose repository has uncommitted changes")
	flags.Bool(config.KeySkipNode, false, "skip node dependencies")
	flags.Bool(config.KeySkipBower, false, "skip bower dependencies")
	flags.Bool(config.KeySkipUpdate, false, "do not run install and prune before extracting")
	flags.BoolP(config.KeyDev, "d", false, "treat every dependency as a development dependency")
	flags.BoolP(config.KeyProd, "p", false, "treat every dependency as a production dependency")
	flags.Bool(config.KeyUnknowns, false, "log every dependency with an unknown license")
	flags.Bool(config.KeyWarningsOff, false, "do not log dependencies matching the policy's warnOnLicenses")
	flags.Bool(config.KeyStreamOutput, false, "relay install and prune output as it arrives")
	flags.Duration(config.KeyTimeout, 0, "limit for each external command, e.g. 5m (0 means none)")
	flags.String(config.KeyRepoBackend, "git", "repository state backend: git (CLI) or go-git (built in)")

	rootCmd.AddCommand(newPolicyCommand(f))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the CLI and exits the process with its exit code.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI against os.Args and returns the exit code.
func Main() int {
	return execute(context.Background(), newRootCommand())
}

func execute(ctx context.Context, rootCmd *cobra.Command) int {
	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// fail renders err to stderr and returns an ExitError with code, keeping
// cobra and fang from printing the error a second time.
func fail(cmd *cobra.Command, code int, err error, verbose bool) error {
	renderError(cmd.ErrOrStderr(), err, verbose)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Root().SilenceErrors = true
	return &ExitError{Code: code, Err: err}
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
