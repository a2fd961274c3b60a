// SPDX-License-Identifier: MPL-2.0

// Package ecosystem knows how to recognize, install and extract license data
// from node and bower projects.
package ecosystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/executor"
)

const (
	// NodeManifest marks a directory as a node project.
	NodeManifest = "package.json"
	// BowerManifest marks a directory as a bower project.
	BowerManifest = "bower.json"
)

var (
	// ErrInstallFailure is the sentinel error wrapped by InstallFailure.
	ErrInstallFailure = errors.New("dependency install failed")
	// ErrExtractionFailure is the sentinel error wrapped by ExtractionFailure.
	ErrExtractionFailure = errors.New("license extraction failed")
)

type (
	// InstallFailure is returned when an install or prune command exits
	// non-zero or cannot be launched.
	InstallFailure struct {
		Ecosystem dependency.Ecosystem
		Dir       string
		Step      string
		Result    *executor.Result
	}

	// ExtractionFailure is returned when license data could not be read.
	ExtractionFailure struct {
		Ecosystem dependency.Ecosystem
		Dir       string
		Err       error
	}

	// Commands are the argv lists run to bring a project's installed
	// dependencies in line with its manifest.
	Commands struct {
		Install []string
		Prune   []string
	}
)

// Error implements the error interface.
func (e *InstallFailure) Error() string {
	return fmt.Sprintf("%s %s failed in %s: %s", e.Ecosystem, e.Step, e.Dir, e.Result.FailureMessage())
}

// Unwrap returns ErrInstallFailure and, for launch failures, the cause.
func (e *InstallFailure) Unwrap() []error {
	if e.Result != nil && e.Result.Err != nil {
		return []error{ErrInstallFailure, e.Result.Err}
	}
	return []error{ErrInstallFailure}
}

// Error implements the error interface.
func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("%s license extraction failed in %s: %v", e.Ecosystem, e.Dir, e.Err)
}

// Unwrap returns ErrExtractionFailure and the cause.
func (e *ExtractionFailure) Unwrap() []error { return []error{ErrExtractionFailure, e.Err} }

// Manifest returns the manifest file name for eco.
func Manifest(eco dependency.Ecosystem) string {
	switch eco {
	case dependency.EcosystemBower:
		return BowerManifest
	default:
		return NodeManifest
	}
}

// IsProject reports whether dir directly contains eco's manifest file.
// Ancestor directories are not searched.
func IsProject(eco dependency.Ecosystem, dir string) bool {
	info, err := os.Stat(filepath.Join(dir, Manifest(eco)))
	return err == nil && info.Mode().IsRegular()
}

// IsNodeProject reports whether dir contains a package.json.
func IsNodeProject(dir string) bool { return IsProject(dependency.EcosystemNode, dir) }

// IsBowerProject reports whether dir contains a bower.json.
func IsBowerProject(dir string) bool { return IsProject(dependency.EcosystemBower, dir) }

// DefaultCommands returns the stock install and prune commands for eco.
func DefaultCommands(eco dependency.Ecosystem) Commands {
	tool := "npm"
	if eco == dependency.EcosystemBower {
		tool = "bower"
	}
	return Commands{
		Install: []string{tool, "install"},
		Prune:   []string{tool, "prune"},
	}
}

// WithOverrides returns c with the install and/or prune step replaced by a
// shell-style command line. Empty strings leave the step unchanged.
func (c Commands) WithOverrides(install, prune string) (Commands, error) {
	out := c
	if install != "" {
		argv, err := executor.SplitCommandLine(install)
		if err != nil {
			return c, fmt.Errorf("install command: %w", err)
		}
		out.Install = argv
	}
	if prune != "" {
		argv, err := executor.SplitCommandLine(prune)
		if err != nil {
			return c, fmt.Errorf("prune command: %w", err)
		}
		out.Prune = argv
	}
	return out, nil
}
