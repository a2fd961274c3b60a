// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/connectedyard/licensescan/internal/cueutil"
)

//go:embed runconfig_schema.cue
var runConfigSchema []byte

var errNoDirectories = errors.New("run configuration must specify directories")

type (
	// RunConfig is a loaded run configuration document.
	RunConfig struct {
		// Options applies to every directory before its own block.
		Options *Overrides `json:"options,omitempty"`
		// Directories maps document keys to per-directory overrides.
		Directories map[string]*Overrides `json:"directories"`
		// Output overrides report settings.
		Output *ReportOverrides `json:"output,omitempty"`

		// Source is the document's path.
		Source string `json:"-"`

		entries []DirectoryEntry
	}

	// DirectoryEntry is one configured directory in document order.
	DirectoryEntry struct {
		// Key is the label as written in the document.
		Key string
		// Path is Key resolved to a clean absolute path.
		Path      string
		Overrides *Overrides
	}
)

// LoadRunConfig reads the run configuration at path. Relative directory
// keys and file references inside it resolve against the document's own
// directory.
func LoadRunConfig(path string) (*RunConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, configurationError(path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, configurationError(path, err)
	}
	rc, err := ParseRunConfig(data, path, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	rc.Source = path
	return rc, nil
}

// ParseRunConfig validates and decodes a run configuration, resolving
// relative paths against baseDir. A document without directories is a
// ConfigurationError.
func ParseRunConfig(data []byte, filename, baseDir string) (*RunConfig, error) {
	result, err := cueutil.ParseAndDecode[RunConfig](runConfigSchema, data, "#RunConfig", cueutil.WithFilename(filename))
	if err != nil {
		return nil, configurationError(filename, err)
	}
	rc := result.Value

	keys, err := cueutil.FieldNames(result.Unified, "directories")
	if err != nil {
		return nil, configurationError(filename, err)
	}
	if len(keys) == 0 {
		return nil, configurationError(filename, errNoDirectories)
	}

	seen := make(map[string]string, len(keys))
	for _, key := range keys {
		path := resolvePath(baseDir, key)
		if first, dup := seen[path]; dup {
			return nil, configurationError(filename, fmt.Errorf("directories %q and %q name the same path %s", first, key, path))
		}
		seen[path] = key

		ov := rc.Directories[key]
		resolvePolicyPath(baseDir, ov)
		rc.entries = append(rc.entries, DirectoryEntry{Key: key, Path: path, Overrides: ov})
	}
	resolvePolicyPath(baseDir, rc.Options)
	if rc.Output != nil && rc.Output.Path != nil {
		p := resolvePath(baseDir, *rc.Output.Path)
		rc.Output.Path = &p
	}
	return rc, nil
}

// Entries returns the configured directories in document order.
func (rc *RunConfig) Entries() []DirectoryEntry {
	if rc == nil {
		return nil
	}
	return rc.entries
}

// Lookup returns the overrides for the absolute directory path.
func (rc *RunConfig) Lookup(path string) (*Overrides, bool) {
	for _, e := range rc.Entries() {
		if e.Path == path {
			return e.Overrides, true
		}
	}
	return nil, false
}

func resolvePolicyPath(baseDir string, ov *Overrides) {
	if ov == nil || ov.PolicyPath == nil {
		return
	}
	p := resolvePath(baseDir, *ov.PolicyPath)
	ov.PolicyPath = &p
}

func resolvePath(baseDir, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p)
}
