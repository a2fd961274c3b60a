// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/ecosystem"
	"github.com/connectedyard/licensescan/internal/policy"
)

// ScanTarget is one directory to scan with its effective configuration.
// Targets are built once per run and never modified.
type ScanTarget struct {
	// Dir is a clean absolute path.
	Dir      string
	Options  Options
	Commands map[dependency.Ecosystem]ecosystem.Commands
	// Policy is nil when no policy document applies.
	Policy *policy.Policy
}

// ResolveDirectories computes the directories to scan, in scan order.
//
// Without a run configuration the requested directories are used, or cwd
// when none were requested. With one, its directories are used in document
// order, restricted to the requested ones when any were given. Requested
// paths resolve against cwd; all comparisons use clean absolute paths.
func ResolveDirectories(requested []string, cwd string, rc *RunConfig) ([]string, error) {
	wanted := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, r := range requested {
		p := resolvePath(cwd, r)
		if !seen[p] {
			seen[p] = true
			wanted = append(wanted, p)
		}
	}

	if rc == nil {
		if len(wanted) == 0 {
			return []string{filepath.Clean(cwd)}, nil
		}
		return wanted, nil
	}

	entries := rc.Entries()
	if len(entries) == 0 {
		return nil, configurationError(rc.Source, errNoDirectories)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if len(wanted) == 0 || seen[e.Path] {
			out = append(out, e.Path)
			delete(seen, e.Path)
		}
	}
	for _, p := range wanted {
		if seen[p] {
			slog.Debug("directory not in run configuration, ignoring", "dir", p)
		}
	}
	return out, nil
}

// BuildTargets resolves the directories and computes each one's effective
// options: base, then the run configuration's global options, then the
// directory's own block. Policy documents are loaded once per path.
func BuildTargets(base Options, requested []string, cwd string, rc *RunConfig) ([]ScanTarget, error) {
	dirs, err := ResolveDirectories(requested, cwd, rc)
	if err != nil {
		return nil, err
	}

	var global *Overrides
	if rc != nil {
		global = rc.Options
	}

	policies := make(map[string]*policy.Policy)
	targets := make([]ScanTarget, 0, len(dirs))
	for _, dir := range dirs {
		opts := base.Merge(global)
		if rc != nil {
			ov, _ := rc.Lookup(dir)
			opts = opts.Merge(ov)
		}
		if err := opts.Validate(); err != nil {
			var ce *ConfigurationError
			if errors.As(err, &ce) && ce.Source == "" {
				ce.Source = dir
			}
			return nil, err
		}
		cmds, err := opts.EcosystemCommands()
		if err != nil {
			return nil, configurationError(dir, err)
		}

		var pol *policy.Policy
		if opts.PolicyPath != "" {
			path := resolvePath(cwd, opts.PolicyPath)
			if cached, ok := policies[path]; ok {
				pol = cached
			} else {
				pol, err = policy.Load(path)
				if err != nil {
					return nil, configurationError(path, err)
				}
				policies[path] = pol
			}
		}

		targets = append(targets, ScanTarget{Dir: dir, Options: opts, Commands: cmds, Policy: pol})
	}
	return targets, nil
}
