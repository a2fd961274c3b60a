// SPDX-License-Identifier: MPL-2.0

// Package scan runs the per-directory state machine: repository check,
// then node, then bower, each ecosystem installed, extracted and reconciled
// with the directory's license policy. Failures are recorded on the outcome
// and never returned, so one directory cannot stop a run.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/ecosystem"
	"github.com/connectedyard/licensescan/internal/executor"
	"github.com/connectedyard/licensescan/internal/gitstate"
	"github.com/connectedyard/licensescan/internal/policy"
)

type (
	// Probe is the ecosystem capability a scan needs. *ecosystem.Probe
	// implements it.
	Probe interface {
		IsProject(eco dependency.Ecosystem, dir string) bool
		Install(ctx context.Context, eco dependency.Ecosystem, dir string, cmds ecosystem.Commands, opts ecosystem.InstallOptions) error
		Extract(ctx context.Context, eco dependency.Ecosystem, dir string) ([]dependency.Record, error)
	}

	// InspectorFunc picks the repository inspector for a directory's options.
	InspectorFunc func(opts config.Options) (gitstate.Inspector, error)

	// Runner scans one directory at a time.
	Runner struct {
		probe     Probe
		inspector InspectorFunc
	}

	// Option configures a Runner.
	Option func(*Runner)

	// Outcome is everything learned about one directory.
	Outcome struct {
		Directory string
		Status    Status
		// Phase is the last phase entered.
		Phase Phase
		Repo  gitstate.Info

		Node       []dependency.Record
		Bower      []dependency.Record
		NodeState  EcosystemState
		BowerState EcosystemState

		Warnings []policy.Warning
		Unknowns []dependency.Record
		// Excluded counts records removed by the policy's exclusion list.
		Excluded int
		// Overridden counts records whose licenses the policy replaced.
		Overridden int

		Errors []error
	}
)

// WithInspector makes every scan use inspector regardless of options.
func WithInspector(inspector gitstate.Inspector) Option {
	return func(r *Runner) {
		r.inspector = func(config.Options) (gitstate.Inspector, error) { return inspector, nil }
	}
}

// NewRunner creates a Runner. git commands of the CLI backend run through
// commands.
func NewRunner(probe Probe, commands executor.Runner, opts ...Option) *Runner {
	r := &Runner{
		probe: probe,
		inspector: func(o config.Options) (gitstate.Inspector, error) {
			return gitstate.New(o.RepoBackend, commands, o.Timeout)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scans target. It never fails: errors are collected on the Outcome.
func (r *Runner) Run(ctx context.Context, target config.ScanTarget) *Outcome {
	out := &Outcome{Directory: target.Dir, Phase: PhaseInit}
	log := slog.With("dir", target.Dir)

	out.Phase = PhaseRepoCheck
	inspector, err := r.inspector(target.Options)
	if err != nil {
		out.Repo = gitstate.Unknown(err)
	} else {
		out.Repo = inspector.Info(ctx, target.Dir)
	}

	if !out.Repo.Clean {
		if !target.Options.EnableUnclean {
			out.Phase = PhaseAborted
			out.Status = StatusAborted
			out.NodeState, out.BowerState = StateSkipped, StateSkipped
			attrs := []any{"repo", out.Repo.String()}
			if out.Repo.Err != nil {
				attrs = append(attrs, "error", out.Repo.Err)
			}
			log.Warn("repository is not clean, skipping directory (use --enableUnclean to scan anyway)", attrs...)
			return out
		}
		log.Info("scanning unclean repository", "repo", out.Repo.String())
	}

	for _, eco := range dependency.Ecosystems() {
		if eco == dependency.EcosystemNode {
			out.Phase = PhaseNodeScan
		} else {
			out.Phase = PhaseBowerScan
		}
		if err := ctx.Err(); err != nil {
			r.fail(out, eco, fmt.Errorf("scan canceled: %w", err))
			continue
		}
		r.scanEcosystem(ctx, target, eco, out, log)
	}

	out.Phase = PhaseDone
	out.Status = StatusCompleted
	if len(out.Errors) > 0 {
		out.Status = StatusFailed
	}
	return out
}

func (r *Runner) scanEcosystem(ctx context.Context, target config.ScanTarget, eco dependency.Ecosystem, out *Outcome, log *slog.Logger) {
	opts := target.Options
	log = log.With("ecosystem", eco)

	skip := opts.SkipNode
	if eco == dependency.EcosystemBower {
		skip = opts.SkipBower
	}
	if skip {
		out.setState(eco, StateSkipped)
		log.Debug("ecosystem skipped by options")
		return
	}
	if !r.probe.IsProject(eco, target.Dir) {
		out.setState(eco, StateNotProject)
		log.Debug("no manifest", "manifest", ecosystem.Manifest(eco))
		return
	}

	if !opts.SkipUpdate {
		cmds, ok := target.Commands[eco]
		if !ok {
			cmds = ecosystem.DefaultCommands(eco)
		}
		installOpts := ecosystem.InstallOptions{Timeout: opts.Timeout, StreamOutput: opts.StreamOutput}
		if err := r.probe.Install(ctx, eco, target.Dir, cmds, installOpts); err != nil {
			r.fail(out, eco, err)
			log.Error("install failed", "error", err)
			return
		}
	}

	records, err := r.probe.Extract(ctx, eco, target.Dir)
	if err != nil {
		r.fail(out, eco, err)
		log.Error("extraction failed", "error", err)
		return
	}

	result := target.Policy.Apply(eco, records, opts.Categorization)
	out.setRecords(eco, result.Records)
	out.setState(eco, StateScanned)
	out.Warnings = append(out.Warnings, result.Warnings...)
	out.Unknowns = append(out.Unknowns, result.Unknowns...)
	out.Excluded += len(result.Excluded)
	out.Overridden += result.Overridden

	if opts.Unknowns {
		for _, rec := range result.Unknowns {
			log.Warn("unknown license", annotation(rec)...)
		}
	}
	if !opts.WarningsOff {
		for _, w := range result.Warnings {
			log.Warn("license warning", append(annotation(w.Record), "matched", w.Matcher)...)
		}
	}
	log.Info("dependencies scanned",
		"count", len(result.Records),
		"excluded", len(result.Excluded),
		"overridden", result.Overridden,
	)
}

func (r *Runner) fail(out *Outcome, eco dependency.Ecosystem, err error) {
	out.setState(eco, StateFailed)
	out.setRecords(eco, nil)
	out.Errors = append(out.Errors, err)
}

func annotation(rec dependency.Record) []any {
	category := "development"
	if rec.IsProduction {
		category = "production"
	}
	return []any{
		"dependency", rec.Name,
		"repository", rec.Repository,
		"licenses", rec.Licenses.String(),
		"category", category,
	}
}

// Records returns the records of eco.
func (o *Outcome) Records(eco dependency.Ecosystem) []dependency.Record {
	if eco == dependency.EcosystemBower {
		return o.Bower
	}
	return o.Node
}

// State returns the state of eco.
func (o *Outcome) State(eco dependency.Ecosystem) EcosystemState {
	if eco == dependency.EcosystemBower {
		return o.BowerState
	}
	return o.NodeState
}

// All returns the node records followed by the bower records.
func (o *Outcome) All() []dependency.Record {
	all := make([]dependency.Record, 0, len(o.Node)+len(o.Bower))
	all = append(all, o.Node...)
	return append(all, o.Bower...)
}

// Err joins the recorded errors, or returns nil.
func (o *Outcome) Err() error {
	return errors.Join(o.Errors...)
}

func (o *Outcome) setState(eco dependency.Ecosystem, s EcosystemState) {
	if eco == dependency.EcosystemBower {
		o.BowerState = s
	} else {
		o.NodeState = s
	}
}

func (o *Outcome) setRecords(eco dependency.Ecosystem, records []dependency.Record) {
	if eco == dependency.EcosystemBower {
		o.Bower = records
	} else {
		o.Node = records
	}
}
