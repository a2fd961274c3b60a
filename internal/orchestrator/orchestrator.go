// SPDX-License-Identifier: MPL-2.0

// Package orchestrator scans a list of directories one after another,
// returning the process to its starting directory between them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/scan"
	"github.com/connectedyard/licensescan/internal/workdir"
)

type (
	// Scanner scans a single directory. *scan.Runner implements it.
	Scanner interface {
		Run(ctx context.Context, target config.ScanTarget) *scan.Outcome
	}

	// Orchestrator runs Scanner over every target sequentially. Scans are
	// never concurrent: extraction depends on the process working
	// directory.
	Orchestrator struct {
		scanner Scanner
		guard   *workdir.Guard
		newID   func() uuid.UUID
		now     func() time.Time
	}

	// Option configures an Orchestrator.
	Option func(*Orchestrator)

	// Result is the outcome of a whole run.
	Result struct {
		RunID      uuid.UUID
		StartedAt  time.Time
		FinishedAt time.Time
		// Outcomes are in target order, one per target.
		Outcomes []*scan.Outcome
	}
)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID makes every run use id.
func WithRunID(id uuid.UUID) Option {
	return func(o *Orchestrator) { o.newID = func() uuid.UUID { return id } }
}

// New creates an Orchestrator. guard's home is the directory restored
// after every target.
func New(scanner Scanner, guard *workdir.Guard, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		scanner: scanner,
		guard:   guard,
		newID:   uuid.New,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run scans targets in order. A canceled ctx stops the run between
// targets; the remaining targets are reported failed with the context
// error.
func (o *Orchestrator) Run(ctx context.Context, targets []config.ScanTarget) *Result {
	res := &Result{
		RunID:     o.newID(),
		StartedAt: o.now(),
		Outcomes:  make([]*scan.Outcome, 0, len(targets)),
	}
	slog.Info("starting license scan", "run", res.RunID, "directories", len(targets))

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			res.Outcomes = append(res.Outcomes, canceled(target.Dir, err))
			continue
		}

		slog.Info("scanning directory", "dir", target.Dir, "index", i+1, "total", len(targets))
		out := o.scanOne(ctx, target)

		// Restore even when ctx is done, so later targets and the caller
		// start from home.
		if err := o.guard.Restore(context.WithoutCancel(ctx)); err != nil {
			slog.Error("failed to restore working directory", "dir", o.guard.Home(), "error", err)
			out.Errors = append(out.Errors, err)
			if out.Status == scan.StatusCompleted {
				out.Status = scan.StatusFailed
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	res.FinishedAt = o.now()
	return res
}

// scanOne runs the scanner, turning a panic into a failed outcome.
func (o *Orchestrator) scanOne(ctx context.Context, target config.ScanTarget) (out *scan.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("directory scan panicked", "dir", target.Dir, "panic", r)
			out = &scan.Outcome{
				Directory: target.Dir,
				Status:    scan.StatusFailed,
				Errors:    []error{fmt.Errorf("scan of %s panicked: %v", target.Dir, r)},
			}
		}
	}()
	return o.scanner.Run(ctx, target)
}

func canceled(dir string, err error) *scan.Outcome {
	return &scan.Outcome{
		Directory:  dir,
		Status:     scan.StatusFailed,
		Phase:      scan.PhaseInit,
		NodeState:  scan.StateSkipped,
		BowerState: scan.StateSkipped,
		Errors:     []error{fmt.Errorf("run canceled before scanning: %w", err)},
	}
}

// ByStatus returns the outcomes with the given status, in order.
func (r *Result) ByStatus(status scan.Status) []*scan.Outcome {
	var out []*scan.Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
