// SPDX-License-Identifier: MPL-2.0

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/scan"
	"github.com/connectedyard/licensescan/internal/testutil"
	"github.com/connectedyard/licensescan/internal/workdir"
)

// leakyScanner changes directory without restoring it and records where
// each scan started.
type leakyScanner struct {
	t        *testing.T
	startDir []string
	onRun    func(target config.ScanTarget)
}

func (s *leakyScanner) Run(_ context.Context, target config.ScanTarget) *scan.Outcome {
	s.startDir = append(s.startDir, testutil.MustGetwd(s.t))
	if s.onRun != nil {
		s.onRun(target)
	}
	if err := os.Chdir(target.Dir); err != nil {
		return &scan.Outcome{Directory: target.Dir, Status: scan.StatusFailed, Errors: []error{err}}
	}
	return &scan.Outcome{Directory: target.Dir, Status: scan.StatusCompleted, Phase: scan.PhaseDone}
}

func setup(t *testing.T) (home string, guard *workdir.Guard, targets []config.ScanTarget) {
	t.Helper()
	home = testutil.MustEvalSymlinks(t, t.TempDir())
	t.Cleanup(testutil.MustChdir(t, home))
	for _, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(home, name)
		testutil.MustMkdirAll(t, dir, 0o755)
		targets = append(targets, config.ScanTarget{Dir: dir, Options: config.DefaultOptions()})
	}
	guard, err := workdir.New("")
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}
	return home, guard, targets
}

func TestOrchestrator_Run(t *testing.T) {
	home, guard, targets := setup(t)

	id := uuid.MustParse("6f1c4f0e-7d4b-4c36-9e0b-6c0f6d3b1a11")
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := start
	clock := func() time.Time { tick = tick.Add(time.Second); return tick }

	scanner := &leakyScanner{t: t}
	res := New(scanner, guard, WithRunID(id), WithClock(clock)).Run(t.Context(), targets)

	if res.RunID != id {
		t.Errorf("RunID = %s", res.RunID)
	}
	if res.Duration() <= 0 {
		t.Errorf("Duration = %v", res.Duration())
	}

	var dirs []string
	for _, o := range res.Outcomes {
		dirs = append(dirs, o.Directory)
	}
	if diff := cmp.Diff([]string{targets[0].Dir, targets[1].Dir, targets[2].Dir}, dirs); diff != "" {
		t.Errorf("outcome order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{home, home, home}, scanner.startDir); diff != "" {
		t.Errorf("every scan should start in the home directory (-want +got):\n%s", diff)
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after run = %q, want %q", got, home)
	}
	if len(res.ByStatus(scan.StatusCompleted)) != 3 {
		t.Errorf("completed = %d, want 3", len(res.ByStatus(scan.StatusCompleted)))
	}
}

func TestOrchestrator_Run_Canceled(t *testing.T) {
	home, guard, targets := setup(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	scanner := &leakyScanner{t: t, onRun: func(config.ScanTarget) { cancel() }}

	res := New(scanner, guard).Run(ctx, targets)

	if len(res.Outcomes) != 3 {
		t.Fatalf("got %d outcomes, want one per target", len(res.Outcomes))
	}
	if res.Outcomes[0].Status != scan.StatusCompleted {
		t.Errorf("first target status = %s", res.Outcomes[0].Status)
	}
	for _, o := range res.Outcomes[1:] {
		if o.Status != scan.StatusFailed || !errors.Is(o.Err(), context.Canceled) {
			t.Errorf("%s: status %s, err %v; want failed with context.Canceled", o.Directory, o.Status, o.Err())
		}
	}
	if len(scanner.startDir) != 1 {
		t.Errorf("scanned %d targets after cancellation, want 1", len(scanner.startDir))
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after canceled run = %q, want %q", got, home)
	}
}

func TestOrchestrator_Run_Panic(t *testing.T) {
	home, guard, targets := setup(t)

	scanner := &leakyScanner{t: t, onRun: func(target config.ScanTarget) {
		if target.Dir == targets[1].Dir {
			if err := os.Chdir(target.Dir); err != nil {
				t.Error(err)
			}
			panic("extractor bug")
		}
	}}

	res := New(scanner, guard).Run(t.Context(), targets)

	statuses := []scan.Status{res.Outcomes[0].Status, res.Outcomes[1].Status, res.Outcomes[2].Status}
	want := []scan.Status{scan.StatusCompleted, scan.StatusFailed, scan.StatusCompleted}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
	if scanner.startDir[2] != home {
		t.Errorf("scan after a panic started in %q, want %q", scanner.startDir[2], home)
	}
}
