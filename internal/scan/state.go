// SPDX-License-Identifier: MPL-2.0

package scan

import (
	"errors"
	"fmt"
)

const (
	// PhaseInit is the state of an outcome before any work started.
	PhaseInit Phase = iota
	// PhaseRepoCheck queries the repository state.
	PhaseRepoCheck
	// PhaseNodeScan installs and extracts node dependencies.
	PhaseNodeScan
	// PhaseBowerScan installs and extracts bower dependencies.
	PhaseBowerScan
	// PhaseDone is terminal: every ecosystem was visited.
	PhaseDone
	// PhaseAborted is terminal: the repository check stopped the scan.
	PhaseAborted
)

const (
	// StatusCompleted means every ecosystem was visited without error.
	StatusCompleted Status = "completed"
	// StatusAborted means the directory was skipped because its repository
	// was not clean. No data was collected.
	StatusAborted Status = "aborted"
	// StatusFailed means at least one ecosystem failed; the others may
	// still have contributed data.
	StatusFailed Status = "failed"
)

const (
	// StatePending is the state of an ecosystem not visited yet.
	StatePending EcosystemState = ""
	// StateScanned means records were extracted, possibly none.
	StateScanned EcosystemState = "scanned"
	// StateNotProject means the directory has no manifest for the ecosystem.
	StateNotProject EcosystemState = "not-project"
	// StateSkipped means the options or an aborted scan excluded it.
	StateSkipped EcosystemState = "skipped"
	// StateFailed means installation or extraction failed.
	StateFailed EcosystemState = "failed"
)

// ErrInvalidPhase is returned when a Phase value is not defined.
var ErrInvalidPhase = errors.New("invalid scan phase")

type (
	// Phase is a step of the per-directory state machine:
	// Init → RepoCheck → {Aborted | NodeScan → BowerScan → Done}.
	Phase int32

	// Status summarizes a directory scan.
	Status string

	// EcosystemState records what happened to one ecosystem of a directory.
	EcosystemState string
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRepoCheck:
		return "repo-check"
	case PhaseNodeScan:
		return "node-scan"
	case PhaseBowerScan:
		return "bower-scan"
	case PhaseDone:
		return "done"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Validate returns an error wrapping ErrInvalidPhase for undefined values.
func (p Phase) Validate() error {
	switch p {
	case PhaseInit, PhaseRepoCheck, PhaseNodeScan, PhaseBowerScan, PhaseDone, PhaseAborted:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidPhase, int32(p))
	}
}

// IsTerminal reports whether no further transition can happen.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseAborted
}
