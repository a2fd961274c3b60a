// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/workdir"
)

type (
	// Extractor lists the dependencies installed for one ecosystem.
	Extractor interface {
		Extract(ctx context.Context, dir string) ([]dependency.Record, error)
	}

	// Probe ties manifest detection, installation and extraction together
	// for both ecosystems.
	Probe struct {
		installer  *Installer
		guard      *workdir.Guard
		extractors map[dependency.Ecosystem]Extractor
	}

	// ProbeOption configures a Probe.
	ProbeOption func(*Probe)
)

// WithExtractor replaces the extractor used for eco.
func WithExtractor(eco dependency.Ecosystem, ex Extractor) ProbeOption {
	return func(p *Probe) { p.extractors[eco] = ex }
}

// NewProbe creates a Probe. Extraction runs inside guard so extractors that
// resolve paths against the working directory see the project directory.
func NewProbe(installer *Installer, guard *workdir.Guard, opts ...ProbeOption) *Probe {
	p := &Probe{
		installer: installer,
		guard:     guard,
		extractors: map[dependency.Ecosystem]Extractor{
			dependency.EcosystemNode:  NodeExtractor{},
			dependency.EcosystemBower: BowerExtractor{},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsProject reports whether dir is a project of the given ecosystem.
func (p *Probe) IsProject(eco dependency.Ecosystem, dir string) bool {
	return IsProject(eco, dir)
}

// Install runs the ecosystem's install and prune commands in dir.
func (p *Probe) Install(ctx context.Context, eco dependency.Ecosystem, dir string, cmds Commands, opts InstallOptions) error {
	return p.installer.Install(ctx, eco, dir, cmds, opts)
}

// Extract lists eco's dependencies in dir, tagging each record with its
// ecosystem and directory. Any failure, including one to enter or leave dir,
// is returned as an *ExtractionFailure.
func (p *Probe) Extract(ctx context.Context, eco dependency.Ecosystem, dir string) ([]dependency.Record, error) {
	ex, ok := p.extractors[eco]
	if !ok {
		return nil, &ExtractionFailure{Ecosystem: eco, Dir: dir, Err: fmt.Errorf("no extractor for %s", eco)}
	}

	var records []dependency.Record
	err := p.guard.Do(ctx, dir, func() error {
		var err error
		records, err = ex.Extract(ctx, dir)
		return err
	})
	if err != nil {
		var failure *ExtractionFailure
		if errors.As(err, &failure) {
			return nil, err
		}
		return nil, &ExtractionFailure{Ecosystem: eco, Dir: dir, Err: err}
	}

	for i := range records {
		records[i].Ecosystem = eco
		records[i].Directory = dir
	}
	return records, nil
}
