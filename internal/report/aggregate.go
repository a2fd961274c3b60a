// SPDX-License-Identifier: MPL-2.0

// Package report merges per-directory scan outcomes into a single ordered,
// deduplicated view and writes it out as report artifacts.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/policy"
	"github.com/connectedyard/licensescan/internal/scan"
)

type (
	// DirectoryResult is the data one directory contributed.
	DirectoryResult struct {
		Directory  string
		Status     scan.Status
		Node       []dependency.Record
		Bower      []dependency.Record
		NodeState  scan.EcosystemState
		BowerState scan.EcosystemState
		Errors     []string
	}

	// Entry is a record of the merged list with its module key.
	Entry struct {
		dependency.Record
		ModuleKey string
	}

	// Module is the reporting shape of a deduplicated dependency.
	Module struct {
		Module       string               `json:"module" yaml:"module" toml:"module"`
		Name         string               `json:"name" yaml:"name" toml:"name"`
		Version      string               `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
		Licenses     dependency.Licenses  `json:"licenses" yaml:"licenses" toml:"licenses"`
		Directory    string               `json:"directory" yaml:"directory" toml:"directory"`
		Publisher    string               `json:"publisher,omitempty" yaml:"publisher,omitempty" toml:"publisher,omitempty"`
		Email        string               `json:"email,omitempty" yaml:"email,omitempty" toml:"email,omitempty"`
		Repository   string               `json:"repository,omitempty" yaml:"repository,omitempty" toml:"repository,omitempty"`
		Ecosystem    dependency.Ecosystem `json:"ecosystem" yaml:"ecosystem" toml:"ecosystem"`
		IsProduction bool                 `json:"isProduction" yaml:"isProduction" toml:"isProduction"`
		PURL         string               `json:"purl,omitempty" yaml:"purl,omitempty" toml:"purl,omitempty"`
	}

	// Aggregate is the cross-directory view of a run.
	Aggregate struct {
		RunID       uuid.UUID
		GeneratedAt time.Time
		// Directories are in scan order.
		Directories []DirectoryResult
		// Entries is every record of every directory, sorted by ecosystem,
		// module key, name and directory.
		Entries []Entry
		// Modules holds one row per (ecosystem, module key). A production
		// record wins over development records of the same module.
		Modules []Module
		// Production is Modules restricted to production dependencies.
		Production []Module
		Unknowns   []dependency.Record
		Warnings   []policy.Warning
		// Aborted and Failed list directories by status, in scan order.
		Aborted []string
		Failed  []string
	}
)

// Build aggregates outcomes. It does not modify them.
func Build(runID uuid.UUID, generatedAt time.Time, outcomes []*scan.Outcome) *Aggregate {
	agg := &Aggregate{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Directories: make([]DirectoryResult, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		dr := DirectoryResult{
			Directory:  o.Directory,
			Status:     o.Status,
			Node:       o.Node,
			Bower:      o.Bower,
			NodeState:  o.NodeState,
			BowerState: o.BowerState,
		}
		for _, err := range o.Errors {
			dr.Errors = append(dr.Errors, err.Error())
		}
		agg.Directories = append(agg.Directories, dr)

		switch o.Status {
		case scan.StatusAborted:
			agg.Aborted = append(agg.Aborted, o.Directory)
		case scan.StatusFailed:
			agg.Failed = append(agg.Failed, o.Directory)
		}

		for _, rec := range o.All() {
			agg.Entries = append(agg.Entries, Entry{Record: withDirectory(rec, o.Directory), ModuleKey: rec.ModuleKey()})
		}
		for _, rec := range o.Unknowns {
			agg.Unknowns = append(agg.Unknowns, withDirectory(rec, o.Directory))
		}
		for _, w := range o.Warnings {
			w.Record = withDirectory(w.Record, o.Directory)
			agg.Warnings = append(agg.Warnings, w)
		}
	}

	slices.SortStableFunc(agg.Entries, compareEntries)
	slices.SortStableFunc(agg.Unknowns, func(a, b dependency.Record) int {
		return compareEntries(Entry{Record: a, ModuleKey: a.ModuleKey()}, Entry{Record: b, ModuleKey: b.ModuleKey()})
	})
	slices.SortStableFunc(agg.Warnings, func(a, b policy.Warning) int {
		return compareEntries(Entry{Record: a.Record, ModuleKey: a.Record.ModuleKey()}, Entry{Record: b.Record, ModuleKey: b.Record.ModuleKey()})
	})

	agg.Modules = dedupe(agg.Entries)
	for _, m := range agg.Modules {
		if m.IsProduction {
			agg.Production = append(agg.Production, m)
		}
	}
	return agg
}

// compareEntries orders by ecosystem, module key, name, then directory.
func compareEntries(a, b Entry) int {
	return cmp.Or(
		cmp.Compare(a.Ecosystem, b.Ecosystem),
		cmp.Compare(a.ModuleKey, b.ModuleKey),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Directory, b.Directory),
	)
}

// dedupe keeps the first entry per (ecosystem, module key) of the sorted
// list, unless a later entry is production and the kept one is not.
func dedupe(sorted []Entry) []Module {
	type key struct {
		eco    dependency.Ecosystem
		module string
	}
	index := make(map[key]int)
	var out []Module
	for _, e := range sorted {
		k := key{e.Ecosystem, e.ModuleKey}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, NewModule(e))
			continue
		}
		if e.IsProduction && !out[i].IsProduction {
			out[i] = NewModule(e)
		}
	}
	return out
}

// NewModule projects an entry into its reporting shape.
func NewModule(e Entry) Module {
	return Module{
		Module:       e.ModuleKey,
		Name:         e.Name,
		Version:      e.Version,
		Licenses:     e.Licenses,
		Directory:    e.Directory,
		Publisher:    e.Publisher,
		Email:        e.Email,
		Repository:   e.Repository,
		Ecosystem:    e.Ecosystem,
		IsProduction: e.IsProduction,
		PURL:         PURL(e.Record),
	}
}

func withDirectory(rec dependency.Record, dir string) dependency.Record {
	if rec.Directory == "" {
		rec.Directory = dir
	}
	return rec
}

// Directory returns the result of dir, if it was scanned.
func (a *Aggregate) Directory(dir string) (DirectoryResult, bool) {
	for _, d := range a.Directories {
		if d.Directory == dir {
			return d, true
		}
	}
	return DirectoryResult{}, false
}

// Dependencies returns the modules of the consolidated report.
func (a *Aggregate) Dependencies(productionOnly bool) []Module {
	if productionOnly {
		return a.Production
	}
	return a.Modules
}
