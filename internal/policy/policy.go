// SPDX-License-Identifier: MPL-2.0

// Package policy reconciles extracted dependency records with a project's
// license policy: known-license overrides, excluded dependencies and
// licenses that deserve a warning.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"bitbucket.org/creachadair/stringset"

	"github.com/connectedyard/licensescan/internal/cueutil"
	"github.com/connectedyard/licensescan/internal/dependency"
)

const (
	// CategorizeNone keeps each ecosystem's own production/development split.
	CategorizeNone Categorization = ""
	// CategorizeProd marks every record as a production dependency.
	CategorizeProd Categorization = "prod"
	// CategorizeDev marks every record as a development dependency.
	CategorizeDev Categorization = "dev"
)

//go:embed policy_schema.cue
var policySchema []byte

var (
	// ErrInvalidPolicy is returned when a policy document cannot be loaded.
	ErrInvalidPolicy = errors.New("invalid license policy")
	// ErrInvalidCategorization is returned for an unknown Categorization.
	ErrInvalidCategorization = errors.New("invalid categorization")
)

type (
	// Categorization forces the production flag of a whole batch of records.
	Categorization string

	// Policy is a loaded license policy document. The zero value and a nil
	// *Policy are both valid and change nothing.
	Policy struct {
		// Node and Bower map exact dependency names to replacement licenses.
		Node  map[string]dependency.Licenses `json:"node,omitempty"`
		Bower map[string]dependency.Licenses `json:"bower,omitempty"`
		// ExcludedDependencies lists full names, scopes or base names to drop.
		ExcludedDependencies []string `json:"excludedDependencies,omitempty"`
		// WarnOnLicenses flags records whose licenses match.
		WarnOnLicenses []Matcher `json:"warnOnLicenses,omitempty"`

		// Source is the file the policy was loaded from, if any.
		Source string `json:"-"`

		excluded stringset.Set
	}

	// Warning is raised when a record carries a license matched by a
	// warn-on-license entry.
	Warning struct {
		Record  dependency.Record
		License string
		Matcher string
	}

	// Outcome is the result of applying a policy to one ecosystem's records.
	Outcome struct {
		// Records are the surviving records, overrides and categorization applied.
		Records []dependency.Record
		// Excluded are the records removed by the exclusion list.
		Excluded []dependency.Record
		// Overridden counts records whose licenses were replaced.
		Overridden int
		// Warnings and Unknowns annotate Records; they never remove anything.
		Warnings []Warning
		Unknowns []dependency.Record
	}
)

// Validate returns ErrInvalidCategorization for unknown values.
func (c Categorization) Validate() error {
	switch c {
	case CategorizeNone, CategorizeProd, CategorizeDev:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected prod or dev)", ErrInvalidCategorization, string(c))
	}
}

// Load reads and validates the policy document at path. JSON and CUE are
// both accepted.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	p, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	p.Source = path
	return p, nil
}

// Parse validates data against the policy schema and decodes it.
func Parse(data []byte, filename string) (*Policy, error) {
	result, err := cueutil.ParseAndDecode[Policy](policySchema, data, "#Policy", cueutil.WithFilename(filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	p := result.Value
	p.excluded = stringset.New(p.ExcludedDependencies...)
	return p, nil
}

// Overrides returns the override map for eco.
func (p *Policy) Overrides(eco dependency.Ecosystem) map[string]dependency.Licenses {
	if p == nil {
		return nil
	}
	if eco == dependency.EcosystemBower {
		return p.Bower
	}
	return p.Node
}

// Exclusions returns the exclusion set.
func (p *Policy) Exclusions() stringset.Set {
	if p == nil {
		return nil
	}
	if p.excluded == nil {
		// Built by hand rather than through Parse.
		return stringset.New(p.ExcludedDependencies...)
	}
	return p.excluded
}

// Matchers returns the warn-on-license matchers.
func (p *Policy) Matchers() []Matcher {
	if p == nil {
		return nil
	}
	return p.WarnOnLicenses
}

// Apply runs the policy pipeline over one ecosystem's records: overrides,
// then categorization, then exclusion, then warning and unknown annotation.
// The input slice is modified in place.
func (p *Policy) Apply(eco dependency.Ecosystem, records []dependency.Record, c Categorization) Outcome {
	var out Outcome
	out.Overridden = ApplyOverrides(records, p.Overrides(eco))
	OverrideCategorization(records, c)
	out.Records, out.Excluded = FilterExcluded(records, p.Exclusions())
	out.Warnings = ClassifyWarnings(out.Records, p.Matchers())
	out.Unknowns = Unknowns(out.Records)
	return out
}

// ApplyOverrides replaces the licenses of every record whose Name exactly
// matches a key of overrides and returns how many were replaced.
func ApplyOverrides(records []dependency.Record, overrides map[string]dependency.Licenses) int {
	if len(overrides) == 0 {
		return 0
	}
	n := 0
	for i := range records {
		if licenses, ok := overrides[records[i].Name]; ok {
			records[i].Licenses = slices.Clone(licenses)
			n++
		}
	}
	return n
}

// OverrideCategorization forces IsProduction on every record. CategorizeNone
// leaves the records untouched.
func OverrideCategorization(records []dependency.Record, c Categorization) {
	if c == CategorizeNone {
		return
	}
	for i := range records {
		records[i].IsProduction = c == CategorizeProd
	}
}

// FilterExcluded splits records into those kept and those whose full name,
// scope-qualified name without version, registry scope or base name is in
// exclusions.
func FilterExcluded(records []dependency.Record, exclusions stringset.Set) (kept, removed []dependency.Record) {
	kept = make([]dependency.Record, 0, len(records))
	for _, r := range records {
		if isExcluded(r, exclusions) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, removed
}

func isExcluded(r dependency.Record, exclusions stringset.Set) bool {
	if len(exclusions) == 0 {
		return false
	}
	if exclusions.Contains(r.Name) {
		return true
	}
	n, err := r.ParsedName()
	if err != nil {
		return false
	}
	if exclusions.Contains(n.LongName()) || exclusions.Contains(n.Base) {
		return true
	}
	return n.Scoped() && exclusions.Contains(n.Scope)
}

// ClassifyWarnings returns one Warning per record and matching license. The
// first matcher to match a license is reported.
func ClassifyWarnings(records []dependency.Record, matchers []Matcher) []Warning {
	if len(matchers) == 0 {
		return nil
	}
	var warnings []Warning
	for _, r := range records {
		for _, license := range r.Licenses {
			for _, m := range matchers {
				if m.Match(license) {
					warnings = append(warnings, Warning{Record: r, License: license, Matcher: m.String()})
					break
				}
			}
		}
	}
	return warnings
}

// Unknowns returns the records whose licenses are exactly the unknown sentinel.
func Unknowns(records []dependency.Record) []dependency.Record {
	var out []dependency.Record
	for _, r := range records {
		if r.Licenses.IsUnknown() {
			out = append(out, r)
		}
	}
	return out
}
