// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// EcosystemNode identifies dependencies installed by npm into node_modules.
	EcosystemNode Ecosystem = "node"
	// EcosystemBower identifies dependencies installed by bower.
	EcosystemBower Ecosystem = "bower"

	// UnknownLicense is the sentinel license value recorded when a dependency
	// declares no license and none could be inferred.
	UnknownLicense = "UNKNOWN"
)

var (
	// ErrInvalidEcosystem is returned when an Ecosystem value is not recognized.
	ErrInvalidEcosystem = errors.New("invalid ecosystem")
	// ErrInvalidRecord is returned when a Record violates its invariants.
	ErrInvalidRecord = errors.New("invalid dependency record")
)

type (
	// Ecosystem tags the dependency-management system a record came from.
	Ecosystem string

	// Licenses holds the license identifiers declared by a dependency. A single
	// license is serialized as a plain string, several as an array, matching
	// the shape package manifests use.
	Licenses []string

	// Record is one discovered third-party dependency.
	Record struct {
		// Name is the dependency identifier, usually "name@version" and possibly
		// carrying a registry scope prefix. Never empty.
		Name string `json:"name" yaml:"name"`
		// Version is the version parsed out of Name, when present.
		Version string `json:"version,omitempty" yaml:"version,omitempty"`
		// Licenses is the declared (or overridden) license set.
		Licenses Licenses `json:"licenses" yaml:"licenses"`
		// Publisher, Email and Repository are free-text metadata.
		Publisher  string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
		Email      string `json:"email,omitempty" yaml:"email,omitempty"`
		Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
		// Path is the install location relative to the root node_modules (node only).
		Path string `json:"path,omitempty" yaml:"path,omitempty"`
		// Depth is the nesting depth of the install location; bower records use 1.
		Depth int `json:"depth" yaml:"depth"`
		// IsProduction classifies the record as a production dependency.
		IsProduction bool `json:"isProduction" yaml:"isProduction"`
		// Ecosystem is the origin of the record.
		Ecosystem Ecosystem `json:"ecosystem" yaml:"ecosystem"`
		// Directory is the absolute path of the scanned project directory.
		Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
	}
)

// Ecosystems lists the supported ecosystems in scan order.
func Ecosystems() []Ecosystem {
	return []Ecosystem{EcosystemNode, EcosystemBower}
}

// String returns the string representation of the Ecosystem.
func (e Ecosystem) String() string { return string(e) }

// Validate returns an error if the Ecosystem is not one of the supported values.
func (e Ecosystem) Validate() error {
	switch e {
	case EcosystemNode, EcosystemBower:
		return nil
	default:
		return fmt.Errorf("%w: %q (valid: node, bower)", ErrInvalidEcosystem, string(e))
	}
}

// NewLicenses returns a Licenses value with the given entries, or the unknown
// sentinel when no non-empty entry is given.
func NewLicenses(values ...string) Licenses {
	out := make(Licenses, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return Licenses{UnknownLicense}
	}
	return out
}

// IsUnknown reports whether the licenses are exactly the unknown sentinel.
func (l Licenses) IsUnknown() bool {
	return len(l) == 1 && l[0] == UnknownLicense
}

// String joins the licenses with ", ".
func (l Licenses) String() string {
	return strings.Join(l, ", ")
}

// MarshalJSON encodes a single license as a string and several as an array.
func (l Licenses) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts either a string or an array of strings.
func (l *Licenses) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = Licenses{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("licenses must be a string or an array of strings: %w", err)
	}
	*l = Licenses(many)
	return nil
}

// MarshalYAML mirrors MarshalJSON for YAML encoders.
func (l Licenses) MarshalYAML() (any, error) {
	if len(l) == 1 {
		return l[0], nil
	}
	return []string(l), nil
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidRecord)
	}
	return r.Ecosystem.Validate()
}

// ParsedName parses the record's Name.
func (r Record) ParsedName() (Name, error) {
	return ParseName(r.Name)
}

// ModuleKey returns the dependency name with any embedded version removed.
// Names that cannot be parsed are used as-is.
func (r Record) ModuleKey() string {
	n, err := ParseName(r.Name)
	if err != nil {
		return r.Name
	}
	return n.LongName()
}
