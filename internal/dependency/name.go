// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid dependency name")

var (
	// "@scope/name@1.0.0" or "@scope/name"
	scopedNamePattern = regexp.MustCompile(`^(?P<scope>@[^/@]+)/(?P<base>[^@]+)(?:@(?P<version>.*))?$`)
	// "name@1.0.0" or "name"
	unscopedNamePattern = regexp.MustCompile(`^(?P<base>[^@]+)(?:@(?P<version>.*))?$`)
)

type (
	// Name is a parsed dependency identifier. Scope is empty for unscoped names;
	// otherwise it holds the registry scope including its leading "@".
	Name struct {
		Scope   string
		Base    string
		Version string

		versioned bool
	}

	// InvalidNameError is returned when a dependency identifier cannot be parsed.
	InvalidNameError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid dependency name %q", e.Value)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// ParseName splits a dependency identifier into scope, base name and version.
// Identifiers beginning with "@" are parsed as scoped names.
func ParseName(s string) (Name, error) {
	if strings.TrimSpace(s) == "" {
		return Name{}, &InvalidNameError{Value: s}
	}

	pattern := unscopedNamePattern
	if strings.HasPrefix(s, "@") {
		pattern = scopedNamePattern
	}

	idx := pattern.FindStringSubmatchIndex(s)
	if idx == nil {
		return Name{}, &InvalidNameError{Value: s}
	}

	group := func(name string) (string, bool) {
		i := pattern.SubexpIndex(name)
		if i < 0 || idx[2*i] < 0 {
			return "", false
		}
		return s[idx[2*i]:idx[2*i+1]], true
	}

	var n Name
	n.Scope, _ = group("scope")
	n.Base, _ = group("base")
	n.Version, n.versioned = group("version")
	return n, nil
}

// Scoped reports whether the name carries a registry scope.
func (n Name) Scoped() bool { return n.Scope != "" }

// HasVersion reports whether the identifier carried an "@version" suffix.
func (n Name) HasVersion() bool { return n.versioned }

// LongName returns the name without its version: "@scope/base" or "base".
func (n Name) LongName() string {
	if n.Scoped() {
		return n.Scope + "/" + n.Base
	}
	return n.Base
}

// String reconstructs the identifier the name was parsed from.
func (n Name) String() string {
	if n.versioned {
		return n.LongName() + "@" + n.Version
	}
	return n.LongName()
}
