// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
)

// ErrInvalidMatcher is returned when a warn-on-license entry cannot be compiled.
var ErrInvalidMatcher = errors.New("invalid license matcher")

// Matcher tests a single license string. Exactly one of Exact, Pattern
// (a regular expression) or Glob is set.
type Matcher struct {
	Exact   string
	Pattern string
	Glob    string

	re *regexp.Regexp
	g  glob.Glob
}

// ExactMatcher returns a Matcher for a literal license string.
func ExactMatcher(license string) Matcher { return Matcher{Exact: license} }

// PatternMatcher compiles a regular-expression Matcher.
func PatternMatcher(pattern string) (Matcher, error) {
	m := Matcher{Pattern: pattern}
	return m, m.compile()
}

// GlobMatcher compiles a glob Matcher such as "GPL-*".
func GlobMatcher(pattern string) (Matcher, error) {
	m := Matcher{Glob: pattern}
	return m, m.compile()
}

// UnmarshalJSON accepts "LICENSE", {"pattern": "regex"} or {"glob": "pattern"}.
func (m *Matcher) UnmarshalJSON(b []byte) error {
	var exact string
	if err := json.Unmarshal(b, &exact); err == nil {
		*m = Matcher{Exact: exact}
		return nil
	}
	var obj struct {
		Pattern string `json:"pattern"`
		Glob    string `json:"glob"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("%w: expected a string or an object with pattern or glob", ErrInvalidMatcher)
	}
	*m = Matcher{Pattern: obj.Pattern, Glob: obj.Glob}
	return m.compile()
}

// MarshalJSON writes the matcher back in its document form.
func (m Matcher) MarshalJSON() ([]byte, error) {
	switch {
	case m.Pattern != "":
		return json.Marshal(map[string]string{"pattern": m.Pattern})
	case m.Glob != "":
		return json.Marshal(map[string]string{"glob": m.Glob})
	default:
		return json.Marshal(m.Exact)
	}
}

func (m *Matcher) compile() error {
	switch {
	case m.Pattern != "" && m.Glob != "":
		return fmt.Errorf("%w: pattern and glob are mutually exclusive", ErrInvalidMatcher)
	case m.Pattern != "":
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalidMatcher, m.Pattern, err)
		}
		m.re = re
	case m.Glob != "":
		g, err := glob.Compile(m.Glob)
		if err != nil {
			return fmt.Errorf("%w: glob %q: %w", ErrInvalidMatcher, m.Glob, err)
		}
		m.g = g
	case m.Exact == "":
		return fmt.Errorf("%w: empty matcher", ErrInvalidMatcher)
	}
	return nil
}

// Match reports whether license satisfies the matcher. Exact matchers
// compare the whole string; patterns are unanchored unless they anchor
// themselves.
func (m Matcher) Match(license string) bool {
	switch {
	case m.re != nil:
		return m.re.MatchString(license)
	case m.g != nil:
		return m.g.Match(license)
	case m.Pattern != "" || m.Glob != "":
		// Not compiled: constructed as a literal without going through
		// PatternMatcher or GlobMatcher.
		c := m
		if c.compile() != nil {
			return false
		}
		return c.Match(license)
	default:
		return license == m.Exact
	}
}

// String renders the matcher for reports and logs.
func (m Matcher) String() string {
	switch {
	case m.Pattern != "":
		return "/" + m.Pattern + "/"
	case m.Glob != "":
		return "glob:" + m.Glob
	default:
		return m.Exact
	}
}
