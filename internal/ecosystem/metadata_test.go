// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/connectedyard/licensescan/internal/testutil"
)

func TestParsePerson(t *testing.T) {
	t.Parallel()

	tests := []struct {
		json string
		want person
	}{
		{`"Jane Doe <jane@example.com> (https://jane.dev)"`, person{Name: "Jane Doe", Email: "jane@example.com", URL: "https://jane.dev"}},
		{`"Jane Doe <jane@example.com>"`, person{Name: "Jane Doe", Email: "jane@example.com"}},
		{`"Jane Doe"`, person{Name: "Jane Doe"}},
		{`{"name":"Bob","email":"bob@example.com","url":"https://bob.dev"}`, person{Name: "Bob", Email: "bob@example.com", URL: "https://bob.dev"}},
		{`42`, person{}},
	}
	for _, tt := range tests {
		got := parsePerson(gjson.Parse(tt.json))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parsePerson(%s) mismatch (-want +got):\n%s", tt.json, diff)
		}
	}
}

func TestDeclaredLicenses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		json string
		want []string
	}{
		{`{"license":"MIT"}`, []string{"MIT"}},
		{`{"license":"(MIT OR Apache-2.0)"}`, []string{"(MIT OR Apache-2.0)"}},
		{`{"license":{"type":"ISC","url":"x"}}`, []string{"ISC"}},
		{`{"license":["MIT","GPL-2.0"]}`, []string{"MIT", "GPL-2.0"}},
		{`{"licenses":[{"type":"MIT"},{"type":"BSD"}]}`, []string{"MIT", "BSD"}},
		{`{"licenses":"WTFPL"}`, []string{"WTFPL"}},
		{`{"license":"","licenses":["Zlib"]}`, []string{"Zlib"}},
		{`{"name":"x"}`, nil},
	}
	for _, tt := range tests {
		got := declaredLicenses(gjson.Parse(tt.json))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("declaredLicenses(%s) mismatch (-want +got):\n%s", tt.json, diff)
		}
	}
}

func TestNormalizeRepository(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                                   "",
		"https://github.com/foo/bar":         "https://github.com/foo/bar",
		"git+https://github.com/foo/bar.git": "https://github.com/foo/bar",
		"git://github.com/foo/bar.git":       "https://github.com/foo/bar",
		"git+ssh://git@github.com/foo/bar":   "https://github.com/foo/bar",
		"git@gitlab.com:group/proj.git":      "https://gitlab.com/group/proj",
		"foo/bar":                            "https://github.com/foo/bar",
		"github:foo/bar":                     "https://github.com/foo/bar",
		"bitbucket:team/repo":                "https://bitbucket.org/team/repo",
		"http://example.com/repo":            "https://example.com/repo",
	}
	for in, want := range tests {
		if got := normalizeRepository(in); got != want {
			t.Errorf("normalizeRepository(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBowerRepository(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`{"repository":"https://github.com/x/y"}`:             "https://github.com/x/y",
		`{"repository":{"type":"git","url":"git://x/y.git"}}`: "git://x/y.git",
		`{"repository":{"type":"git"}}`:                       `{"type":"git"}`,
		`{}`: "",
	}
	for in, want := range tests {
		if got := bowerRepository(gjson.Parse(in).Get("repository")); got != want {
			t.Errorf("bowerRepository(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestSniffLicenseFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		content string
		want    string
	}{
		{"LICENSE", mitText, "MIT*"},
		{"license.txt", "ISC License\n\nPermission to use, copy, modify, and/or distribute this software", "ISC*"},
		{"COPYING", "GNU LESSER GENERAL PUBLIC LICENSE\nVersion 3", "LGPL*"},
		{"LICENCE", "Apache License\nVersion 2.0, January 2004", "Apache*"},
		{"LICENSE", "All rights reserved. Do not copy.", ""},
		{"README.md", mitText, ""},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		testutil.MustWriteFile(t, filepath.Join(dir, tt.file), tt.content)
		if got := sniffLicenseFile(dir); got != tt.want {
			t.Errorf("sniffLicenseFile(%s) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
