// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/connectedyard/licensescan/internal/dependency"
)

// maxLicenseFileBytes bounds how much of a license file is read for sniffing.
const maxLicenseFileBytes = 64 * 1024

var (
	// "name <email> (url)", every part but the name optional
	personPattern = regexp.MustCompile(`^\s*(?P<name>[^<(]*)(\s+<(?P<email>.*)>)?(\s\((?P<url>.*)\))?\s*$`)

	// "user/repo" with no host
	githubShorthand = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)

	// "git@host:path"
	scpLikeURL = regexp.MustCompile(`^[\w.-]+@([\w.-]+):(.+)$`)

	licenseFilePrefixes = []string{"license", "licence", "copying"}

	// Ordered: more specific texts come before texts they contain.
	licenseSignatures = []struct {
		marker  string
		license string
	}{
		{"gnu lesser general public license", "LGPL*"},
		{"gnu affero general public license", "AGPL*"},
		{"gnu general public license", "GPL*"},
		{"mozilla public license", "MPL*"},
		{"apache license", "Apache*"},
		{"isc license", "ISC*"},
		{"permission to use, copy, modify, and/or distribute", "ISC*"},
		{"mit license", "MIT*"},
		{"permission is hereby granted, free of charge", "MIT*"},
		{"redistribution and use in source and binary forms", "BSD*"},
		{"this is free and unencumbered software", "Unlicense*"},
		{"creative commons", "CC*"},
	}
)

// person is a parsed author field.
type person struct {
	Name  string
	Email string
	URL   string
}

// parsePerson reads an author value in either string or object form.
func parsePerson(v gjson.Result) person {
	switch {
	case v.IsObject():
		return person{
			Name:  strings.TrimSpace(v.Get("name").String()),
			Email: strings.TrimSpace(v.Get("email").String()),
			URL:   strings.TrimSpace(v.Get("url").String()),
		}
	case v.Type == gjson.String:
		m := personPattern.FindStringSubmatch(v.String())
		if m == nil {
			return person{Name: strings.TrimSpace(v.String())}
		}
		return person{
			Name:  strings.TrimSpace(m[personPattern.SubexpIndex("name")]),
			Email: strings.TrimSpace(m[personPattern.SubexpIndex("email")]),
			URL:   strings.TrimSpace(m[personPattern.SubexpIndex("url")]),
		}
	default:
		return person{}
	}
}

// declaredLicenses reads the "license" field, falling back to the legacy
// "licenses" array. It returns nil when neither declares anything.
func declaredLicenses(manifest gjson.Result) []string {
	if out := licenseValues(manifest.Get("license")); len(out) > 0 {
		return out
	}
	return licenseValues(manifest.Get("licenses"))
}

func licenseValues(v gjson.Result) []string {
	var out []string
	switch {
	case !v.Exists():
	case v.IsArray():
		for _, item := range v.Array() {
			out = append(out, licenseValues(item)...)
		}
	case v.IsObject():
		if t := strings.TrimSpace(v.Get("type").String()); t != "" {
			out = append(out, t)
		}
	default:
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sniffLicenseFile guesses a license from a LICENSE/COPYING file in dir. The
// returned identifier carries a trailing "*" to mark it as inferred. It
// returns "" when no file exists or no known text is recognized.
func sniffLicenseFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !hasLicenseFilePrefix(entry.Name()) {
			continue
		}
		if guess := sniffText(filepath.Join(dir, entry.Name())); guess != "" {
			return guess
		}
	}
	return ""
}

func hasLicenseFilePrefix(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range licenseFilePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func sniffText(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, maxLicenseFileBytes)
	n, _ := f.Read(buf)
	text := strings.Join(strings.Fields(strings.ToLower(string(buf[:n]))), " ")
	for _, sig := range licenseSignatures {
		if strings.Contains(text, sig.marker) {
			return sig.license
		}
	}
	return ""
}

// nodeLicenses resolves a node package's licenses: declared, then sniffed,
// then the unknown sentinel.
func nodeLicenses(manifest gjson.Result, dir string) dependency.Licenses {
	if declared := declaredLicenses(manifest); len(declared) > 0 {
		return dependency.NewLicenses(declared...)
	}
	return dependency.NewLicenses(sniffLicenseFile(dir))
}

// repositoryURL normalizes a node "repository" field to a browsable https URL.
func repositoryURL(v gjson.Result) string {
	raw := v.String()
	if v.IsObject() {
		raw = v.Get("url").String()
	}
	return normalizeRepository(raw)
}

func normalizeRepository(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	for prefix, host := range map[string]string{
		"github:":    "github.com",
		"gitlab:":    "gitlab.com",
		"bitbucket:": "bitbucket.org",
	} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			return "https://" + host + "/" + strings.TrimSuffix(rest, ".git")
		}
	}
	if githubShorthand.MatchString(s) {
		return "https://github.com/" + strings.TrimSuffix(s, ".git")
	}

	s = strings.TrimPrefix(s, "git+")
	if m := scpLikeURL.FindStringSubmatch(s); m != nil && !strings.Contains(s, "://") {
		s = "https://" + m[1] + "/" + m[2]
	}
	for _, scheme := range []string{"git://", "ssh://git@", "ssh://", "http://"} {
		if rest, ok := strings.CutPrefix(s, scheme); ok {
			s = "https://" + rest
			break
		}
	}
	return strings.TrimSuffix(s, ".git")
}

// bowerRepository renders a bower "repository" field as text: the string
// itself, the object's url, or the object's JSON.
func bowerRepository(v gjson.Result) string {
	switch {
	case !v.Exists():
		return ""
	case v.IsObject():
		if u := v.Get("url").String(); u != "" {
			return u
		}
		return v.Raw
	default:
		return v.String()
	}
}
