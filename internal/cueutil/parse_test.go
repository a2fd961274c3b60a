// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testSchema = `
#Doc: close({
	name:   string & != ""
	count?: int
	items?: [string]: bool
})
`

type testDoc struct {
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Items map[string]bool `json:"items"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("json input", func(t *testing.T) {
		t.Parallel()
		result, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`{"name": "x", "count": 3}`), "#Doc")
		if err != nil {
			t.Fatalf("ParseAndDecode: %v", err)
		}
		if result.Value.Name != "x" || result.Value.Count != 3 {
			t.Errorf("decoded %+v", result.Value)
		}
	})

	t.Run("cue input", func(t *testing.T) {
		t.Parallel()
		result, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte("name: \"y\"\n// comment\nitems: a: true\n"), "#Doc")
		if err != nil {
			t.Fatalf("ParseAndDecode: %v", err)
		}
		if !result.Value.Items["a"] {
			t.Errorf("decoded %+v", result.Value)
		}
	})

	t.Run("schema violation names the path and file", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`{"name": "x", "count": "many"}`), "#Doc", WithFilename("doc.json"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "doc.json") || !strings.Contains(err.Error(), "count") {
			t.Errorf("error %q should mention the file and field", err)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`{"name": "x", "extra": 1}`), "#Doc"); err == nil {
			t.Error("closed schema should reject unknown fields")
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`{"name": `), "#Doc"); err == nil {
			t.Error("expected syntax error")
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()
		_, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`{"name": "x"}`), "#Doc", WithMaxFileSize(4))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("error = %v, want size limit error", err)
		}
	})
}

func TestFieldNames(t *testing.T) {
	t.Parallel()

	data := []byte(`{"name": "x", "items": {"zeta": true, "alpha": false, "@scope/pkg": true, "mid.dle": true}}`)
	result, err := ParseAndDecode[testDoc]([]byte(testSchema), data, "#Doc")
	if err != nil {
		t.Fatalf("ParseAndDecode: %v", err)
	}

	names, err := FieldNames(result.Unified, "items")
	if err != nil {
		t.Fatalf("FieldNames: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "@scope/pkg", "mid.dle"}, names); diff != "" {
		t.Errorf("FieldNames order mismatch (-want +got):\n%s", diff)
	}

	missing, err := FieldNames(result.Unified, "absent")
	if err != nil || missing != nil {
		t.Errorf("FieldNames(absent) = %v, %v; want nil, nil", missing, err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"":                          nil,
		"warnOnLicenses[2].pattern": {"warnOnLicenses", "2", "pattern"},
		"directories.web":           {"directories", "web"},
	}
	for want, in := range tests {
		if got := formatPath(in); got != want {
			t.Errorf("formatPath(%v) = %q, want %q", in, got, want)
		}
	}
}
