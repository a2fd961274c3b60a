// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/policy"
	"github.com/connectedyard/licensescan/internal/testutil"
)

func mustRunConfig(t *testing.T, doc, base string) *RunConfig {
	t.Helper()
	rc, err := ParseRunConfig([]byte(doc), "run.json", base)
	if err != nil {
		t.Fatalf("ParseRunConfig: %v", err)
	}
	return rc
}

func TestResolveDirectories(t *testing.T) {
	t.Parallel()

	cwd := filepath.FromSlash("/work")
	abs := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(cwd, n)
		}
		return out
	}
	rc := mustRunConfig(t, `{"directories": {"A": {}, "B": {}, "C": {}}}`, cwd)

	tests := []struct {
		name      string
		requested []string
		rc        *RunConfig
		want      []string
	}{
		{name: "defaults to cwd", want: []string{cwd}},
		{name: "requested only", requested: []string{"x", "../work/y", "x/"}, want: abs("x", "y")},
		{name: "run config order", rc: rc, want: abs("A", "B", "C")},
		{name: "intersection drops unknown", requested: []string{"B", "D"}, rc: rc, want: abs("B")},
		{name: "intersection keeps config order", requested: []string{"C", filepath.Join(cwd, "A")}, rc: rc, want: abs("A", "C")},
		{name: "no overlap", requested: []string{"D"}, rc: rc, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveDirectories(tt.requested, cwd, tt.rc)
			if err != nil {
				t.Fatalf("ResolveDirectories: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDirectories_EmptyRunConfig(t *testing.T) {
	t.Parallel()

	_, err := ResolveDirectories(nil, "/work", &RunConfig{Source: "run.json"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
	if ce.Source != "run.json" {
		t.Errorf("Source = %q", ce.Source)
	}
}

func TestBuildTargets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "policy.json"), `{"excludedDependencies": ["internal-lib"]}`)
	testutil.MustWriteFile(t, filepath.Join(dir, "web-policy.json"), `{"node": {"left-pad@1.0.0": "MIT"}}`)

	rc := mustRunConfig(t, `{
		"options": {"skipBower": true, "config": "policy.json"},
		"directories": {
			"web": {"overrideCategorization": "dev", "config": "web-policy.json", "commands": {"node": {"install": "npm ci"}}},
			"api": {"skipBower": false},
			"cli": null
		}
	}`, dir)

	base := DefaultOptions()
	base.EnableUnclean = true
	base.Categorization = policy.CategorizeProd

	targets, err := BuildTargets(base, nil, dir, rc)
	if err != nil {
		t.Fatalf("BuildTargets: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets", len(targets))
	}

	web, api, cli := targets[0], targets[1], targets[2]
	if web.Dir != filepath.Join(dir, "web") || api.Dir != filepath.Join(dir, "api") || cli.Dir != filepath.Join(dir, "cli") {
		t.Errorf("target order = %s, %s, %s", web.Dir, api.Dir, cli.Dir)
	}

	// Directory block beats global options, which beat the base.
	if web.Options.Categorization != policy.CategorizeDev || !web.Options.SkipBower || !web.Options.EnableUnclean {
		t.Errorf("web options = %+v", web.Options)
	}
	if api.Options.SkipBower || api.Options.Categorization != policy.CategorizeProd {
		t.Errorf("api options = %+v", api.Options)
	}
	if !cli.Options.SkipBower {
		t.Errorf("cli should inherit global options, got %+v", cli.Options)
	}

	if diff := cmp.Diff([]string{"npm", "ci"}, web.Commands[dependency.EcosystemNode].Install); diff != "" {
		t.Errorf("web install mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"npm", "install"}, api.Commands[dependency.EcosystemNode].Install); diff != "" {
		t.Errorf("api install mismatch (-want +got):\n%s", diff)
	}

	if web.Policy == nil || web.Policy.Source != filepath.Join(dir, "web-policy.json") {
		t.Errorf("web policy = %+v", web.Policy)
	}
	if api.Policy == nil || api.Policy != cli.Policy {
		t.Error("directories sharing a policy path should share one loaded policy")
	}
}

func TestBuildTargets_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "bad-policy.json"), `{"node": {"x": 3}}`)

	t.Run("invalid policy", func(t *testing.T) {
		t.Parallel()
		base := DefaultOptions()
		base.PolicyPath = filepath.Join(dir, "bad-policy.json")
		_, err := BuildTargets(base, nil, dir, nil)
		if !errors.Is(err, ErrConfiguration) || !errors.Is(err, policy.ErrInvalidPolicy) {
			t.Errorf("error = %v, want ErrConfiguration wrapping ErrInvalidPolicy", err)
		}
	})

	t.Run("missing policy", func(t *testing.T) {
		t.Parallel()
		base := DefaultOptions()
		base.PolicyPath = "nope.json"
		if _, err := BuildTargets(base, nil, dir, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("invalid merged options", func(t *testing.T) {
		t.Parallel()
		rc := mustRunConfig(t, `{"directories": {"web": {"commands": {"bower": {"prune": "bower 'prune"}}}}}`, dir)
		_, err := BuildTargets(DefaultOptions(), nil, dir, rc)
		var ce *ConfigurationError
		if !errors.As(err, &ce) || ce.Source != filepath.Join(dir, "web") {
			t.Errorf("error = %v, want a ConfigurationError naming the directory", err)
		}
	})
}
