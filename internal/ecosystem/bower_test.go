// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/executor/executortest"
	"github.com/connectedyard/licensescan/internal/testutil"
	"github.com/connectedyard/licensescan/internal/workdir"
)

// Bower extraction resolves paths against the process working directory, so
// nothing in this file runs in parallel.

func writeBowerFixture(t *testing.T, root, componentsDir string) {
	t.Helper()
	testutil.MustWriteJSON(t, filepath.Join(root, "bower.json"), map[string]any{"name": "site"})
	comp := filepath.Join(root, componentsDir)
	testutil.MustWriteJSON(t, filepath.Join(comp, "jquery", ".bower.json"), map[string]any{
		"name":       "jquery",
		"version":    "3.7.1",
		"license":    "MIT",
		"repository": map[string]string{"type": "git", "url": "https://github.com/jquery/jquery-dist.git"},
	})
	testutil.MustWriteJSON(t, filepath.Join(comp, "moment", "bower.json"), map[string]any{
		"name":     "moment",
		"_release": "2.30.1",
		"license":  []string{"MIT", "CC0-1.0"},
	})
	testutil.MustWriteJSON(t, filepath.Join(comp, "mystery", ".bower.json"), map[string]any{
		"version": "0.0.1",
	})
	testutil.MustWriteFile(t, filepath.Join(comp, "stray.txt"), "not a component")
}

func TestBowerExtractor_Extract(t *testing.T) {
	root := testutil.MustEvalSymlinks(t, t.TempDir())
	writeBowerFixture(t, root, "bower_components")
	t.Cleanup(testutil.MustChdir(t, root))

	got, err := BowerExtractor{}.Extract(t.Context(), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	bower := dependency.EcosystemBower
	want := []dependency.Record{
		{Name: "jquery@3.7.1", Version: "3.7.1", Licenses: dependency.Licenses{"MIT"}, Repository: "https://github.com/jquery/jquery-dist.git", Depth: 1, IsProduction: true, Ecosystem: bower},
		{Name: "moment@2.30.1", Version: "2.30.1", Licenses: dependency.Licenses{"MIT", "CC0-1.0"}, Depth: 1, IsProduction: true, Ecosystem: bower},
		{Name: "mystery@0.0.1", Version: "0.0.1", Licenses: dependency.Licenses{"UNKNOWN"}, Depth: 1, IsProduction: true, Ecosystem: bower},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestBowerExtractor_BowerRC(t *testing.T) {
	root := testutil.MustEvalSymlinks(t, t.TempDir())
	writeBowerFixture(t, root, filepath.Join("public", "lib"))
	testutil.MustWriteFile(t, filepath.Join(root, ".bowerrc"), `{"directory": "public/lib"}`)
	t.Cleanup(testutil.MustChdir(t, root))

	got, err := BowerExtractor{}.Extract(t.Context(), root)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3 from the .bowerrc directory", len(got))
	}
}

func TestBowerExtractor_NothingInstalled(t *testing.T) {
	root := testutil.MustEvalSymlinks(t, t.TempDir())
	testutil.MustWriteJSON(t, filepath.Join(root, "bower.json"), map[string]any{"name": "site"})
	t.Cleanup(testutil.MustChdir(t, root))

	got, err := BowerExtractor{}.Extract(t.Context(), root)
	if err != nil || len(got) != 0 {
		t.Errorf("Extract = %v, %v; want no records and no error", got, err)
	}
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(context.Context, string) ([]dependency.Record, error) {
	return nil, f.err
}

func TestProbe_Extract(t *testing.T) {
	home := testutil.MustEvalSymlinks(t, t.TempDir())
	t.Cleanup(testutil.MustChdir(t, home))
	guard, err := workdir.New("")
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}

	project := filepath.Join(home, "site")
	writeBowerFixture(t, project, "bower_components")

	probe := NewProbe(&Installer{Runner: executortest.New()}, guard)

	if !probe.IsProject(dependency.EcosystemBower, project) {
		t.Fatal("fixture should be a bower project")
	}

	records, err := probe.Extract(t.Context(), dependency.EcosystemBower, project)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for _, r := range records {
		if r.Directory != project || r.Ecosystem != dependency.EcosystemBower {
			t.Errorf("record %s tagged %s/%s, want %s/bower", r.Name, r.Directory, r.Ecosystem, project)
		}
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after Extract = %q, want %q", got, home)
	}
}

func TestProbe_ExtractFailure(t *testing.T) {
	home := testutil.MustEvalSymlinks(t, t.TempDir())
	t.Cleanup(testutil.MustChdir(t, home))
	guard, err := workdir.New("")
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}

	boom := errors.New("tree corrupt")
	probe := NewProbe(&Installer{Runner: executortest.New()}, guard,
		WithExtractor(dependency.EcosystemNode, failingExtractor{err: boom}))

	_, err = probe.Extract(t.Context(), dependency.EcosystemNode, home)
	var failure *ExtractionFailure
	if !errors.As(err, &failure) || !errors.Is(err, ErrExtractionFailure) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want *ExtractionFailure wrapping the cause", err)
	}
	if failure.Ecosystem != dependency.EcosystemNode {
		t.Errorf("Ecosystem = %s, want node", failure.Ecosystem)
	}

	_, err = probe.Extract(t.Context(), dependency.EcosystemBower, filepath.Join(home, "missing"))
	if !errors.Is(err, ErrExtractionFailure) || !errors.Is(err, workdir.ErrAcquire) {
		t.Errorf("missing directory error = %v, want ErrExtractionFailure wrapping ErrAcquire", err)
	}
	if got := testutil.MustGetwd(t); got != home {
		t.Errorf("working directory after failures = %q, want %q", got, home)
	}
}
