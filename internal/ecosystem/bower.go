// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/connectedyard/licensescan/internal/dependency"
)

const (
	bowerRCFile            = ".bowerrc"
	defaultBowerComponents = "bower_components"
	installedBowerManifest = ".bower.json"
)

// BowerExtractor reads license data from installed bower components.
//
// Like bower itself, it locates the components directory relative to the
// process working directory, not the dir argument: .bowerrc's "directory"
// setting, else bower_components. Callers must enter the project directory
// first (see Probe.Extract). Every record is a production dependency at
// depth 1 with an empty path.
type BowerExtractor struct{}

// Extract implements Extractor.
func (BowerExtractor) Extract(ctx context.Context, _ string) ([]dependency.Record, error) {
	componentsDir, err := bowerComponentsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(componentsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records := make([]dependency.Record, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		manifest, ok := readBowerManifest(filepath.Join(componentsDir, entry.Name()))
		if !ok {
			continue
		}
		records = append(records, bowerRecord(entry.Name(), manifest))
	}
	slices.SortFunc(records, func(a, b dependency.Record) int { return strings.Compare(a.Name, b.Name) })
	return records, nil
}

func bowerComponentsDir() (string, error) {
	data, err := os.ReadFile(bowerRCFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return defaultBowerComponents, nil
	case err != nil:
		return "", err
	case !gjson.ValidBytes(data):
		return "", fmt.Errorf("%s is not valid JSON", bowerRCFile)
	}
	if dir := gjson.GetBytes(data, "directory").String(); dir != "" {
		return filepath.FromSlash(dir), nil
	}
	return defaultBowerComponents, nil
}

// readBowerManifest prefers the .bower.json bower writes at install time,
// which carries the resolved version, over the package's own bower.json.
func readBowerManifest(componentDir string) (gjson.Result, bool) {
	for _, name := range []string{installedBowerManifest, BowerManifest} {
		manifest, err := readManifest(filepath.Join(componentDir, name))
		if err == nil {
			return manifest, true
		}
	}
	return gjson.Result{}, false
}

func bowerRecord(dirName string, manifest gjson.Result) dependency.Record {
	name := manifest.Get("name").String()
	if name == "" {
		name = dirName
	}
	version := manifest.Get("version").String()
	if version == "" {
		version = manifest.Get("_release").String()
	}
	if version != "" {
		name += "@" + version
	}

	return dependency.Record{
		Name:         name,
		Version:      version,
		Licenses:     dependency.NewLicenses(declaredLicenses(manifest)...),
		Repository:   bowerRepository(manifest.Get("repository")),
		Depth:        1,
		IsProduction: true,
		Ecosystem:    dependency.EcosystemBower,
	}
}
