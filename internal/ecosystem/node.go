// SPDX-License-Identifier: MPL-2.0

package ecosystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/connectedyard/licensescan/internal/dependency"
)

const nodeModulesDir = "node_modules"

type (
	// NodeExtractor reads license data from an installed node_modules tree.
	//
	// The production pass follows "dependencies" and "optionalDependencies"
	// transitively from the project manifest. The development pass follows
	// "devDependencies" the same way, minus every package already reached by
	// the production pass. The project itself is reported in the production
	// pass. Declared dependencies that are not installed are skipped.
	NodeExtractor struct{}

	nodePackage struct {
		dir      string
		manifest gjson.Result
	}

	nodeTree struct {
		root     string
		packages map[string]*nodePackage
	}
)

// Extract implements Extractor.
func (NodeExtractor) Extract(ctx context.Context, dir string) ([]dependency.Record, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	rootManifest, err := readManifest(filepath.Join(root, NodeManifest))
	if err != nil {
		return nil, err
	}

	tree := &nodeTree{root: root, packages: make(map[string]*nodePackage)}
	rootPkg := &nodePackage{dir: root, manifest: rootManifest}

	prodSeeds := slices.Concat(
		dependencyNames(rootManifest, "dependencies"),
		dependencyNames(rootManifest, "optionalDependencies"),
	)
	prod, err := tree.closure(ctx, rootPkg, prodSeeds, nil)
	if err != nil {
		return nil, err
	}
	dev, err := tree.closure(ctx, rootPkg, dependencyNames(rootManifest, "devDependencies"), prod)
	if err != nil {
		return nil, err
	}

	records := []dependency.Record{tree.record(rootPkg, true)}
	records = appendPass(records, tree, prod, true)
	records = appendPass(records, tree, dev, false)
	return records, nil
}

func appendPass(records []dependency.Record, tree *nodeTree, pass map[string]bool, production bool) []dependency.Record {
	batch := make([]dependency.Record, 0, len(pass))
	for d := range pass {
		batch = append(batch, tree.record(tree.packages[d], production))
	}
	// One record per name@version; the shallowest install wins.
	slices.SortFunc(batch, func(a, b dependency.Record) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		return strings.Compare(a.Path, b.Path)
	})
	seen := make(map[string]bool, len(batch))
	unique := batch[:0]
	for _, r := range batch {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		unique = append(unique, r)
	}
	slices.SortFunc(unique, func(a, b dependency.Record) int { return strings.Compare(a.Name, b.Name) })
	return append(records, unique...)
}

// closure returns the install directories reachable from seeds, skipping
// directories present in exclude.
func (t *nodeTree) closure(ctx context.Context, from *nodePackage, seeds []string, exclude map[string]bool) (map[string]bool, error) {
	reached := make(map[string]bool)
	type item struct {
		from *nodePackage
		name string
	}
	queue := make([]item, 0, len(seeds))
	for _, s := range seeds {
		queue = append(queue, item{from: from, name: s})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := queue[0]
		queue = queue[1:]

		pkg, err := t.resolve(next.from.dir, next.name)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			slog.Debug("dependency not installed", "dependency", next.name, "from", next.from.dir)
			continue
		}
		if reached[pkg.dir] || exclude[pkg.dir] {
			continue
		}
		reached[pkg.dir] = true

		for _, child := range slices.Concat(
			dependencyNames(pkg.manifest, "dependencies"),
			dependencyNames(pkg.manifest, "optionalDependencies"),
		) {
			queue = append(queue, item{from: pkg, name: child})
		}
	}
	return reached, nil
}

// resolve finds name the way node's module loader does: in fromDir's own
// node_modules, then in each ancestor's, up to the project root.
func (t *nodeTree) resolve(fromDir, name string) (*nodePackage, error) {
	for dir := fromDir; ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) != nodeModulesDir {
			candidate := filepath.Join(dir, nodeModulesDir, filepath.FromSlash(name))
			if pkg, ok := t.packages[candidate]; ok {
				return pkg, nil
			}
			manifestPath := filepath.Join(candidate, NodeManifest)
			if _, err := os.Stat(manifestPath); err == nil {
				manifest, err := readManifest(manifestPath)
				if err != nil {
					slog.Warn("skipping unreadable package manifest", "path", manifestPath, "error", err)
					return nil, nil
				}
				pkg := &nodePackage{dir: candidate, manifest: manifest}
				t.packages[candidate] = pkg
				return pkg, nil
			}
		}
		if dir == t.root || len(dir) <= len(t.root) || dir == filepath.Dir(dir) {
			return nil, nil
		}
	}
}

func (t *nodeTree) record(pkg *nodePackage, production bool) dependency.Record {
	name := pkg.manifest.Get("name").String()
	if name == "" {
		name = filepath.ToSlash(strings.TrimPrefix(pkg.dir, filepath.Join(t.root, nodeModulesDir)+string(filepath.Separator)))
	}
	version := pkg.manifest.Get("version").String()
	if version != "" {
		name += "@" + version
	}

	var relPath string
	depth := 0
	if pkg.dir != t.root {
		rel, err := filepath.Rel(filepath.Join(t.root, nodeModulesDir), pkg.dir)
		if err == nil {
			relPath = filepath.ToSlash(rel)
			depth = strings.Count(relPath, "/") + 1
		}
	}

	author := parsePerson(pkg.manifest.Get("author"))
	return dependency.Record{
		Name:         name,
		Version:      version,
		Licenses:     nodeLicenses(pkg.manifest, pkg.dir),
		Publisher:    author.Name,
		Email:        author.Email,
		Repository:   repositoryURL(pkg.manifest.Get("repository")),
		Path:         relPath,
		Depth:        depth,
		IsProduction: production,
		Ecosystem:    dependency.EcosystemNode,
	}
}

func dependencyNames(manifest gjson.Result, field string) []string {
	deps := manifest.Get(field).Map()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func readManifest(path string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%s is not valid JSON", path)
	}
	return gjson.ParseBytes(data), nil
}
