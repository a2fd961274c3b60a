// SPDX-License-Identifier: MPL-2.0

package report

import (
	purl "github.com/package-url/packageurl-go"

	"github.com/connectedyard/licensescan/internal/dependency"
)

// bowerNamespace qualifies bower components, which have no purl type.
const bowerNamespace = "bower"

// PURL returns the package URL of rec, or "" when its name cannot be parsed.
// Node records use the npm type with the scope as namespace; bower records
// use the generic type under the "bower" namespace.
func PURL(rec dependency.Record) string {
	p := toPURL(rec)
	if p == nil {
		return ""
	}
	return p.String()
}

func toPURL(rec dependency.Record) *purl.PackageURL {
	name, err := rec.ParsedName()
	if err != nil {
		return nil
	}
	version := rec.Version
	if version == "" {
		version = name.Version
	}

	switch rec.Ecosystem {
	case dependency.EcosystemNode:
		return purl.NewPackageURL(purl.TypeNPM, name.Scope, name.Base, version, nil, "")
	case dependency.EcosystemBower:
		return purl.NewPackageURL(purl.TypeGeneric, bowerNamespace, name.LongName(), version, nil, "")
	default:
		return nil
	}
}
