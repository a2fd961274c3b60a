// SPDX-License-Identifier: MPL-2.0

package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

const (
	toolName = "licensescan"

	propEcosystem  = "licensescan:ecosystem"
	propDirectory  = "licensescan:directory"
	propProduction = "licensescan:production"
)

// ToCycloneDX converts modules into a CycloneDX document. The run ID is the
// document serial number.
func ToCycloneDX(agg *Aggregate, modules []Module, toolVersion string) *cyclonedx.BOM {
	bom := cyclonedx.NewBOM()
	bom.SerialNumber = "urn:uuid:" + agg.RunID.String()
	bom.Metadata = &cyclonedx.Metadata{
		Timestamp: agg.GeneratedAt.UTC().Format(time.RFC3339),
		Tools: &cyclonedx.ToolsChoice{
			Components: &[]cyclonedx.Component{
				{
					Type:    cyclonedx.ComponentTypeApplication,
					Name:    toolName,
					Version: toolVersion,
				},
			},
		},
	}

	comps := make([]cyclonedx.Component, 0, len(modules))
	for _, m := range modules {
		c := cyclonedx.Component{
			BOMRef:     bomRef(agg.RunID, m),
			Type:       cyclonedx.ComponentTypeLibrary,
			Name:       m.Module,
			Version:    m.Version,
			PackageURL: m.PURL,
			Publisher:  m.Publisher,
			Scope:      cyclonedx.ScopeOptional,
			Properties: &[]cyclonedx.Property{
				{Name: propEcosystem, Value: m.Ecosystem.String()},
				{Name: propDirectory, Value: m.Directory},
				{Name: propProduction, Value: strconv.FormatBool(m.IsProduction)},
			},
		}
		if m.IsProduction {
			c.Scope = cyclonedx.ScopeRequired
		}
		if licenses := licenseChoices(m); len(licenses) > 0 {
			c.Licenses = &licenses
		}
		if m.Repository != "" {
			c.ExternalReferences = &[]cyclonedx.ExternalReference{
				{URL: m.Repository, Type: cyclonedx.ERTypeVCS},
			}
		}
		comps = append(comps, c)
	}
	bom.Components = &comps
	return bom
}

// bomRef is the purl when there is one, otherwise a name-based UUID scoped
// to the run.
func bomRef(runID uuid.UUID, m Module) string {
	if m.PURL != "" {
		return m.PURL
	}
	return uuid.NewSHA1(runID, []byte(m.Ecosystem.String()+"/"+m.Name)).String()
}

func licenseChoices(m Module) cyclonedx.Licenses {
	if m.Licenses.IsUnknown() {
		return nil
	}
	out := make(cyclonedx.Licenses, 0, len(m.Licenses))
	for _, l := range m.Licenses {
		if strings.Contains(l, " OR ") || strings.Contains(l, " AND ") {
			out = append(out, cyclonedx.LicenseChoice{Expression: l})
			continue
		}
		out = append(out, cyclonedx.LicenseChoice{License: &cyclonedx.License{Name: l}})
	}
	return out
}
