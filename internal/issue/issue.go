// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Catalog entries.
const (
	ConfigurationInvalidId Id = iota + 1
	RunConfigInvalidId
	PolicyInvalidId
	RepositoryUncleanId
	InstallFailedId
	ExtractionFailedId
	ToolNotFoundId
	ReportWriteFailedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is remediation text rendered with glamour.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry describing a class of failure and how to
	// resolve it.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw remediation text.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render formats the entry for the terminal with the given glamour style
// ("dark", "light", "notty" or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configurationInvalidIssue = &Issue{
		id: ConfigurationInvalidId,
		mdMsg: `
# The scan configuration is invalid

Nothing was scanned. Settings are read from, in increasing precedence:

1. built-in defaults
2. ` + "`.licensescan.yaml`" + ` (or ` + "`.json`" + `, ` + "`.toml`" + `) in the current directory
3. ` + "`LICENSESCAN_*`" + ` environment variables
4. command-line flags

## Things you can try
- Pass at most one of ` + "`--dev`" + ` and ` + "`--prod`" + `.
- Use a duration such as ` + "`90s`" + ` for ` + "`--timeout`" + `.
- Use one of ` + "`json`, `yaml`, `toml`, `cyclonedx`" + ` for ` + "`--format`" + `.`,
	}

	runConfigInvalidIssue = &Issue{
		id: RunConfigInvalidId,
		mdMsg: `
# The run configuration could not be used

A run configuration names the directories to scan and may override options
for all of them or for each one:

~~~json
{
  "options": {"skipBower": true},
  "directories": {
    "services/web": {"overrideCategorization": "prod"},
    "tools": null
  }
}
~~~

## Things you can try
- Make sure ` + "`directories`" + ` lists at least one directory.
- Directory keys are resolved relative to the run configuration file.
- Check option names: unknown keys are rejected.`,
	}

	policyInvalidIssue = &Issue{
		id: PolicyInvalidId,
		mdMsg: `
# The license policy could not be loaded

~~~json
{
  "node": {"left-pad@1.3.0": "MIT"},
  "bower": {"jquery@3.7.1": ["MIT"]},
  "excludedDependencies": ["@internal", "our-private-lib"],
  "warnOnLicenses": ["GPL-3.0", {"pattern": "^AGPL"}, {"glob": "CC-BY-NC*"}]
}
~~~

## Things you can try
- Validate the document:
~~~
$ licensescan policy check licenses.json
~~~
- Override keys must match the dependency name exactly, version included.`,
	}

	repositoryUncleanIssue = &Issue{
		id: RepositoryUncleanId,
		mdMsg: `
# A directory was skipped because its repository is not clean

Scanning installs and prunes dependencies, so tracked files must have no
uncommitted changes. A directory whose state cannot be determined (not a git
repository, git missing) is treated as unclean.

## Things you can try
- Commit or stash your changes.
- Re-run with ` + "`--enableUnclean`" + ` to scan anyway.
- Use ` + "`--repoBackend go-git`" + ` when the git binary is not installed.`,
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Dependencies could not be installed

The install or prune command exited with an error, so that ecosystem was not
scanned for the directory. Other ecosystems and directories were still scanned.

## Things you can try
- Re-run with ` + "`--streamOutput`" + ` to see the package manager's output.
- Skip installation with ` + "`--skipUpdate`" + ` if dependencies are already installed.
- Replace the commands in the run configuration:
~~~json
{"directories": {"web": {"commands": {"node": {"install": "npm ci"}}}}}
~~~`,
	}

	extractionFailedIssue = &Issue{
		id: ExtractionFailedId,
		mdMsg: `
# Installed dependencies could not be read

The license data of an ecosystem could not be extracted.

## Things you can try
- Make sure ` + "`node_modules`" + ` (or the bower components directory) exists.
- Check that ` + "`package.json`" + ` and ` + "`bower.json`" + ` are valid JSON.`,
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# A required program was not found

` + "`git`" + `, ` + "`npm`" + ` and ` + "`bower`" + ` are run from your PATH.

## Things you can try
- Install the missing program, or
- avoid it: ` + "`--repoBackend go-git`" + ` for git, ` + "`--skipUpdate`" + ` for npm and bower.`,
	}

	reportWriteFailedIssue = &Issue{
		id: ReportWriteFailedId,
		mdMsg: `
# The report could not be written

The scan completed but its results could not be saved.

## Things you can try
- Check that the ` + "`--output`" + ` directory exists and is writable.
- Use ` + "`--noSave`" + ` to print the summary only.`,
	}

	issues = map[Id]*Issue{
		configurationInvalidIssue.Id(): configurationInvalidIssue,
		runConfigInvalidIssue.Id():     runConfigInvalidIssue,
		policyInvalidIssue.Id():        policyInvalidIssue,
		repositoryUncleanIssue.Id():    repositoryUncleanIssue,
		installFailedIssue.Id():        installFailedIssue,
		extractionFailedIssue.Id():     extractionFailedIssue,
		toolNotFoundIssue.Id():         toolNotFoundIssue,
		reportWriteFailedIssue.Id():    reportWriteFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
