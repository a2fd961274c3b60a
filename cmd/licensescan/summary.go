// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/issue"
	"github.com/connectedyard/licensescan/internal/orchestrator"
	"github.com/connectedyard/licensescan/internal/report"
	"github.com/connectedyard/licensescan/internal/scan"
)

var (
	completedIcon = SuccessStyle.Render("✓")
	abortedIcon   = WarningStyle.Render("!")
	failedIcon    = ErrorStyle.Render("✗")
)

// printSummary writes one line per directory followed by the totals. A
// directory that was skipped or failed is never shown like an empty one.
func printSummary(w io.Writer, res *orchestrator.Result, agg *report.Aggregate, verbose bool) {
	fmt.Fprintln(w, TitleStyle.Render("License scan")+" "+SubtitleStyle.Render(res.RunID.String()))
	fmt.Fprintln(w)

	seen := make(map[issue.Id]bool)
	for _, o := range res.Outcomes {
		fmt.Fprintf(w, "%s %s %s\n", statusIcon(o.Status), PathStyle.Render(o.Directory), SubtitleStyle.Render(describeOutcome(o)))
		for _, err := range o.Errors {
			fmt.Fprintf(w, "    %s\n", err)
			if id := issueFor(err); verbose && id != 0 && !seen[id] {
				seen[id] = true
				renderIssue(w, id)
			}
		}
		if o.Status == scan.StatusAborted && o.Repo.Err != nil {
			fmt.Fprintf(w, "    %s\n", o.Repo.Err)
		}
		if o.Status == scan.StatusAborted && verbose && !seen[issue.RepositoryUncleanId] {
			seen[issue.RepositoryUncleanId] = true
			renderIssue(w, issue.RepositoryUncleanId)
		}
	}

	completed := len(res.ByStatus(scan.StatusCompleted))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s directories  %s completed  %s aborted  %s failed\n",
		countStyle.Render(strconv.Itoa(len(res.Outcomes))),
		SuccessStyle.Render(strconv.Itoa(completed)),
		WarningStyle.Render(strconv.Itoa(len(agg.Aborted))),
		ErrorStyle.Render(strconv.Itoa(len(agg.Failed))),
	)
	fmt.Fprintf(w, "%s modules      %d production  %s unknown licenses  %s warnings\n",
		countStyle.Render(strconv.Itoa(len(agg.Modules))),
		len(agg.Production),
		WarningStyle.Render(strconv.Itoa(len(agg.Unknowns))),
		WarningStyle.Render(strconv.Itoa(len(agg.Warnings))),
	)
	fmt.Fprintln(w, SubtitleStyle.Render("finished in "+formatDuration(res.Duration())))
}

func statusIcon(s scan.Status) string {
	switch s {
	case scan.StatusCompleted:
		return completedIcon
	case scan.StatusAborted:
		return abortedIcon
	default:
		return failedIcon
	}
}

// describeOutcome is "node: scanned (12), bower: not-project", or the
// reason nothing was scanned.
func describeOutcome(o *scan.Outcome) string {
	if o.Status == scan.StatusAborted {
		return "aborted: repository " + o.Repo.String() + " (use --enableUnclean to scan anyway)"
	}
	parts := make([]string, 0, 2)
	for _, eco := range dependency.Ecosystems() {
		part := eco.String() + ": " + string(o.State(eco))
		if o.State(eco) == scan.StateScanned {
			part += " (" + strconv.Itoa(len(o.Records(eco))) + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func printArtifacts(w io.Writer, art report.Artifacts) {
	if art.Report == "" {
		return
	}
	fmt.Fprintln(w, "report: "+PathStyle.Render(art.Report))
	for _, path := range art.CSV {
		fmt.Fprintln(w, "csv:    "+PathStyle.Render(path))
	}
}
