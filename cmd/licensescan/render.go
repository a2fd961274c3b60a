// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/ecosystem"
	"github.com/connectedyard/licensescan/internal/issue"
	"github.com/connectedyard/licensescan/internal/policy"
	"github.com/connectedyard/licensescan/internal/report"
)

// issueStyle is the glamour style used for catalog entries.
const issueStyle = "dark"

// issueFor picks the catalog entry explaining err, or 0. An explicit issue
// on an ActionableError wins over classification by sentinel.
func issueFor(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	switch {
	case errors.Is(err, report.ErrWrite):
		return issue.ReportWriteFailedId
	case errors.Is(err, exec.ErrNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, ecosystem.ErrInstallFailure):
		return issue.InstallFailedId
	case errors.Is(err, ecosystem.ErrExtractionFailure):
		return issue.ExtractionFailedId
	case errors.Is(err, policy.ErrInvalidPolicy):
		return issue.PolicyInvalidId
	case errors.Is(err, config.ErrConfiguration):
		return issue.ConfigurationInvalidId
	default:
		return 0
	}
}

// renderError writes err to w. An ActionableError is shown with its
// suggestions; verbose adds the error chain and the catalog entry.
func renderError(w io.Writer, err error, verbose bool) {
	msg := err.Error()
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		msg = ae.Format(verbose)
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:")+" "+msg)

	if verbose {
		renderIssue(w, issueFor(err))
	}
}

// renderIssue writes the catalog entry id to w.
func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(issueStyle)
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}
