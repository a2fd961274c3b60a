// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/issue"
	"github.com/connectedyard/licensescan/internal/policy"
)

// newPolicyCommand creates the `licensescan policy` command group.
func newPolicyCommand(f *rootFlags) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Work with license policy documents",
		Long: `License policies override the licenses of named dependencies, exclude
dependencies from the report and flag licenses that need attention.

` + SubtitleStyle.Render("Example policy:") + `
  {
    "node": {"left-pad@1.3.0": "MIT"},
    "bower": {"jquery": ["MIT", "GPL-2.0"]},
    "excludedDependencies": ["@internal", "my-app"],
    "warnOnLicenses": ["WTFPL", {"pattern": "^GPL"}, {"glob": "AGPL*"}]
  }`,
	}
	policyCmd.AddCommand(newPolicyCheckCommand(f))
	return policyCmd
}

// newPolicyCheckCommand creates the `licensescan policy check` command.
func newPolicyCheckCommand(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a license policy document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installLogger(cmd.ErrOrStderr(), f.verbose)

			p, err := policy.Load(args[0])
			if err != nil {
				return fail(cmd, ExitConfiguration, issue.NewErrorContext().
					WithOperation("load license policy").
					WithResource(args[0]).
					WithSuggestion("Licenses are a string or an array of strings").
					WithSuggestion("warnOnLicenses entries are a license, {\"pattern\": regexp} or {\"glob\": pattern}").
					WithIssue(issue.PolicyInvalidId).
					Wrap(err).
					BuildError(), f.verbose)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s is a valid license policy\n", completedIcon, PathStyle.Render(args[0]))
			fmt.Fprintln(w)
			for _, eco := range dependency.Ecosystems() {
				fmt.Fprintf(w, "  %-20s %s\n", eco.String()+" overrides", countStyle.Render(strconv.Itoa(len(p.Overrides(eco)))))
			}
			fmt.Fprintf(w, "  %-20s %s\n", "exclusions", countStyle.Render(strconv.Itoa(p.Exclusions().Len())))

			matchers := p.Matchers()
			names := make([]string, 0, len(matchers))
			for _, m := range matchers {
				names = append(names, m.String())
			}
			line := fmt.Sprintf("  %-20s %s", "warn on", countStyle.Render(strconv.Itoa(len(matchers))))
			if len(names) > 0 {
				line += "  " + SubtitleStyle.Render(strings.Join(names, ", "))
			}
			fmt.Fprintln(w, line)
			return nil
		},
	}
}
