// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the licensescan command tree.
//
// The root command scans one or more project directories, applies the
// license policy and writes the consolidated report. Subcommands cover
// policy validation and shell completion.
package cmd
