// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all console output. Chosen for dark terminals.
const (
	// ColorPrimary is purple: titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray: secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green: completed directories.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red: failed directories and fatal errors.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber: aborted directories, unknown and flagged licenses.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue: paths and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for the summary heading.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for section labels and help headings.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle marks completed directories.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle marks aborted directories and license findings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// PathStyle is for directory and file paths.
	PathStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// countStyle right-aligns the numeric summary columns.
	countStyle = lipgloss.NewStyle().
			Width(6).
			Align(lipgloss.Right)
)
