// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

const (
	// ColorPrimary is used for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is used for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess marks accepted files.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError marks rejected files and failures.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning marks unreadable files and warnings.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is used for paths and identifiers.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	PathStyle     = lipgloss.NewStyle().Foreground(ColorHighlight)

	// sectionStyle indents list sections under a title.
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)
