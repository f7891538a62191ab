package cli

import "github.com/charmbracelet/lipgloss"

// Styles for command output. Lipgloss degrades to plain text when the
// terminal does not support colour.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#a6e3a1"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6c7086"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f9e2af"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a6e3a1"))
)
