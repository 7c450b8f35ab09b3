package ui

import "github.com/charmbracelet/lipgloss"

var (
	cyan    = lipgloss.Color("#00D7D7")
	magenta = lipgloss.Color("#D75FD7")
	green   = lipgloss.Color("#5FD75F")
	yellow  = lipgloss.Color("#D7D75F")
	orange  = lipgloss.Color("#FF8700")
	red     = lipgloss.Color("#FF5F5F")
	dim     = lipgloss.Color("#8A8A8A")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1C1C1C")).
			Background(magenta).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(yellow)
	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(orange).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	highlight    = lipgloss.NewStyle().Foreground(magenta)
)
