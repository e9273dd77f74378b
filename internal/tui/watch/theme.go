package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes styling for the watch TUI.
type Theme struct {
	StatusOK      lipgloss.Style
	StatusStale   lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusPending lipgloss.Style

	Border lipgloss.Style
	Title  lipgloss.Style
	Dim    lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusStale:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
