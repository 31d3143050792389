package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#2563EB") // blue
	Secondary = lipgloss.Color("#06B6D4") // cyan
	Success   = lipgloss.Color("#22C55E") // green
	Warning   = lipgloss.Color("#F59E0B") // amber
	Error     = lipgloss.Color("#EF4444") // red
	Muted     = lipgloss.Color("#6B7280") // gray
	Text      = lipgloss.Color("#E5E7EB") // light gray

	// Component styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(12)

	Value = lipgloss.NewStyle().
		Foreground(Text)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	FocusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	InfoText = lipgloss.NewStyle().
			Foreground(Success)

	LoadingText = lipgloss.NewStyle().
			Foreground(Warning)
)
