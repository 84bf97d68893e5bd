package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("63")  // Purple/blue
	Secondary = lipgloss.Color("86")  // Cyan
	Accent    = lipgloss.Color("205") // Pink
	Success   = lipgloss.Color("78")  // Green
	Warning   = lipgloss.Color("214") // Orange
	Error     = lipgloss.Color("196") // Red
	Subtle    = lipgloss.Color("241") // Gray
	Text      = lipgloss.Color("252") // Light gray
	TextDim   = lipgloss.Color("245") // Dimmer text

	// Campaign steps
	StepStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	StepDoneStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StepFailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	// Report tables
	TableBorderStyle = lipgloss.NewStyle().
				Foreground(Subtle)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(Primary).
				Bold(true).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Foreground(Text).
			Padding(0, 1)

	TableOddRowStyle = TableCellStyle.
				Foreground(TextDim)

	// Page title
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Status line under the progress bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Padding(0, 1)

	// General
	DimStyle     = lipgloss.NewStyle().Foreground(TextDim)
	AccentStyle  = lipgloss.NewStyle().Foreground(Accent)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
)
