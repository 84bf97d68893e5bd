package ui

import "github.com/charmbracelet/lipgloss"

// Title renders a styled page title.
func Title(text string) string {
	return TitleStyle.Render(text)
}

// Badge renders a small colored badge.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// SuccessBadge renders a green badge.
func SuccessBadge(text string) string {
	return Badge(text, Success)
}

// ErrorBadge renders a red badge.
func ErrorBadge(text string) string {
	return Badge(text, Error)
}

// WarningBadge renders an orange badge.
func WarningBadge(text string) string {
	return Badge(text, Warning)
}

// StepDone renders a finished campaign step, e.g. " - Model build [OK]".
func StepDone(label, status string) string {
	return " - " + label + " " + StepDoneStyle.Render("["+status+"]")
}

// StepFailed renders a failed campaign step.
func StepFailed(label string) string {
	return " - " + StepFailStyle.Render("ERROR: "+label)
}

// StepRunning renders a step in progress.
func StepRunning(label string) string {
	return " - " + StepStyle.Render(label+"...")
}
