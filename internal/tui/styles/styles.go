package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Title is the main header text style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(White)

	// Label is used for field names and run prefixes.
	Label = lipgloss.NewStyle().
		Foreground(Gray).
		Bold(true)

	// MutedText is for timestamps, hints, and less important info.
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// AccentText is for identifiers such as instance and snapshot IDs.
	AccentText = lipgloss.NewStyle().
			Foreground(Blue)

	// ErrorText is for error messages.
	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// SuccessText is for success messages.
	SuccessText = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// WarningText is for warning messages.
	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// StatusStyle returns the style for a power state, cycle state or outcome.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "running", "done", "success":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "pending", "starting", "pending-snapshot", "planned":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	case "stopping", "skipped":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "stopped":
		return lipgloss.NewStyle().Foreground(Blue)
	case "failed", "error", "terminated":
		return lipgloss.NewStyle().Foreground(Red).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// StatusIndicator returns a small dot + status text with appropriate color.
func StatusIndicator(status string) string {
	style := StatusStyle(status)
	return style.Render("●") + " " + style.Render(status)
}
