// Package styles provides the color palette and lipgloss styles shared by
// the shots console output and prompts.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Core text
	White = lipgloss.Color("#E2E2E2")
	Gray  = lipgloss.Color("#888888")
	Muted = lipgloss.Color("#555555")

	// Accent
	Blue = lipgloss.Color("#5FAFFF")

	// Status
	Green  = lipgloss.Color("#5FD787")
	Yellow = lipgloss.Color("#FFD787")
	Red    = lipgloss.Color("#FF8787")
)
